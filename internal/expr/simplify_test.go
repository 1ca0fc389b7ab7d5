package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimplify_EmptySeq(t *testing.T) {
	assert.Equal(t, Unit{}, Simplify(Seq{}))
}

func TestSimplify_SingleItemSeq(t *testing.T) {
	assert.Equal(t, Get{Name: "q0"}, Simplify(Seq{Items: []Expression{Get{Name: "q0"}}}))
}

func TestSimplify_FlattensNestedSeq(t *testing.T) {
	nested := Seq{Items: []Expression{
		Get{Name: "a"},
		Seq{Items: []Expression{Get{Name: "b"}, Get{Name: "c"}}},
		Get{Name: "d"},
	}}

	got := Simplify(nested)
	assert.Equal(t, Seq{Items: []Expression{
		Get{Name: "a"}, Get{Name: "b"}, Get{Name: "c"}, Get{Name: "d"},
	}}, got)
}

func TestSimplify_DropsNonFinalUnit(t *testing.T) {
	s := Seq{Items: []Expression{Unit{}, Get{Name: "a"}, Unit{}}}

	// The trailing Unit is the Seq's value and must survive.
	got := Simplify(s)
	assert.Equal(t, Seq{Items: []Expression{Get{Name: "a"}, Unit{}}}, got)
}

func TestSimplify_AllUnitSeq(t *testing.T) {
	got := Simplify(Seq{Items: []Expression{Unit{}, Unit{}, Unit{}}})
	assert.Equal(t, Unit{}, got)
}

func TestSimplify_EmptyLetCollapses(t *testing.T) {
	got := Simplify(Let{Body: Get{Name: "q0"}})
	assert.Equal(t, Get{Name: "q0"}, got)
}

func TestSimplify_KeepsBindings(t *testing.T) {
	// A binding whose body is a plain Get of it must survive: downstream
	// consumers reference the name, not the bound expression.
	l := Let{
		Bindings: []Binding{{Name: "q0", Expr: Execute{DB: &DBQuery{Statement: "INSERT"}}}},
		Body:     Get{Name: "q0"},
	}

	got := Simplify(l)
	assert.Equal(t, l, got)
}

func TestSimplify_RecursesThroughWrappers(t *testing.T) {
	e := Transaction{Expr: DataMap{
		Expr:      Seq{Items: []Expression{Seq{Items: []Expression{Get{Name: "a"}}}}},
		Structure: &ResultNode{Kind: ResultObject, Name: "User"},
	}}

	got := Simplify(e)
	assert.Equal(t, Transaction{Expr: DataMap{
		Expr:      Get{Name: "a"},
		Structure: &ResultNode{Kind: ResultObject, Name: "User"},
	}}, got)
}

func TestSimplify_Idempotent(t *testing.T) {
	cases := []Expression{
		Seq{Items: []Expression{Unit{}, Seq{Items: []Expression{Get{Name: "a"}}}, Unit{}}},
		Let{Bindings: []Binding{{Name: "x", Expr: Seq{}}}, Body: Get{Name: "x"}},
		If{Value: Get{Name: "a"}, Then: Seq{}, Else: Seq{Items: []Expression{Unit{}}}},
		Diff{From: Seq{Items: []Expression{Get{Name: "l"}}}, To: Get{Name: "r"}},
	}

	for _, e := range cases {
		once := Simplify(e)
		twice := Simplify(once)
		assert.Equal(t, once, twice)
	}
}
