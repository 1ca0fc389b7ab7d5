package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inkwell-db/inkwell/internal/qgraph"
	"github.com/inkwell-db/inkwell/internal/qvalue"
)

func TestFormat_Leaves(t *testing.T) {
	assert.Equal(t, "unit\n", Format(Unit{}))
	assert.Equal(t, "get q0\n", Format(Get{Name: "q0"}))
	assert.Equal(t, "getFirstNonEmpty q1, q3\n", Format(GetFirstNonEmpty{Names: []string{"q1", "q3"}}))
}

func TestFormat_QueryWithParamsAndColumns(t *testing.T) {
	q := Query{DB: &DBQuery{
		Statement: "SELECT id FROM User WHERE id = ? ORDER BY id ASC",
		Params:    []qvalue.Value{qvalue.Int(1)},
		Columns:   []string{"id"},
	}}

	assert.Equal(t,
		"query \"SELECT id FROM User WHERE id = ? ORDER BY id ASC\" params [1] columns [id]\n",
		Format(q))
}

func TestFormat_Let(t *testing.T) {
	e := Let{
		Bindings: []Binding{{Name: "q0", Expr: Execute{DB: &DBQuery{Statement: "INSERT INTO User (name) VALUES (?)"}}}},
		Body:     Get{Name: "q0"},
	}

	want := "let\n" +
		"  q0 = execute \"INSERT INTO User (name) VALUES (?)\"\n" +
		"in get q0\n"
	assert.Equal(t, want, Format(e))
}

func TestFormat_Seq(t *testing.T) {
	e := Seq{Items: []Expression{Get{Name: "a"}, Get{Name: "b"}}}

	want := "seq {\n" +
		"  get a\n" +
		"  get b\n" +
		"}\n"
	assert.Equal(t, want, Format(e))
}

func TestFormat_IfWithRule(t *testing.T) {
	e := If{
		Value: Get{Name: "q0_id"},
		Rule:  qgraph.RowCountEq(1),
		Then:  Get{Name: "q1"},
		Else:  Unit{},
	}

	want := "if rowCountEq(1) of get q0_id\n" +
		"  then get q1\n" +
		"  else unit\n"
	assert.Equal(t, want, Format(e))
}

func TestFormat_ValidateAndDiff(t *testing.T) {
	v := Validate{
		Expr:    Get{Name: "q0"},
		Rules:   []qgraph.DataRule{qgraph.RowCountEq(1)},
		ErrorID: "expectation q0->q1",
	}
	assert.Equal(t, "validate [rowCountEq(1)] error expectation q0->q1 get q0\n", Format(v))

	d := Diff{From: Get{Name: "l"}, To: Get{Name: "r"}}
	assert.Equal(t, "diff from get l to get r\n", Format(d))
}

func TestFormat_MapFieldAndUnique(t *testing.T) {
	assert.Equal(t, "mapField id of get q0\n", Format(MapField{Field: "id", Records: Get{Name: "q0"}}))
	assert.Equal(t, "unique get q0\n", Format(Unique{Expr: Get{Name: "q0"}}))
}

func TestFormat_Deterministic(t *testing.T) {
	e := Transaction{Expr: Let{
		Bindings: []Binding{
			{Name: "q0", Expr: Query{DB: &DBQuery{Statement: "SELECT * FROM t ORDER BY rowid ASC"}}},
			{Name: "q0_id", Expr: MapField{Field: "id", Records: Get{Name: "q0"}}},
		},
		Body: Get{Name: "q0_id"},
	}}

	first := Format(e)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Format(e))
	}
}
