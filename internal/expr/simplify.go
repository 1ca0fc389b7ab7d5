package expr

// Simplify runs a peephole pass over an expression tree: empty and
// single-item Seq forms collapse, nested Seq forms flatten, non-final
// Unit items disappear, and a Let introducing no bindings becomes its
// body. The pass is semantics-preserving and idempotent:
// Simplify(Simplify(e)) == Simplify(e).
func Simplify(e Expression) Expression {
	switch v := e.(type) {
	case Seq:
		return simplifySeq(v)
	case Let:
		return simplifyLet(v)
	case GetFirstNonEmpty, Get, Query, Execute, Unit:
		return e
	case Reverse:
		return Reverse{Expr: Simplify(v.Expr)}
	case Sum:
		return Sum{Exprs: simplifyAll(v.Exprs)}
	case Concat:
		return Concat{Exprs: simplifyAll(v.Exprs)}
	case Unique:
		return Unique{Expr: Simplify(v.Expr)}
	case Required:
		return Required{Expr: Simplify(v.Expr)}
	case Join:
		children := make([]JoinChild, len(v.Children))
		for i, c := range v.Children {
			c.Child = Simplify(c.Child)
			children[i] = c
		}
		return Join{Parent: Simplify(v.Parent), Children: children}
	case MapField:
		return MapField{Field: v.Field, Records: Simplify(v.Records)}
	case Transaction:
		return Transaction{Expr: Simplify(v.Expr)}
	case DataMap:
		return DataMap{Expr: Simplify(v.Expr), Structure: v.Structure, Enums: v.Enums}
	case Validate:
		return Validate{Expr: Simplify(v.Expr), Rules: v.Rules, ErrorID: v.ErrorID}
	case If:
		return If{Value: Simplify(v.Value), Rule: v.Rule, Then: Simplify(v.Then), Else: Simplify(v.Else)}
	case Diff:
		return Diff{From: Simplify(v.From), To: Simplify(v.To)}
	case DistinctBy:
		return DistinctBy{Expr: Simplify(v.Expr), Fields: v.Fields}
	case Paginate:
		return Paginate{Expr: Simplify(v.Expr), Pagination: v.Pagination}
	case ExtendRecord:
		return ExtendRecord{Expr: Simplify(v.Expr), Values: v.Values}
	default:
		return e
	}
}

func simplifyAll(exprs []Expression) []Expression {
	out := make([]Expression, len(exprs))
	for i, e := range exprs {
		out[i] = Simplify(e)
	}
	return out
}

func simplifySeq(s Seq) Expression {
	var items []Expression
	for _, item := range s.Items {
		switch inner := Simplify(item).(type) {
		case Seq:
			// Flattening preserves both side-effect order and the
			// final value.
			items = append(items, inner.Items...)
		default:
			items = append(items, inner)
		}
	}

	// A non-final Unit contributes neither effects nor a value.
	filtered := items[:0:0]
	for i, item := range items {
		if _, isUnit := item.(Unit); isUnit && i != len(items)-1 {
			continue
		}
		filtered = append(filtered, item)
	}

	switch len(filtered) {
	case 0:
		return Unit{}
	case 1:
		return filtered[0]
	default:
		return Seq{Items: filtered}
	}
}

func simplifyLet(l Let) Expression {
	bindings := make([]Binding, len(l.Bindings))
	for i, b := range l.Bindings {
		bindings[i] = Binding{Name: b.Name, Expr: Simplify(b.Expr)}
	}
	body := Simplify(l.Body)

	// A Let introducing nothing is its body. Bindings are never dropped
	// or inlined here: downstream Get references were generated
	// independently and must keep resolving.
	if len(bindings) == 0 {
		return body
	}

	return Let{Bindings: bindings, Body: body}
}
