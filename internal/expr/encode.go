package expr

import (
	"fmt"

	"github.com/inkwell-db/inkwell/internal/qgraph"
	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// MarshalCanonical encodes an expression tree as canonical JSON: every
// node is an object tagged with "kind". This is the CLI's machine
// readable output.
func MarshalCanonical(e Expression) ([]byte, error) {
	m, err := encode(e)
	if err != nil {
		return nil, err
	}
	return qvalue.MarshalCanonical(m)
}

func encode(e Expression) (map[string]any, error) {
	switch v := e.(type) {
	case Unit:
		return map[string]any{"kind": "unit"}, nil
	case Get:
		return map[string]any{"kind": "get", "name": v.Name}, nil
	case GetFirstNonEmpty:
		return map[string]any{"kind": "getFirstNonEmpty", "names": toAny(v.Names)}, nil
	case Seq:
		items, err := encodeAll(v.Items)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "seq", "items": items}, nil
	case Let:
		bindings := make([]any, len(v.Bindings))
		for i, b := range v.Bindings {
			enc, err := encode(b.Expr)
			if err != nil {
				return nil, err
			}
			bindings[i] = map[string]any{"name": b.Name, "expr": enc}
		}
		body, err := encode(v.Body)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "let", "bindings": bindings, "body": body}, nil
	case Query:
		return encodeDBQuery("query", v.DB)
	case Execute:
		return encodeDBQuery("execute", v.DB)
	case Reverse:
		return encodeUnary("reverse", v.Expr)
	case Sum:
		items, err := encodeAll(v.Exprs)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "sum", "exprs": items}, nil
	case Concat:
		items, err := encodeAll(v.Exprs)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "concat", "exprs": items}, nil
	case Unique:
		return encodeUnary("unique", v.Expr)
	case Required:
		return encodeUnary("required", v.Expr)
	case Join:
		parent, err := encode(v.Parent)
		if err != nil {
			return nil, err
		}
		children := make([]any, len(v.Children))
		for i, c := range v.Children {
			enc, err := encode(c.Child)
			if err != nil {
				return nil, err
			}
			on := make([]any, len(c.On))
			for j, pair := range c.On {
				on[j] = []any{pair[0], pair[1]}
			}
			children[i] = map[string]any{
				"child":       enc,
				"on":          on,
				"parentField": c.ParentField,
				"unique":      c.Unique,
			}
		}
		return map[string]any{"kind": "join", "parent": parent, "children": children}, nil
	case MapField:
		records, err := encode(v.Records)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "mapField", "field": v.Field, "records": records}, nil
	case Transaction:
		return encodeUnary("transaction", v.Expr)
	case DataMap:
		inner, err := encode(v.Expr)
		if err != nil {
			return nil, err
		}
		m := map[string]any{"kind": "dataMap", "expr": inner, "structure": encodeStructure(v.Structure)}
		if len(v.Enums) > 0 {
			enums := make(map[string]any, len(v.Enums))
			for name, members := range v.Enums {
				enums[name] = toAny(members)
			}
			m["enums"] = enums
		}
		return m, nil
	case Validate:
		inner, err := encode(v.Expr)
		if err != nil {
			return nil, err
		}
		rules := make([]any, len(v.Rules))
		for i, r := range v.Rules {
			rules[i] = encodeRule(r)
		}
		return map[string]any{"kind": "validate", "expr": inner, "rules": rules, "error": v.ErrorID}, nil
	case If:
		value, err := encode(v.Value)
		if err != nil {
			return nil, err
		}
		thenExpr, err := encode(v.Then)
		if err != nil {
			return nil, err
		}
		elseExpr, err := encode(v.Else)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":  "if",
			"value": value,
			"rule":  encodeRule(v.Rule),
			"then":  thenExpr,
			"else":  elseExpr,
		}, nil
	case Diff:
		from, err := encode(v.From)
		if err != nil {
			return nil, err
		}
		to, err := encode(v.To)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "diff", "from": from, "to": to}, nil
	case DistinctBy:
		inner, err := encode(v.Expr)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "distinctBy", "expr": inner, "fields": toAny(v.Fields)}, nil
	case Paginate:
		inner, err := encode(v.Expr)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind": "paginate",
			"expr": inner,
			"skip": v.Pagination.Skip,
			"take": v.Pagination.Take,
		}, nil
	case ExtendRecord:
		inner, err := encode(v.Expr)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(v.Values))
		for i, fv := range v.Values {
			values[i] = map[string]any{"field": fv.Field, "value": fv.Value}
		}
		return map[string]any{"kind": "extendRecord", "expr": inner, "values": values}, nil
	default:
		return nil, fmt.Errorf("unsupported expression type %T", e)
	}
}

func encodeAll(exprs []Expression) ([]any, error) {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		enc, err := encode(e)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

func encodeUnary(kind string, e Expression) (map[string]any, error) {
	inner, err := encode(e)
	if err != nil {
		return nil, err
	}
	return map[string]any{"kind": kind, "expr": inner}, nil
}

func encodeDBQuery(kind string, db *DBQuery) (map[string]any, error) {
	params := make([]any, len(db.Params))
	for i, p := range db.Params {
		params[i] = p
	}
	return map[string]any{
		"kind":      kind,
		"statement": db.Statement,
		"params":    params,
		"columns":   toAny(db.Columns),
	}, nil
}

func encodeRule(r qgraph.DataRule) any {
	return r.String()
}

func encodeStructure(n *ResultNode) any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ResultCount:
		return map[string]any{"kind": "count"}
	case ResultValue:
		return map[string]any{"kind": "value", "name": n.Name}
	default:
		fields := make([]any, len(n.Fields))
		for i, f := range n.Fields {
			fm := map[string]any{"name": f.Name, "type": f.Type.Kind.String()}
			if f.Nested != nil {
				fm["nested"] = encodeStructure(f.Nested)
			}
			fields[i] = fm
		}
		return map[string]any{"kind": "object", "name": n.Name, "fields": fields}
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
