package expr

import (
	"fmt"
	"strings"

	"github.com/inkwell-db/inkwell/internal/qgraph"
	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// Format renders an expression tree for diagnostics. Textual, indented,
// deterministic; not a stability-bearing format.
func Format(e Expression) string {
	var b strings.Builder
	writeExpr(&b, e, 0)
	b.WriteByte('\n')
	return b.String()
}

func indent(b *strings.Builder, level int) {
	for i := 0; i < level; i++ {
		b.WriteString("  ")
	}
}

func writeExpr(b *strings.Builder, e Expression, level int) {
	switch v := e.(type) {
	case Unit:
		b.WriteString("unit")
	case Get:
		fmt.Fprintf(b, "get %s", v.Name)
	case GetFirstNonEmpty:
		fmt.Fprintf(b, "getFirstNonEmpty %s", strings.Join(v.Names, ", "))
	case Query:
		writeDBQuery(b, "query", v.DB)
	case Execute:
		writeDBQuery(b, "execute", v.DB)
	case Seq:
		b.WriteString("seq {")
		writeBlock(b, v.Items, level)
		b.WriteString("}")
	case Let:
		b.WriteString("let")
		for _, bind := range v.Bindings {
			b.WriteByte('\n')
			indent(b, level+1)
			fmt.Fprintf(b, "%s = ", bind.Name)
			writeExpr(b, bind.Expr, level+1)
		}
		b.WriteByte('\n')
		indent(b, level)
		b.WriteString("in ")
		writeExpr(b, v.Body, level)
	case Reverse:
		writeUnary(b, "reverse", v.Expr, level)
	case Sum:
		b.WriteString("sum {")
		writeBlock(b, v.Exprs, level)
		b.WriteString("}")
	case Concat:
		b.WriteString("concat {")
		writeBlock(b, v.Exprs, level)
		b.WriteString("}")
	case Unique:
		writeUnary(b, "unique", v.Expr, level)
	case Required:
		writeUnary(b, "required", v.Expr, level)
	case Join:
		b.WriteString("join parent ")
		writeExpr(b, v.Parent, level)
		for _, child := range v.Children {
			b.WriteByte('\n')
			indent(b, level+1)
			fmt.Fprintf(b, "with %s on %s", child.ParentField, formatJoinOn(child))
			if child.Unique {
				b.WriteString(" unique")
			}
			b.WriteString(": ")
			writeExpr(b, child.Child, level+1)
		}
	case MapField:
		fmt.Fprintf(b, "mapField %s of ", v.Field)
		writeExpr(b, v.Records, level)
	case Transaction:
		writeUnary(b, "transaction", v.Expr, level)
	case DataMap:
		fmt.Fprintf(b, "dataMap %s ", formatStructure(v.Structure))
		writeExpr(b, v.Expr, level)
	case Validate:
		fmt.Fprintf(b, "validate [%s] error %s ", formatRules(v.Rules), v.ErrorID)
		writeExpr(b, v.Expr, level)
	case If:
		fmt.Fprintf(b, "if %s of ", v.Rule)
		writeExpr(b, v.Value, level)
		b.WriteByte('\n')
		indent(b, level+1)
		b.WriteString("then ")
		writeExpr(b, v.Then, level+1)
		b.WriteByte('\n')
		indent(b, level+1)
		b.WriteString("else ")
		writeExpr(b, v.Else, level+1)
	case Diff:
		b.WriteString("diff from ")
		writeExpr(b, v.From, level)
		b.WriteString(" to ")
		writeExpr(b, v.To, level)
	case DistinctBy:
		fmt.Fprintf(b, "distinctBy [%s] ", strings.Join(v.Fields, ", "))
		writeExpr(b, v.Expr, level)
	case Paginate:
		fmt.Fprintf(b, "paginate skip %d take %d ", v.Pagination.Skip, v.Pagination.Take)
		writeExpr(b, v.Expr, level)
	case ExtendRecord:
		fmt.Fprintf(b, "extendRecord [%s] ", formatFieldValues(v.Values))
		writeExpr(b, v.Expr, level)
	default:
		fmt.Fprintf(b, "<%T>", e)
	}
}

func writeBlock(b *strings.Builder, items []Expression, level int) {
	for _, item := range items {
		b.WriteByte('\n')
		indent(b, level+1)
		writeExpr(b, item, level+1)
	}
	b.WriteByte('\n')
	indent(b, level)
}

func writeUnary(b *strings.Builder, name string, e Expression, level int) {
	b.WriteString(name)
	b.WriteByte(' ')
	writeExpr(b, e, level)
}

func writeDBQuery(b *strings.Builder, name string, db *DBQuery) {
	fmt.Fprintf(b, "%s %q", name, db.Statement)
	if len(db.Params) > 0 {
		params := make([]string, len(db.Params))
		for i, p := range db.Params {
			params[i] = qvalue.Display(p)
		}
		fmt.Fprintf(b, " params [%s]", strings.Join(params, ", "))
	}
	if len(db.Columns) > 0 {
		fmt.Fprintf(b, " columns [%s]", strings.Join(db.Columns, ", "))
	}
}

func formatRules(rules []qgraph.DataRule) string {
	parts := make([]string, len(rules))
	for i, r := range rules {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

func formatFieldValues(values []qgraph.FieldValue) string {
	parts := make([]string, len(values))
	for i, fv := range values {
		parts[i] = fv.Field + ": " + qvalue.Display(fv.Value)
	}
	return strings.Join(parts, ", ")
}

func formatJoinOn(child JoinChild) string {
	parts := make([]string, len(child.On))
	for i, pair := range child.On {
		parts[i] = pair[0] + "=" + pair[1]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatStructure(n *ResultNode) string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case ResultCount:
		return "count"
	case ResultValue:
		return "value " + n.Name
	default:
		fields := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			if f.Nested != nil {
				fields[i] = f.Name + " " + formatStructure(f.Nested)
			} else {
				fields[i] = f.Name
			}
		}
		return "object(" + strings.Join(fields, ", ") + ")"
	}
}
