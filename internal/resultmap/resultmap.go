// Package resultmap derives the serialization structure of a compiled
// program from the graph's designated result nodes. It runs before the
// destructive translation walk, since it needs to read node contents the
// walk will consume.
package resultmap

import (
	"fmt"
	"sort"

	"github.com/inkwell-db/inkwell/internal/expr"
	"github.com/inkwell-db/inkwell/internal/qgraph"
	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// Build maps the graph's result nodes to a result structure plus the
// enum vocabularies the structure references. A nil structure means the
// program's raw output needs no reshaping and no DataMap is emitted.
//
// When several result nodes exist they are alternatives of one union:
// the first one that yields a structure defines the shape for all.
func Build(g *qgraph.Graph) (*expr.ResultNode, map[string][]string, error) {
	for _, id := range g.ResultNodes() {
		content, err := g.NodeContent(id)
		if err != nil {
			return nil, nil, fmt.Errorf("result node %d: %w", int(id), err)
		}

		qn, ok := content.(*qgraph.QueryNode)
		if !ok {
			// Flow nodes relay a prior binding; the raw value passes
			// through unshaped.
			continue
		}

		structure, enums := fromQuery(qn.Query)
		if structure != nil {
			return structure, enums, nil
		}
	}
	return nil, nil, nil
}

// fromQuery derives the structure of one query's output. Writes without
// declared result columns expose their affected-row count; aggregates
// expose a single value; everything else is an object per row.
func fromQuery(q *qgraph.Query) (*expr.ResultNode, map[string][]string) {
	if q.Op == qgraph.OpAggregate {
		return &expr.ResultNode{Kind: expr.ResultValue, Name: "count"}, nil
	}

	if len(q.Returning) == 0 {
		if q.Op.Reads() {
			return nil, nil
		}
		return &expr.ResultNode{Kind: expr.ResultCount, Name: q.Model}, nil
	}

	enums := make(map[string][]string)
	fields := make([]expr.ResultField, 0, len(q.Returning))
	for _, name := range q.Returning {
		ft := q.FieldType(name)
		if ft.Kind == qvalue.KindEnum && len(ft.Enum) > 0 {
			key := enumKey(q.Model, name)
			enums[key] = append([]string(nil), ft.Enum...)
		}
		fields = append(fields, expr.ResultField{Name: name, Type: ft})
	}

	if len(enums) == 0 {
		enums = nil
	}
	return &expr.ResultNode{Kind: expr.ResultObject, Name: q.Model, Fields: fields}, enums
}

// enumKey names an enum vocabulary in the DataMap's enum table.
func enumKey(model, field string) string {
	return model + "." + field
}

// FieldNames returns the sorted field names of an object structure.
// Handy for callers that need a deterministic column ordering.
func FieldNames(n *expr.ResultNode) []string {
	if n == nil || n.Kind != expr.ResultObject {
		return nil
	}
	out := make([]string, 0, len(n.Fields))
	for _, f := range n.Fields {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}
