package translate

import (
	"github.com/inkwell-db/inkwell/internal/expr"
	"github.com/inkwell-db/inkwell/internal/qgraph"
	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// processChildWithDependencies translates one child node together with
// the dependency edges arriving at it. Every incoming edge is plucked
// here and remembered for the child's later content transformation;
// expectations become Validate wrappers and projected sources become
// bindings the child's own expression can reference.
func (t *translator) processChildWithDependencies(child qgraph.NodeID) (expr.Expression, error) {
	var parents []parentEdge
	var validations []expr.Expression
	var bindings []expr.Binding

	for _, e := range t.g.IncomingEdges(child) {
		src := t.g.EdgeSource(e)
		kind, err := t.g.PluckEdge(e)
		if err != nil {
			return nil, wrapGraphErr(child, err)
		}
		parents = append(parents, parentEdge{source: src, kind: kind})

		switch dep := kind.(type) {
		case qgraph.DataDependency:
			if dep.Expectation != nil {
				validations = append(validations, expr.Validate{
					Expr:    expr.Get{Name: bindingName(src)},
					Rules:   []qgraph.DataRule{dep.Expectation},
					ErrorID: errorID(src, child),
				})
			}

		case qgraph.ProjectedDependency:
			name := bindingName(src)
			source := expr.Expression(expr.Get{Name: name})
			if dep.Expectation != nil {
				source = expr.Validate{
					Expr:    source,
					Rules:   []qgraph.DataRule{dep.Expectation},
					ErrorID: errorID(src, child),
				}
			}
			if dep.Sink.RequiresUniqueRow() {
				source = expr.Unique{Expr: source}
			}
			// A bare Get rebound to its own name is a no-op; the binding
			// is only emitted when validation or uniqueness changed it.
			if _, plain := source.(expr.Get); !plain {
				bindings = append(bindings, expr.Binding{Name: name, Expr: source})
			}
			if dep.Sink.Kind != qgraph.SinkDiscard {
				for _, field := range dep.Selection {
					bindings = append(bindings, expr.Binding{
						Name: fieldBindingName(src, field),
						Expr: expr.MapField{Field: field, Records: expr.Get{Name: name}},
					})
				}
			}

		case qgraph.ExecutionOrder, qgraph.ThenEdge, qgraph.ElseEdge:
			// Ordering or branch selection only; no value flows.
		}
	}

	t.parents[child] = parents

	childExpr, err := t.translateNode(child)
	if err != nil {
		return nil, err
	}

	if len(bindings) > 0 {
		childExpr = expr.Let{Bindings: bindings, Body: childExpr}
	}
	if len(validations) > 0 {
		return expr.Seq{Items: append(validations, childExpr)}, nil
	}
	return childExpr, nil
}

// transformNode injects the projected dependencies recorded for a node
// into its just-plucked content, directed by each edge's sink. Query
// nodes absorb placeholders into selectors, filters or write arguments;
// flow nodes get their empty data slots filled with binding references.
func (t *translator) transformNode(id qgraph.NodeID, content qgraph.NodeContent) error {
	for _, parent := range t.parents[id] {
		dep, ok := parent.kind.(qgraph.ProjectedDependency)
		if !ok || dep.Sink.Kind == qgraph.SinkDiscard {
			continue
		}

		switch node := content.(type) {
		case *qgraph.QueryNode:
			if err := t.injectIntoQuery(id, node.Query, parent.source, dep); err != nil {
				return err
			}

		case *qgraph.IfNode:
			if node.Data == "" {
				node.Data = placeholderRef(parent.source, dep.Selection)
			}

		case *qgraph.ReturnNode:
			if node.Binding == "" {
				node.Binding = placeholderRef(parent.source, dep.Selection)
			}

		case *qgraph.DiffNode:
			ref := placeholderRef(parent.source, dep.Selection)
			if node.Left == "" {
				node.Left = ref
			} else if node.Right == "" {
				node.Right = ref
			}

		default:
			return graphBuildErr(id, "projected dependency into %T", content)
		}
	}
	return nil
}

// injectIntoQuery lands one projected dependency in a query per its
// sink. Placeholder types follow the destination's declared field types,
// promoted to lists unless the sink guarantees a single row.
func (t *translator) injectIntoQuery(id qgraph.NodeID, q *qgraph.Query, source qgraph.NodeID, dep qgraph.ProjectedDependency) error {
	set := make(qgraph.SelectorSet, 0, len(dep.Selection))
	for _, field := range dep.Selection {
		ft := q.FieldType(field)
		if !dep.Sink.ScalarPlaceholder() {
			ft = ft.AsList()
		}
		set = append(set, qgraph.FieldValue{
			Field: field,
			Value: qvalue.Placeholder{Name: fieldBindingName(source, field), Type: ft},
		})
	}

	switch dep.Sink.Kind {
	case qgraph.SinkAll, qgraph.SinkExactlyOne, qgraph.SinkAtMostOne:
		q.SelectorSets = append(q.SelectorSets, set)

	case qgraph.SinkSingle:
		q.Selector = &set

	case qgraph.SinkAllFilter, qgraph.SinkExactlyOneFilter:
		mergeIntoFilter(q, set, dep.Sink.ScalarPlaceholder())

	case qgraph.SinkExactlyOneWriteArgs:
		for _, fv := range set {
			field := fv.Field
			if dep.Sink.Field != "" {
				field = dep.Sink.Field
			}
			q.MergeArg(field, fv.Value)
		}
		if err := q.NormalizeDateTimes(); err != nil {
			return &Error{Code: ErrCodeQueryBuild, Message: "write argument normalization failed", Node: id, Err: err}
		}

	default:
		return graphBuildErr(id, "unsupported sink %s for query node", dep.Sink.Kind)
	}
	return nil
}

// mergeIntoFilter extends the query's filter with one predicate per
// projected field. Scalar placeholders compare with equality, list
// placeholders with membership.
func mergeIntoFilter(q *qgraph.Query, set qgraph.SelectorSet, scalar bool) {
	filters := make([]qgraph.Filter, 0, len(set))
	for _, fv := range set {
		if scalar {
			filters = append(filters, qgraph.Equals{Field: fv.Field, Value: fv.Value})
		} else {
			filters = append(filters, qgraph.In{Field: fv.Field, Value: fv.Value})
		}
	}

	var extra qgraph.Filter
	if len(filters) == 1 {
		extra = filters[0]
	} else {
		extra = qgraph.And{Filters: filters}
	}

	if q.Filter == nil {
		q.Filter = extra
		return
	}
	q.Filter = qgraph.And{Filters: []qgraph.Filter{q.Filter, extra}}
}

// placeholderRef names the binding a flow node's data slot should read:
// the single projected field when there is exactly one, otherwise the
// source's whole result.
func placeholderRef(source qgraph.NodeID, selection []string) string {
	if len(selection) == 1 {
		return fieldBindingName(source, selection[0])
	}
	return bindingName(source)
}
