// Package plan compiles CUE plan documents into query graphs. A plan
// document declares the models a request touches, the primitive
// operation nodes, and the dependency edges between them; compiling one
// yields the graph the translator consumes.
//
// Uses CUE SDK's Go API directly (not CLI subprocess).
package plan

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/inkwell-db/inkwell/internal/qgraph"
	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// Document is one compiled plan: the graph plus the model declarations
// it was built against.
type Document struct {
	Graph  *qgraph.Graph
	Models map[string]Model
}

// Model declares the field types of one table.
type Model struct {
	Fields map[string]qvalue.FieldType
}

// Load reads and compiles a plan document from a file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan document: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	return Compile(v.LookupPath(cue.ParsePath("plan")))
}

// Compile parses a CUE value into a plan document.
//
// The CUE value should be the plan struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`plan: { nodes: [...], edges: [...] }`)
//	doc, err := Compile(v.LookupPath(cue.ParsePath("plan")))
func Compile(v cue.Value) (*Document, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "plan", Message: "plan struct is required"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	models, err := parseModels(v)
	if err != nil {
		return nil, err
	}

	g := qgraph.New()

	if txVal := v.LookupPath(cue.ParsePath("transactional")); txVal.Exists() {
		tx, err := txVal.Bool()
		if err != nil {
			return nil, &CompileError{Field: "transactional", Message: "must be a boolean", Pos: txVal.Pos()}
		}
		if tx {
			g.FlagTransactional()
		}
	}

	// Node ids are assigned in document order; edge order is evaluation
	// order, so both sections are lists rather than structs.
	ids, err := parseNodes(v, g, models)
	if err != nil {
		return nil, err
	}

	if err := parseEdges(v, g, ids); err != nil {
		return nil, err
	}

	return &Document{Graph: g, Models: models}, nil
}

// parseModels extracts the model declarations.
func parseModels(v cue.Value) (map[string]Model, error) {
	models := make(map[string]Model)

	modelsVal := v.LookupPath(cue.ParsePath("models"))
	if !modelsVal.Exists() {
		return models, nil
	}

	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		fields, err := parseFields(iter.Value(), name)
		if err != nil {
			return nil, err
		}
		models[name] = Model{Fields: fields}
	}
	return models, nil
}

func parseFields(v cue.Value, model string) (map[string]qvalue.FieldType, error) {
	fields := make(map[string]qvalue.FieldType)

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("models.%s", model),
			Message: "model requires 'fields'",
			Pos:     v.Pos(),
		}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		fieldName := iter.Label()
		ft, err := parseFieldType(iter.Value(), fmt.Sprintf("models.%s.fields.%s", model, fieldName))
		if err != nil {
			return nil, err
		}
		fields[fieldName] = ft
	}
	return fields, nil
}

// parseFieldType accepts either a bare kind string ("string", "int",
// "datetime", ...) or a struct form carrying enum values and listness.
func parseFieldType(v cue.Value, field string) (qvalue.FieldType, error) {
	if s, err := v.String(); err == nil {
		kind, ok := qvalue.ParseTypeKind(s)
		if !ok {
			return qvalue.FieldType{}, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("unknown type %q", s),
				Pos:     v.Pos(),
			}
		}
		return qvalue.FieldType{Kind: kind}, nil
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return qvalue.FieldType{}, &CompileError{
			Field:   field,
			Message: "field type must be a kind string or a struct with 'kind'",
			Pos:     v.Pos(),
		}
	}
	kindStr, err := kindVal.String()
	if err != nil {
		return qvalue.FieldType{}, formatCUEError(err)
	}
	kind, ok := qvalue.ParseTypeKind(kindStr)
	if !ok {
		return qvalue.FieldType{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unknown type %q", kindStr),
			Pos:     kindVal.Pos(),
		}
	}

	ft := qvalue.FieldType{Kind: kind}

	if listVal := v.LookupPath(cue.ParsePath("list")); listVal.Exists() {
		list, err := listVal.Bool()
		if err != nil {
			return qvalue.FieldType{}, formatCUEError(err)
		}
		ft.List = list
	}

	if valuesVal := v.LookupPath(cue.ParsePath("values")); valuesVal.Exists() {
		iter, err := valuesVal.List()
		if err != nil {
			return qvalue.FieldType{}, formatCUEError(err)
		}
		for iter.Next() {
			member, err := iter.Value().String()
			if err != nil {
				return qvalue.FieldType{}, formatCUEError(err)
			}
			ft.Enum = append(ft.Enum, member)
		}
	}

	return ft, nil
}

// parseNodes builds the graph's nodes in document order and returns the
// label-to-id mapping edges resolve against.
func parseNodes(v cue.Value, g *qgraph.Graph, models map[string]Model) (map[string]qgraph.NodeID, error) {
	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if !nodesVal.Exists() {
		return nil, &CompileError{Field: "nodes", Message: "plan requires 'nodes'", Pos: v.Pos()}
	}

	ids := make(map[string]qgraph.NodeID)

	iter, err := nodesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for index := 0; iter.Next(); index++ {
		nodeVal := iter.Value()
		field := fmt.Sprintf("nodes[%d]", index)

		label, err := requiredString(nodeVal, "id", field)
		if err != nil {
			return nil, err
		}
		if _, dup := ids[label]; dup {
			return nil, &CompileError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate node id %q", label),
				Pos:     nodeVal.Pos(),
			}
		}

		content, result, err := parseNode(nodeVal, field, models)
		if err != nil {
			return nil, err
		}

		id := g.AddNode(content)
		if result {
			g.MarkResult(id)
		}
		ids[label] = id
	}

	return ids, nil
}

func parseNode(v cue.Value, field string, models map[string]Model) (qgraph.NodeContent, bool, error) {
	kind, err := requiredString(v, "kind", field)
	if err != nil {
		return nil, false, err
	}

	result := false
	if resVal := v.LookupPath(cue.ParsePath("result")); resVal.Exists() {
		result, err = resVal.Bool()
		if err != nil {
			return nil, false, formatCUEError(err)
		}
	}

	switch kind {
	case "query":
		q, err := parseQuery(v, field, models)
		if err != nil {
			return nil, false, err
		}
		return &qgraph.QueryNode{Query: q}, result, nil

	case "empty":
		return &qgraph.EmptyNode{}, result, nil

	case "if":
		ruleVal := v.LookupPath(cue.ParsePath("rule"))
		if !ruleVal.Exists() {
			return nil, false, &CompileError{Field: field + ".rule", Message: "if node requires 'rule'", Pos: v.Pos()}
		}
		rule, err := parseRule(ruleVal, field+".rule")
		if err != nil {
			return nil, false, err
		}
		node := &qgraph.IfNode{Rule: rule}
		if dataVal := v.LookupPath(cue.ParsePath("data")); dataVal.Exists() {
			node.Data, err = dataVal.String()
			if err != nil {
				return nil, false, formatCUEError(err)
			}
		}
		return node, result, nil

	case "return":
		node := &qgraph.ReturnNode{}
		if bindVal := v.LookupPath(cue.ParsePath("binding")); bindVal.Exists() {
			node.Binding, err = bindVal.String()
			if err != nil {
				return nil, false, formatCUEError(err)
			}
		}
		return node, result, nil

	case "diff":
		node := &qgraph.DiffNode{}
		dir, err := requiredString(v, "direction", field)
		if err != nil {
			return nil, false, err
		}
		switch dir {
		case "leftToRight":
			node.Direction = qgraph.DiffLeftToRight
		case "rightToLeft":
			node.Direction = qgraph.DiffRightToLeft
		default:
			return nil, false, &CompileError{
				Field:   field + ".direction",
				Message: fmt.Sprintf("invalid direction %q, must be \"leftToRight\" or \"rightToLeft\"", dir),
				Pos:     v.Pos(),
			}
		}
		return node, result, nil

	default:
		return nil, false, &CompileError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("unknown node kind %q", kind),
			Pos:     v.Pos(),
		}
	}
}

func parseQuery(v cue.Value, field string, models map[string]Model) (*qgraph.Query, error) {
	model, err := requiredString(v, "model", field)
	if err != nil {
		return nil, err
	}

	opStr, err := requiredString(v, "op", field)
	if err != nil {
		return nil, err
	}
	op, ok := qgraph.ParseOperation(opStr)
	if !ok {
		return nil, &CompileError{
			Field:   field + ".op",
			Message: fmt.Sprintf("unknown operation %q", opStr),
			Pos:     v.Pos(),
		}
	}

	q := &qgraph.Query{Model: model, Op: op}
	if m, declared := models[model]; declared {
		q.Fields = m.Fields
	}

	if filterVal := v.LookupPath(cue.ParsePath("filter")); filterVal.Exists() {
		q.Filter, err = parseFilter(filterVal, field+".filter")
		if err != nil {
			return nil, err
		}
	}

	if argsVal := v.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
		iter, err := argsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			val, err := parseValue(iter.Value())
			if err != nil {
				return nil, err
			}
			q.Args = append(q.Args, qgraph.FieldValue{Field: iter.Label(), Value: val})
		}
	}

	if retVal := v.LookupPath(cue.ParsePath("returning")); retVal.Exists() {
		iter, err := retVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			col, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			q.Returning = append(q.Returning, col)
		}
	}

	if err := q.NormalizeDateTimes(); err != nil {
		return nil, &CompileError{
			Field:   field + ".args",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}

	return q, nil
}

// parseFilter accepts {field, equals}, {field, in}, and {and: [...]}.
func parseFilter(v cue.Value, field string) (qgraph.Filter, error) {
	if andVal := v.LookupPath(cue.ParsePath("and")); andVal.Exists() {
		iter, err := andVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var filters []qgraph.Filter
		for index := 0; iter.Next(); index++ {
			f, err := parseFilter(iter.Value(), fmt.Sprintf("%s.and[%d]", field, index))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		}
		return qgraph.And{Filters: filters}, nil
	}

	name, err := requiredString(v, "field", field)
	if err != nil {
		return nil, err
	}

	if eqVal := v.LookupPath(cue.ParsePath("equals")); eqVal.Exists() {
		val, err := parseValue(eqVal)
		if err != nil {
			return nil, err
		}
		return qgraph.Equals{Field: name, Value: val}, nil
	}

	if inVal := v.LookupPath(cue.ParsePath("in")); inVal.Exists() {
		val, err := parseValue(inVal)
		if err != nil {
			return nil, err
		}
		return qgraph.In{Field: name, Value: val}, nil
	}

	return nil, &CompileError{
		Field:   field,
		Message: "filter requires 'equals', 'in', or 'and'",
		Pos:     v.Pos(),
	}
}

// parseRule accepts {rowCountEq: n}, {rowCountNeq: n},
// {affectedRowCountEq: n}, and the string "never".
func parseRule(v cue.Value, field string) (qgraph.DataRule, error) {
	if s, err := v.String(); err == nil {
		if s == "never" {
			return qgraph.Never{}, nil
		}
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unknown rule %q", s),
			Pos:     v.Pos(),
		}
	}

	for _, candidate := range []struct {
		key  string
		make func(int64) qgraph.DataRule
	}{
		{"rowCountEq", func(n int64) qgraph.DataRule { return qgraph.RowCountEq(n) }},
		{"rowCountNeq", func(n int64) qgraph.DataRule { return qgraph.RowCountNeq(n) }},
		{"affectedRowCountEq", func(n int64) qgraph.DataRule { return qgraph.AffectedRowCountEq(n) }},
	} {
		if ruleVal := v.LookupPath(cue.ParsePath(candidate.key)); ruleVal.Exists() {
			n, err := ruleVal.Int64()
			if err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("%s.%s", field, candidate.key),
					Message: "rule argument must be an integer",
					Pos:     ruleVal.Pos(),
				}
			}
			return candidate.make(n), nil
		}
	}

	return nil, &CompileError{
		Field:   field,
		Message: "rule requires 'rowCountEq', 'rowCountNeq', 'affectedRowCountEq', or \"never\"",
		Pos:     v.Pos(),
	}
}

// parseEdges adds the graph's edges in document order, resolving node
// labels against the id mapping.
func parseEdges(v cue.Value, g *qgraph.Graph, ids map[string]qgraph.NodeID) error {
	edgesVal := v.LookupPath(cue.ParsePath("edges"))
	if !edgesVal.Exists() {
		return nil
	}

	iter, err := edgesVal.List()
	if err != nil {
		return formatCUEError(err)
	}
	for index := 0; iter.Next(); index++ {
		edgeVal := iter.Value()
		field := fmt.Sprintf("edges[%d]", index)

		from, err := resolveNode(edgeVal, "from", field, ids)
		if err != nil {
			return err
		}
		to, err := resolveNode(edgeVal, "to", field, ids)
		if err != nil {
			return err
		}

		kind, err := parseEdgeKind(edgeVal, field)
		if err != nil {
			return err
		}

		g.AddEdge(from, to, kind)
	}
	return nil
}

func parseEdgeKind(v cue.Value, field string) (qgraph.DependencyKind, error) {
	kind, err := requiredString(v, "kind", field)
	if err != nil {
		return nil, err
	}

	var expectation qgraph.DataRule
	if expVal := v.LookupPath(cue.ParsePath("expect")); expVal.Exists() {
		expectation, err = parseRule(expVal, field+".expect")
		if err != nil {
			return nil, err
		}
	}

	switch kind {
	case "order":
		return qgraph.ExecutionOrder{}, nil

	case "then":
		return qgraph.ThenEdge{}, nil

	case "else":
		return qgraph.ElseEdge{}, nil

	case "data":
		return qgraph.DataDependency{Expectation: expectation}, nil

	case "projected":
		dep := qgraph.ProjectedDependency{Expectation: expectation}

		if fieldsVal := v.LookupPath(cue.ParsePath("fields")); fieldsVal.Exists() {
			iter, err := fieldsVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for iter.Next() {
				name, err := iter.Value().String()
				if err != nil {
					return nil, formatCUEError(err)
				}
				dep.Selection = append(dep.Selection, name)
			}
		}

		sinkStr, err := requiredString(v, "sink", field)
		if err != nil {
			return nil, err
		}
		sinkKind, ok := qgraph.ParseRowSinkKind(sinkStr)
		if !ok {
			return nil, &CompileError{
				Field:   field + ".sink",
				Message: fmt.Sprintf("unknown sink %q", sinkStr),
				Pos:     v.Pos(),
			}
		}
		dep.Sink = qgraph.RowSink{Kind: sinkKind}
		if argVal := v.LookupPath(cue.ParsePath("argField")); argVal.Exists() {
			dep.Sink.Field, err = argVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
		}

		return dep, nil

	default:
		return nil, &CompileError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("unknown edge kind %q", kind),
			Pos:     v.Pos(),
		}
	}
}

func resolveNode(v cue.Value, key, field string, ids map[string]qgraph.NodeID) (qgraph.NodeID, error) {
	label, err := requiredString(v, key, field)
	if err != nil {
		return 0, err
	}
	id, ok := ids[label]
	if !ok {
		return 0, &CompileError{
			Field:   fmt.Sprintf("%s.%s", field, key),
			Message: fmt.Sprintf("unknown node %q", label),
			Pos:     v.Pos(),
		}
	}
	return id, nil
}

// parseValue converts a concrete CUE scalar or list into a Value.
func parseValue(v cue.Value) (qvalue.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return qvalue.Null{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return qvalue.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return qvalue.Int(n), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return qvalue.Float(f), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return qvalue.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := qvalue.List{}
		for iter.Next() {
			elem, err := parseValue(iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind %s", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

func requiredString(v cue.Value, key, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(key))
	if !val.Exists() {
		return "", &CompileError{
			Field:   fmt.Sprintf("%s.%s", field, key),
			Message: fmt.Sprintf("'%s' is required", key),
			Pos:     v.Pos(),
		}
	}
	s, err := val.String()
	if err != nil {
		return "", &CompileError{
			Field:   fmt.Sprintf("%s.%s", field, key),
			Message: fmt.Sprintf("'%s' must be a string", key),
			Pos:     val.Pos(),
		}
	}
	return s, nil
}
