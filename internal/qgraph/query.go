package qgraph

import (
	"fmt"

	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// Operation enumerates the primitive database operations a Query node can
// carry. The split between reads and writes decides whether the compiled
// leaf is a Query or an Execute expression.
type Operation int

const (
	OpFindUnique Operation = iota
	OpFindMany
	OpCreate
	OpUpdate
	OpUpdateMany
	OpDelete
	OpAggregate
)

// Reads reports whether the operation returns rows rather than an
// affected-row count.
func (op Operation) Reads() bool {
	switch op {
	case OpFindUnique, OpFindMany, OpAggregate:
		return true
	default:
		return false
	}
}

// String returns the plan-document spelling of the operation.
func (op Operation) String() string {
	switch op {
	case OpFindUnique:
		return "findUnique"
	case OpFindMany:
		return "findMany"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpUpdateMany:
		return "updateMany"
	case OpDelete:
		return "delete"
	case OpAggregate:
		return "aggregate"
	default:
		return fmt.Sprintf("Operation(%d)", int(op))
	}
}

// ParseOperation parses the plan-document spelling of an operation.
func ParseOperation(s string) (Operation, bool) {
	switch s {
	case "findUnique":
		return OpFindUnique, true
	case "findMany":
		return OpFindMany, true
	case "create":
		return OpCreate, true
	case "update":
		return OpUpdate, true
	case "updateMany":
		return OpUpdateMany, true
	case "delete":
		return OpDelete, true
	case "aggregate":
		return OpAggregate, true
	default:
		return 0, false
	}
}

// FieldValue pairs a model field with a value. Used for write arguments,
// selector sets and filter leaves.
type FieldValue struct {
	Field string
	Value qvalue.Value
}

// SelectorSet is one combination of fields identifying rows the query
// must be constrained to. Written by the translator when a projected
// dependency lands in a selector sink.
type SelectorSet []FieldValue

// Filter is a sealed predicate tree over a query's rows.
// Only types in this package implement it.
type Filter interface {
	filterNode()
}

// Equals filters rows where a field equals a value.
type Equals struct {
	Field string
	Value qvalue.Value
}

func (Equals) filterNode() {}

// In filters rows where a field is contained in a list value.
// The list is commonly a placeholder resolved at execution time.
type In struct {
	Field string
	Value qvalue.Value
}

func (In) filterNode() {}

// And requires all contained filters to hold. An empty And is always true.
type And struct {
	Filters []Filter
}

func (And) filterNode() {}

// Query is one primitive database operation, as produced by the upstream
// planner. The translator mutates it in place when injecting projected
// dependencies; the query builder then lowers it to a concrete statement.
type Query struct {
	Model string
	Op    Operation

	// Filter is the user-supplied predicate, possibly extended by
	// filter-sink injections.
	Filter Filter

	// Args are the write arguments for create/update operations.
	Args []FieldValue

	// Returning lists the fields the operation must return.
	Returning []string

	// Fields carries the target model's field types. Consulted for
	// placeholder typing and date/time normalization of write args.
	Fields map[string]qvalue.FieldType

	// SelectorSets is written by selector-sink injections (All,
	// ExactlyOne, AtMostOne): a singleton list of projected field sets.
	SelectorSets []SelectorSet

	// Selector is written by the Single sink: one optional field set,
	// not wrapped in a list.
	Selector *SelectorSet
}

// FieldType resolves the declared type of a model field. Unknown fields
// default to a plain string type; the builder rejects them later if the
// dialect cannot express the access.
func (q *Query) FieldType(field string) qvalue.FieldType {
	if t, ok := q.Fields[field]; ok {
		return t
	}
	return qvalue.FieldType{Kind: qvalue.KindString}
}

// MergeArg sets or overwrites a write argument.
func (q *Query) MergeArg(field string, v qvalue.Value) {
	for i := range q.Args {
		if q.Args[i].Field == field {
			q.Args[i].Value = v
			return
		}
	}
	q.Args = append(q.Args, FieldValue{Field: field, Value: v})
}

// NormalizeDateTimes coerces string-typed write arguments for datetime
// fields into UTC DateTime values. Runs after write-args injection so
// injected and planner-supplied timestamps get the same treatment.
func (q *Query) NormalizeDateTimes() error {
	for i, arg := range q.Args {
		if q.FieldType(arg.Field).Kind != qvalue.KindDateTime {
			continue
		}
		s, ok := arg.Value.(qvalue.String)
		if !ok {
			continue
		}
		dt, err := qvalue.NormalizeDateTime(string(s))
		if err != nil {
			return fmt.Errorf("argument %q: %w", arg.Field, err)
		}
		q.Args[i].Value = dt
	}
	return nil
}
