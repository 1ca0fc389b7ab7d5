package expr

import "github.com/inkwell-db/inkwell/internal/qvalue"

// ResultKind enumerates the shapes a result structure can take.
type ResultKind int

const (
	// ResultObject reshapes each row into a record of named fields.
	ResultObject ResultKind = iota

	// ResultValue passes a single scalar column through.
	ResultValue

	// ResultCount exposes the affected-row count of a write.
	ResultCount
)

// ResultNode describes how raw rows must be reshaped into the nested
// response shape. Produced once by the result-structure mapper and
// consumed by the root DataMap.
type ResultNode struct {
	Kind   ResultKind
	Name   string
	Fields []ResultField
}

// ResultField is one field of an object-shaped result. Nested is set for
// fields carrying a joined child relation.
type ResultField struct {
	Name   string
	Type   qvalue.FieldType
	Nested *ResultNode
}
