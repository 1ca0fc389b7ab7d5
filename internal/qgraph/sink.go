package qgraph

import "fmt"

// RowSinkKind enumerates the shapes a consumer accepts projected data in.
type RowSinkKind int

const (
	// SinkAll injects all projected rows as a selector set.
	SinkAll RowSinkKind = iota

	// SinkExactlyOne is SinkAll with the additional requirement that the
	// source produced exactly one row.
	SinkExactlyOne

	// SinkAtMostOne is SinkAll allowing zero or one source rows.
	SinkAtMostOne

	// SinkSingle injects a single optional value, not wrapped in a list.
	SinkSingle

	// SinkAllFilter converts the projected fields into a filter predicate.
	SinkAllFilter

	// SinkExactlyOneFilter is SinkAllFilter requiring exactly one row.
	SinkExactlyOneFilter

	// SinkExactlyOneWriteArgs merges the projected fields into the write
	// arguments of the destination at a named field.
	SinkExactlyOneWriteArgs

	// SinkDiscard drops the value; only the edge's expectation matters.
	SinkDiscard
)

// RowSink describes how projected data lands in the destination node.
type RowSink struct {
	Kind RowSinkKind

	// Field names the write argument the projection merges into.
	// Only meaningful for SinkExactlyOneWriteArgs.
	Field string
}

// RequiresUniqueRow reports whether the sink demands exactly one source
// row. Such dependencies get a Unique wrapper around the source binding.
func (s RowSink) RequiresUniqueRow() bool {
	switch s.Kind {
	case SinkExactlyOne, SinkExactlyOneFilter, SinkExactlyOneWriteArgs:
		return true
	default:
		return false
	}
}

// ScalarPlaceholder reports whether injected placeholders keep the
// selected field's scalar type. All other sinks promote the type to a
// list, since the consumer accepts multiple rows.
func (s RowSink) ScalarPlaceholder() bool {
	return s.Kind == SinkSingle || s.RequiresUniqueRow()
}

func (k RowSinkKind) String() string {
	switch k {
	case SinkAll:
		return "all"
	case SinkExactlyOne:
		return "exactlyOne"
	case SinkAtMostOne:
		return "atMostOne"
	case SinkSingle:
		return "single"
	case SinkAllFilter:
		return "allFilter"
	case SinkExactlyOneFilter:
		return "exactlyOneFilter"
	case SinkExactlyOneWriteArgs:
		return "exactlyOneWriteArgs"
	case SinkDiscard:
		return "discard"
	default:
		return fmt.Sprintf("RowSinkKind(%d)", int(k))
	}
}

// ParseRowSinkKind parses the plan-document spelling of a sink kind.
func ParseRowSinkKind(s string) (RowSinkKind, bool) {
	switch s {
	case "all":
		return SinkAll, true
	case "exactlyOne":
		return SinkExactlyOne, true
	case "atMostOne":
		return SinkAtMostOne, true
	case "single":
		return SinkSingle, true
	case "allFilter":
		return SinkAllFilter, true
	case "exactlyOneFilter":
		return SinkExactlyOneFilter, true
	case "exactlyOneWriteArgs":
		return SinkExactlyOneWriteArgs, true
	case "discard":
		return SinkDiscard, true
	default:
		return 0, false
	}
}

// DataRule is a sealed row-count assertion attached to edges and carried
// into Validate and If expressions.
type DataRule interface {
	dataRule()
	String() string
}

// RowCountEq requires the observed row count to equal the given value.
type RowCountEq int64

func (RowCountEq) dataRule() {}

func (r RowCountEq) String() string { return fmt.Sprintf("rowCountEq(%d)", int64(r)) }

// RowCountNeq requires the observed row count to differ from the value.
type RowCountNeq int64

func (RowCountNeq) dataRule() {}

func (r RowCountNeq) String() string { return fmt.Sprintf("rowCountNeq(%d)", int64(r)) }

// AffectedRowCountEq requires the write's affected-row count to equal
// the given value.
type AffectedRowCountEq int64

func (AffectedRowCountEq) dataRule() {}

func (r AffectedRowCountEq) String() string { return fmt.Sprintf("affectedRowCountEq(%d)", int64(r)) }

// Never always fails. Used for branches that must be unreachable.
type Never struct{}

func (Never) dataRule() {}

func (Never) String() string { return "never" }
