package expr

import (
	"github.com/inkwell-db/inkwell/internal/qgraph"
	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// Expression is the sealed interface over the compiler's target language.
// An Expression tree is immutable once built; the translator guarantees
// by construction that every Get names a binding introduced by an
// enclosing Let.
//
// Only types in this package implement Expression, which keeps the
// interpreter's and printer's type switches exhaustive.
type Expression interface {
	expression()
}

// Seq evaluates expressions in order for their side effects and yields
// the value of the last one.
type Seq struct {
	Items []Expression
}

func (Seq) expression() {}

// Get yields the value of a named binding.
type Get struct {
	Name string
}

func (Get) expression() {}

// Binding names a sub-computation. Names derive deterministically from
// node identity so that independently generated Get references match.
type Binding struct {
	Name string
	Expr Expression
}

// Let introduces bindings, all visible in Body.
type Let struct {
	Bindings []Binding
	Body     Expression
}

func (Let) expression() {}

// GetFirstNonEmpty evaluates the named bindings in order and yields the
// first non-empty value. Models union-shaped results where only one of
// several alternative subgraphs actually produced rows.
type GetFirstNonEmpty struct {
	Names []string
}

func (GetFirstNonEmpty) expression() {}

// Query is a leaf read operation against the database.
type Query struct {
	DB *DBQuery
}

func (Query) expression() {}

// Execute is a leaf write operation; its value is the affected-row count.
type Execute struct {
	DB *DBQuery
}

func (Execute) expression() {}

// Reverse yields the records of Expr in reverse order.
type Reverse struct {
	Expr Expression
}

func (Reverse) expression() {}

// Sum adds the numeric results of the contained expressions.
type Sum struct {
	Exprs []Expression
}

func (Sum) expression() {}

// Concat concatenates the record lists of the contained expressions.
type Concat struct {
	Exprs []Expression
}

func (Concat) expression() {}

// Unique asserts that Expr yields at most one record and unwraps it.
type Unique struct {
	Expr Expression
}

func (Unique) expression() {}

// Required asserts that Expr yields a non-empty value.
type Required struct {
	Expr Expression
}

func (Required) expression() {}

// Join nests child record sets under parent records, matching on
// equality of field tuples.
type Join struct {
	Parent   Expression
	Children []JoinChild
}

func (Join) expression() {}

// JoinChild is one joined child relation. On pairs parent fields with
// child fields; ParentField names the record field the children nest
// under. Unique children attach a single record instead of a list.
type JoinChild struct {
	Child       Expression
	On          [][2]string
	ParentField string
	Unique      bool
}

// MapField projects one field out of a record set.
type MapField struct {
	Field   string
	Records Expression
}

func (MapField) expression() {}

// Transaction marks the wrapped program for execution inside one
// database transaction. A marker only: atomicity is the executor's job.
type Transaction struct {
	Expr Expression
}

func (Transaction) expression() {}

// DataMap reshapes the raw output of Expr per a result structure.
type DataMap struct {
	Expr      Expression
	Structure *ResultNode
	Enums     map[string][]string
}

func (DataMap) expression() {}

// Validate asserts row-count rules over the value of Expr, failing the
// whole program with the given error identifier when violated.
type Validate struct {
	Expr    Expression
	Rules   []qgraph.DataRule
	ErrorID string
}

func (Validate) expression() {}

// If branches on a row-count rule evaluated over Value.
type If struct {
	Value Expression
	Rule  qgraph.DataRule
	Then  Expression
	Else  Expression
}

func (If) expression() {}

// Unit is the no-op expression; it yields an empty value.
type Unit struct{}

func (Unit) expression() {}

// Diff yields the records of From that do not appear in To.
type Diff struct {
	From Expression
	To   Expression
}

func (Diff) expression() {}

// DistinctBy removes records duplicated on the given fields, keeping
// the first occurrence.
type DistinctBy struct {
	Expr   Expression
	Fields []string
}

func (DistinctBy) expression() {}

// Pagination is a skip/take window over a record set. Take < 0 means
// unbounded.
type Pagination struct {
	Skip int64
	Take int64
}

// Paginate applies a pagination window to the records of Expr.
type Paginate struct {
	Expr       Expression
	Pagination Pagination
}

func (Paginate) expression() {}

// ExtendRecord adds computed field values to every record of Expr.
type ExtendRecord struct {
	Expr   Expression
	Values []qgraph.FieldValue
}

func (ExtendRecord) expression() {}

// DBQuery is a dialect-specific statement produced by a query builder:
// statement text, ordered parameters, and the declared result columns.
type DBQuery struct {
	Statement string
	Params    []qvalue.Value
	Columns   []string
}
