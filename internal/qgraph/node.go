package qgraph

// NodeContent is a sealed interface over the kinds of node a query graph
// holds. Only types in this package implement it, so the translator's
// dispatch is an exhaustive type switch.
type NodeContent interface {
	nodeContent()
}

// QueryNode carries one primitive database operation.
type QueryNode struct {
	Query *Query
}

func (*QueryNode) nodeContent() {}

// EmptyNode is a pure grouping point with no operation of its own.
type EmptyNode struct{}

func (*EmptyNode) nodeContent() {}

// IfNode branches on a row-count rule evaluated over a prior value.
// Data names the binding tested; it is usually filled in by dependency
// injection from the node's incoming projected edge.
type IfNode struct {
	Rule DataRule
	Data string
}

func (*IfNode) nodeContent() {}

// ReturnNode yields a prior binding as the node's own output.
// Binding is filled in by dependency injection when left empty.
type ReturnNode struct {
	Binding string
}

func (*ReturnNode) nodeContent() {}

// DiffDirection selects which operand of a set difference is subtracted
// from which.
type DiffDirection int

const (
	// DiffLeftToRight computes left minus right.
	DiffLeftToRight DiffDirection = iota

	// DiffRightToLeft computes right minus left.
	DiffRightToLeft
)

// DiffNode computes the set difference of two prior result sets.
// Left and Right name bindings; empty slots are filled in order by
// dependency injection from the node's incoming projected edges.
type DiffNode struct {
	Direction DiffDirection
	Left      string
	Right     string
}

func (*DiffNode) nodeContent() {}

// DependencyKind is a sealed interface over the edge tags describing
// how (if at all) data flows between two nodes.
type DependencyKind interface {
	dependencyKind()
}

// ExecutionOrder constrains ordering only; no value flows.
type ExecutionOrder struct{}

func (ExecutionOrder) dependencyKind() {}

// ProjectedDependency projects a field selection of the source's result
// into the destination's input, landing in the sink's shape. An optional
// expectation gates execution on the source's row count.
type ProjectedDependency struct {
	Selection   []string
	Sink        RowSink
	Expectation DataRule // nil when the edge carries no expectation
}

func (ProjectedDependency) dependencyKind() {}

// DataDependency discards the source's value; only the expectation
// matters. A pure guard edge.
type DataDependency struct {
	Expectation DataRule // nil when the edge carries no expectation
}

func (DataDependency) dependencyKind() {}

// ThenEdge marks the taken branch of an IfNode.
type ThenEdge struct{}

func (ThenEdge) dependencyKind() {}

// ElseEdge marks the fallback branch of an IfNode.
type ElseEdge struct{}

func (ElseEdge) dependencyKind() {}
