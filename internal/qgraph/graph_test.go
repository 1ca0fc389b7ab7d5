package qgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryNode(model string, op Operation) *QueryNode {
	return &QueryNode{Query: &Query{Model: model, Op: op}}
}

func TestGraph_AddAndReadNodes(t *testing.T) {
	g := New()

	a := g.AddNode(queryNode("User", OpCreate))
	b := g.AddNode(&EmptyNode{})

	content, err := g.NodeContent(a)
	require.NoError(t, err)
	qn, ok := content.(*QueryNode)
	require.True(t, ok)
	assert.Equal(t, "User", qn.Query.Model)

	content, err = g.NodeContent(b)
	require.NoError(t, err)
	assert.IsType(t, &EmptyNode{}, content)
}

func TestGraph_PluckNodeTombstones(t *testing.T) {
	g := New()
	id := g.AddNode(&EmptyNode{})

	_, err := g.PluckNode(id)
	require.NoError(t, err)

	// Second access fails with a typed error rather than a panic.
	_, err = g.NodeContent(id)
	require.Error(t, err)
	assert.True(t, IsBuildError(err))

	_, err = g.PluckNode(id)
	assert.Error(t, err)
}

func TestGraph_IDsStableAcrossPlucks(t *testing.T) {
	g := New()
	a := g.AddNode(&EmptyNode{})
	b := g.AddNode(&EmptyNode{})

	_, err := g.PluckNode(a)
	require.NoError(t, err)

	// b's id still resolves after a is gone.
	content, err := g.NodeContent(b)
	require.NoError(t, err)
	assert.IsType(t, &EmptyNode{}, content)
}

func TestGraph_UnknownIDs(t *testing.T) {
	g := New()

	_, err := g.NodeContent(NodeID(99))
	assert.True(t, IsBuildError(err))

	_, err = g.EdgeContent(EdgeID(99))
	assert.True(t, IsBuildError(err))
}

func TestGraph_EdgeOrderIsInsertionOrder(t *testing.T) {
	g := New()
	root := g.AddNode(&EmptyNode{})
	c1 := g.AddNode(&EmptyNode{})
	c2 := g.AddNode(&EmptyNode{})
	c3 := g.AddNode(&EmptyNode{})

	g.AddEdge(root, c2, ExecutionOrder{})
	g.AddEdge(root, c1, ExecutionOrder{})
	g.AddEdge(root, c3, ExecutionOrder{})

	pairs := g.ChildPairs(root)
	require.Len(t, pairs, 3)
	assert.Equal(t, c2, pairs[0].Node)
	assert.Equal(t, c1, pairs[1].Node)
	assert.Equal(t, c3, pairs[2].Node)
}

func TestGraph_PluckEdgeRemovesFromIncoming(t *testing.T) {
	g := New()
	a := g.AddNode(&EmptyNode{})
	b := g.AddNode(&EmptyNode{})
	e := g.AddEdge(a, b, ExecutionOrder{})

	require.Len(t, g.IncomingEdges(b), 1)

	_, err := g.PluckEdge(e)
	require.NoError(t, err)
	assert.Empty(t, g.IncomingEdges(b))

	_, err = g.PluckEdge(e)
	assert.True(t, IsBuildError(err))
}

func TestGraph_RootNodes(t *testing.T) {
	g := New()
	a := g.AddNode(&EmptyNode{})
	b := g.AddNode(&EmptyNode{})
	c := g.AddNode(&EmptyNode{})

	g.AddEdge(a, b, ExecutionOrder{})
	g.AddEdge(a, c, ExecutionOrder{})

	roots := g.RootNodes()
	assert.Equal(t, []NodeID{a}, roots)
}

func TestGraph_DirectChildPairs_SkipsDiamondChildren(t *testing.T) {
	// a -> b -> d and a -> d: d has parents {a, b}. b is not an ancestor
	// of a, so d is not a direct child of a; it is a direct child of b
	// because d's other parent a is an ancestor of b.
	g := New()
	a := g.AddNode(&EmptyNode{})
	b := g.AddNode(&EmptyNode{})
	d := g.AddNode(&EmptyNode{})

	g.AddEdge(a, b, ExecutionOrder{})
	g.AddEdge(a, d, ExecutionOrder{})
	g.AddEdge(b, d, ExecutionOrder{})

	aPairs := g.DirectChildPairs(a)
	require.Len(t, aPairs, 1)
	assert.Equal(t, b, aPairs[0].Node)

	bPairs := g.DirectChildPairs(b)
	require.Len(t, bPairs, 1)
	assert.Equal(t, d, bPairs[0].Node)
}

func TestGraph_IsAncestor(t *testing.T) {
	g := New()
	a := g.AddNode(&EmptyNode{})
	b := g.AddNode(&EmptyNode{})
	c := g.AddNode(&EmptyNode{})

	g.AddEdge(a, b, ExecutionOrder{})
	g.AddEdge(b, c, ExecutionOrder{})

	assert.True(t, g.IsAncestor(a, c))
	assert.True(t, g.IsAncestor(a, b))
	assert.False(t, g.IsAncestor(c, a))
	assert.False(t, g.IsAncestor(b, a))
}

func TestGraph_ResultNodes(t *testing.T) {
	g := New()
	a := g.AddNode(&EmptyNode{})
	b := g.AddNode(&EmptyNode{})
	c := g.AddNode(&EmptyNode{})

	g.AddEdge(a, b, ExecutionOrder{})
	g.AddEdge(b, c, ExecutionOrder{})
	g.MarkResult(c)

	assert.True(t, g.IsResultNode(c))
	assert.False(t, g.IsResultNode(a))
	assert.Equal(t, []NodeID{c}, g.ResultNodes())

	// Result membership is visible from every ancestor.
	assert.True(t, g.SubgraphContainsResult(a))
	assert.True(t, g.SubgraphContainsResult(b))
	assert.True(t, g.SubgraphContainsResult(c))
}

func TestGraph_TransactionalFlag(t *testing.T) {
	g := New()
	assert.False(t, g.NeedsTransaction())

	g.FlagTransactional()
	assert.True(t, g.NeedsTransaction())
}

func TestBuildError_Codes(t *testing.T) {
	g := New()
	id := g.AddNode(&EmptyNode{})
	_, err := g.PluckNode(id)
	require.NoError(t, err)

	_, err = g.NodeContent(id)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeNodeConsumed, be.Code)
}
