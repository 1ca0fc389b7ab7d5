package qgraph

// NodeID addresses a node slot in the arena. IDs are stable for the life
// of the graph: plucking tombstones the slot instead of removing it, so
// ids taken before a walk remain valid mid-walk.
type NodeID int

// EdgeID addresses an edge slot in the arena.
type EdgeID int

type nodeSlot struct {
	content NodeContent
	plucked bool
	result  bool
}

type edgeSlot struct {
	from, to NodeID
	kind     DependencyKind
	plucked  bool
}

// Graph is the dependency-annotated graph of primitive operations the
// translator consumes. It is built by an upstream planner (or the plan
// loader), handed to exactly one compilation call, and discarded.
//
// Edges are ordered by insertion; a node's children are evaluated in
// edge order. The graph is exclusively owned by the translator for the
// duration of the call: there is no locking and no concurrent access.
type Graph struct {
	nodes         []nodeSlot
	edges         []edgeSlot
	transactional bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// AddNode appends a node to the arena and returns its id.
func (g *Graph) AddNode(content NodeContent) NodeID {
	g.nodes = append(g.nodes, nodeSlot{content: content})
	return NodeID(len(g.nodes) - 1)
}

// AddEdge appends an edge from one node to another, tagged with a
// dependency kind. Edge order is evaluation order.
func (g *Graph) AddEdge(from, to NodeID, kind DependencyKind) EdgeID {
	g.edges = append(g.edges, edgeSlot{from: from, to: to, kind: kind})
	return EdgeID(len(g.edges) - 1)
}

// NodeContent returns the content of a node, failing if the node was
// already plucked or the id is unknown.
func (g *Graph) NodeContent(id NodeID) (NodeContent, error) {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		return nil, unknownNode(id)
	}
	slot := &g.nodes[id]
	if slot.plucked {
		return nil, nodeConsumed(id)
	}
	return slot.content, nil
}

// PluckNode consumes a node's content, tombstoning the slot. A second
// pluck of the same node is a structural error.
func (g *Graph) PluckNode(id NodeID) (NodeContent, error) {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		return nil, unknownNode(id)
	}
	slot := &g.nodes[id]
	if slot.plucked {
		return nil, nodeConsumed(id)
	}
	slot.plucked = true
	content := slot.content
	slot.content = nil
	return content, nil
}

// EdgeContent returns the dependency kind of an edge, failing if the
// edge was already plucked.
func (g *Graph) EdgeContent(id EdgeID) (DependencyKind, error) {
	if int(id) < 0 || int(id) >= len(g.edges) {
		return nil, unknownEdge(id)
	}
	slot := &g.edges[id]
	if slot.plucked {
		return nil, edgeConsumed(id)
	}
	return slot.kind, nil
}

// PluckEdge consumes an edge's content, tombstoning the slot.
func (g *Graph) PluckEdge(id EdgeID) (DependencyKind, error) {
	if int(id) < 0 || int(id) >= len(g.edges) {
		return nil, unknownEdge(id)
	}
	slot := &g.edges[id]
	if slot.plucked {
		return nil, edgeConsumed(id)
	}
	slot.plucked = true
	kind := slot.kind
	slot.kind = nil
	return kind, nil
}

// EdgeSource returns the node an edge originates from.
func (g *Graph) EdgeSource(id EdgeID) NodeID {
	return g.edges[id].from
}

// EdgeTarget returns the node an edge points to.
func (g *Graph) EdgeTarget(id EdgeID) NodeID {
	return g.edges[id].to
}

// IncomingEdges returns the unplucked edges pointing to a node, in
// insertion order.
func (g *Graph) IncomingEdges(id NodeID) []EdgeID {
	var out []EdgeID
	for i := range g.edges {
		if g.edges[i].to == id && !g.edges[i].plucked {
			out = append(out, EdgeID(i))
		}
	}
	return out
}

// OutgoingEdges returns the unplucked edges originating from a node, in
// insertion order.
func (g *Graph) OutgoingEdges(id NodeID) []EdgeID {
	var out []EdgeID
	for i := range g.edges {
		if g.edges[i].from == id && !g.edges[i].plucked {
			out = append(out, EdgeID(i))
		}
	}
	return out
}

// ChildPairs returns each outgoing edge of a node together with its
// target, in edge order.
func (g *Graph) ChildPairs(id NodeID) []ChildPair {
	edges := g.OutgoingEdges(id)
	pairs := make([]ChildPair, 0, len(edges))
	for _, e := range edges {
		pairs = append(pairs, ChildPair{Edge: e, Node: g.EdgeTarget(e)})
	}
	return pairs
}

// ChildPair is one outgoing edge of a node and the child it points to.
type ChildPair struct {
	Edge EdgeID
	Node NodeID
}

// IsAncestor reports whether ancestor can reach node through outgoing
// edges.
func (g *Graph) IsAncestor(ancestor, node NodeID) bool {
	for _, pair := range g.ChildPairs(ancestor) {
		if pair.Node == node || g.IsAncestor(pair.Node, node) {
			return true
		}
	}
	return false
}

// IsDirectChild reports whether child belongs to parent for translation
// purposes: every other parent of child must be a strict ancestor of
// parent, which guarantees their results are in scope when the child's
// dependencies are fulfilled.
func (g *Graph) IsDirectChild(parent, child NodeID) bool {
	for _, e := range g.IncomingEdges(child) {
		src := g.EdgeSource(e)
		if src != parent && !g.IsAncestor(src, parent) {
			return false
		}
	}
	return true
}

// DirectChildPairs returns the child pairs of a node restricted to
// direct children, in edge order.
func (g *Graph) DirectChildPairs(id NodeID) []ChildPair {
	var out []ChildPair
	for _, pair := range g.ChildPairs(id) {
		if g.IsDirectChild(id, pair.Node) {
			out = append(out, pair)
		}
	}
	return out
}

// RootNodes returns all nodes with no incoming edges, in id order.
// Collected before the destructive walk begins, since plucking changes
// what "incoming" means.
func (g *Graph) RootNodes() []NodeID {
	var roots []NodeID
	for i := range g.nodes {
		if g.nodes[i].plucked {
			continue
		}
		if len(g.IncomingEdges(NodeID(i))) == 0 {
			roots = append(roots, NodeID(i))
		}
	}
	return roots
}

// MarkResult designates a node as a result node: its value is observable
// as (part of) the request's final answer.
func (g *Graph) MarkResult(id NodeID) {
	if int(id) >= 0 && int(id) < len(g.nodes) {
		g.nodes[id].result = true
	}
}

// IsResultNode reports whether the node is designated as a result node.
func (g *Graph) IsResultNode(id NodeID) bool {
	return int(id) >= 0 && int(id) < len(g.nodes) && g.nodes[id].result
}

// ResultNodes enumerates the designated result nodes in id order.
func (g *Graph) ResultNodes() []NodeID {
	var out []NodeID
	for i := range g.nodes {
		if g.nodes[i].result {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// SubgraphContainsResult reports whether the subgraph rooted at the node
// contains a designated result node.
func (g *Graph) SubgraphContainsResult(id NodeID) bool {
	if g.IsResultNode(id) {
		return true
	}
	for _, pair := range g.ChildPairs(id) {
		if g.SubgraphContainsResult(pair.Node) {
			return true
		}
	}
	return false
}

// FlagTransactional marks the whole graph for execution inside one
// database transaction.
func (g *Graph) FlagTransactional() {
	g.transactional = true
}

// NeedsTransaction reports whether the compiled program must be wrapped
// in a Transaction marker.
func (g *Graph) NeedsTransaction() bool {
	return g.transactional
}

// NodeCount returns the number of nodes in the arena, plucked or not.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}
