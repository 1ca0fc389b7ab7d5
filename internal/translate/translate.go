// Package translate lowers a resolved query graph into one linear
// Expression program. The walk is destructive and single-pass: every
// node is visited exactly once, its content and incoming edges plucked
// as they are consumed. The graph is exclusively owned by the translator
// for the duration of the call.
package translate

import (
	"fmt"

	"github.com/inkwell-db/inkwell/internal/expr"
	"github.com/inkwell-db/inkwell/internal/qgraph"
	"github.com/inkwell-db/inkwell/internal/resultmap"
)

// QueryBuilder is the injected per-dialect capability that turns one
// primitive query into a concrete database statement. The translator
// never manufactures SQL syntax itself.
type QueryBuilder interface {
	Build(*qgraph.Query) (*expr.DBQuery, error)
}

// parentEdge captures one incoming dependency of a node at the moment
// the node is first reached, surviving the edge's plucking.
type parentEdge struct {
	source qgraph.NodeID
	kind   qgraph.DependencyKind
}

type translator struct {
	g       *qgraph.Graph
	builder QueryBuilder
	visited map[qgraph.NodeID]bool
	parents map[qgraph.NodeID][]parentEdge

	// resultCount is the number of designated result nodes in the whole
	// graph, taken before the walk. Decides Get vs GetFirstNonEmpty in
	// result folding.
	resultCount int
}

// Translate compiles the graph into a single Expression program. The
// graph is consumed: after a successful call every node and edge has
// been plucked.
func Translate(g *qgraph.Graph, builder QueryBuilder) (expr.Expression, error) {
	// The structure mapper reads node contents, so it must run before
	// the destructive walk.
	structure, enums, err := resultmap.Build(g)
	if err != nil {
		return nil, graphBuildErr(-1, "result structure mapping failed: %v", err)
	}

	t := &translator{
		g:           g,
		builder:     builder,
		visited:     make(map[qgraph.NodeID]bool),
		parents:     make(map[qgraph.NodeID][]parentEdge),
		resultCount: len(g.ResultNodes()),
	}

	// Roots are collected before mutation; plucking changes what
	// "incoming" means.
	roots := g.RootNodes()

	fragments := make([]expr.Expression, 0, len(roots))
	for _, root := range roots {
		fragment, err := t.translateNode(root)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, fragment)
	}

	var program expr.Expression
	switch len(fragments) {
	case 0:
		program = expr.Unit{}
	case 1:
		program = fragments[0]
	default:
		program = expr.Seq{Items: fragments}
	}

	if structure != nil {
		program = expr.DataMap{Expr: program, Structure: structure, Enums: enums}
	}

	program = expr.Simplify(program)

	if g.NeedsTransaction() {
		program = expr.Transaction{Expr: program}
	}

	return program, nil
}

// translateNode converts one node, plus its already-translated children,
// into an Expression fragment.
func (t *translator) translateNode(id qgraph.NodeID) (expr.Expression, error) {
	if t.visited[id] {
		return nil, graphBuildErr(id, "node visited twice")
	}
	t.visited[id] = true

	content, err := t.g.NodeContent(id)
	if err != nil {
		return nil, wrapGraphErr(id, err)
	}

	switch content.(type) {
	case *qgraph.QueryNode:
		return t.translateQuery(id)
	case *qgraph.EmptyNode:
		return t.translateEmpty(id)
	case *qgraph.IfNode:
		return t.translateIf(id)
	case *qgraph.ReturnNode:
		return t.translateReturn(id)
	case *qgraph.DiffNode:
		return t.translateDiff(id)
	default:
		return nil, graphBuildErr(id, "unknown node content %T", content)
	}
}

func (t *translator) translateQuery(id qgraph.NodeID) (expr.Expression, error) {
	children, err := t.translateChildren(id)
	if err != nil {
		return nil, err
	}

	content, err := t.pluckNode(id)
	if err != nil {
		return nil, err
	}
	qn, ok := content.(*qgraph.QueryNode)
	if !ok {
		return nil, graphBuildErr(id, "expected query node, found %T", content)
	}

	if err := t.transformNode(id, content); err != nil {
		return nil, err
	}

	db, err := t.builder.Build(qn.Query)
	if err != nil {
		return nil, &Error{Code: ErrCodeQueryBuild, Message: "query builder rejected operation", Node: id, Err: err}
	}

	var leaf expr.Expression
	if qn.Query.Op.Reads() {
		leaf = expr.Query{DB: db}
	} else {
		leaf = expr.Execute{DB: db}
	}

	return t.wrapChildren(id, leaf, children), nil
}

func (t *translator) translateEmpty(id qgraph.NodeID) (expr.Expression, error) {
	children, err := t.translateChildren(id)
	if err != nil {
		return nil, err
	}

	if _, err := t.pluckNode(id); err != nil {
		return nil, err
	}

	switch len(children) {
	case 0:
		return expr.Unit{}, nil
	case 1:
		return children[0], nil
	default:
		return expr.Seq{Items: children}, nil
	}
}

func (t *translator) translateIf(id qgraph.NodeID) (expr.Expression, error) {
	// Scan direct child edges for the branch edges before anything is
	// consumed. Exactly one Then is required, at most one Else.
	var thenChild, elseChild *qgraph.ChildPair
	var rest []qgraph.ChildPair
	for _, pair := range t.g.DirectChildPairs(id) {
		pair := pair
		kind, err := t.g.EdgeContent(pair.Edge)
		if err != nil {
			return nil, wrapGraphErr(id, err)
		}
		switch kind.(type) {
		case qgraph.ThenEdge:
			if thenChild != nil {
				return nil, graphBuildErr(id, "duplicate Then edge")
			}
			thenChild = &pair
		case qgraph.ElseEdge:
			if elseChild != nil {
				return nil, graphBuildErr(id, "duplicate Else edge")
			}
			elseChild = &pair
		default:
			rest = append(rest, pair)
		}
	}
	if thenChild == nil {
		return nil, graphBuildErr(id, "missing Then edge")
	}

	thenExpr, err := t.processChildWithDependencies(thenChild.Node)
	if err != nil {
		return nil, err
	}
	elseExpr := expr.Expression(expr.Unit{})
	if elseChild != nil {
		elseExpr, err = t.processChildWithDependencies(elseChild.Node)
		if err != nil {
			return nil, err
		}
	}

	children, err := t.translatePairs(id, rest)
	if err != nil {
		return nil, err
	}

	content, err := t.pluckNode(id)
	if err != nil {
		return nil, err
	}
	ifNode, ok := content.(*qgraph.IfNode)
	if !ok {
		return nil, graphBuildErr(id, "expected if node, found %T", content)
	}

	if err := t.transformNode(id, content); err != nil {
		return nil, err
	}
	if ifNode.Data == "" {
		return nil, graphBuildErr(id, "if node has no data source")
	}

	out := expr.If{
		Value: expr.Get{Name: ifNode.Data},
		Rule:  ifNode.Rule,
		Then:  thenExpr,
		Else:  elseExpr,
	}
	return t.wrapChildren(id, out, children), nil
}

func (t *translator) translateReturn(id qgraph.NodeID) (expr.Expression, error) {
	children, err := t.translateChildren(id)
	if err != nil {
		return nil, err
	}

	content, err := t.pluckNode(id)
	if err != nil {
		return nil, err
	}
	ret, ok := content.(*qgraph.ReturnNode)
	if !ok {
		return nil, graphBuildErr(id, "expected return node, found %T", content)
	}

	if err := t.transformNode(id, content); err != nil {
		return nil, err
	}
	if ret.Binding == "" {
		return nil, graphBuildErr(id, "return node has no data source")
	}

	return t.wrapChildren(id, expr.Get{Name: ret.Binding}, children), nil
}

func (t *translator) translateDiff(id qgraph.NodeID) (expr.Expression, error) {
	children, err := t.translateChildren(id)
	if err != nil {
		return nil, err
	}

	content, err := t.pluckNode(id)
	if err != nil {
		return nil, err
	}
	diff, ok := content.(*qgraph.DiffNode)
	if !ok {
		return nil, graphBuildErr(id, "expected diff node, found %T", content)
	}

	if err := t.transformNode(id, content); err != nil {
		return nil, err
	}
	if diff.Left == "" || diff.Right == "" {
		return nil, graphBuildErr(id, "diff node is missing an operand")
	}

	var out expr.Expression
	switch diff.Direction {
	case qgraph.DiffLeftToRight:
		out = expr.Diff{From: expr.Get{Name: diff.Left}, To: expr.Get{Name: diff.Right}}
	case qgraph.DiffRightToLeft:
		out = expr.Diff{From: expr.Get{Name: diff.Right}, To: expr.Get{Name: diff.Left}}
	default:
		return nil, graphBuildErr(id, "unknown diff direction %d", diff.Direction)
	}

	return t.wrapChildren(id, out, children), nil
}

// translateChildren processes the node's direct children in edge order.
func (t *translator) translateChildren(id qgraph.NodeID) ([]expr.Expression, error) {
	return t.translatePairs(id, t.g.DirectChildPairs(id))
}

// translatePairs partitions children into side-effecting ones (executed
// strictly before the node's own operation) and result-subgraph members
// (deferred and folded into one expression). If the node's own output
// feeds the final result, a trailing Get of its binding is appended.
func (t *translator) translatePairs(id qgraph.NodeID, pairs []qgraph.ChildPair) ([]expr.Expression, error) {
	var nonResult, result []qgraph.ChildPair
	for _, pair := range pairs {
		if t.g.SubgraphContainsResult(pair.Node) {
			result = append(result, pair)
		} else {
			nonResult = append(nonResult, pair)
		}
	}

	var out []expr.Expression
	for _, pair := range nonResult {
		child, err := t.processChildWithDependencies(pair.Node)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}

	if len(result) > 0 {
		folded, err := t.foldResultScopes(result)
		if err != nil {
			return nil, err
		}
		out = append(out, folded)
	}

	if t.g.IsResultNode(id) {
		out = append(out, expr.Get{Name: bindingName(id)})
	}

	return out, nil
}

// foldResultScopes folds all result children into one expression. Each
// child is bound under its own name; with a single result node in the
// graph the fold evaluates to the last binding, with several it takes
// the first non-empty one in binding order (only one alternative branch
// actually produced rows).
func (t *translator) foldResultScopes(pairs []qgraph.ChildPair) (expr.Expression, error) {
	bindings := make([]expr.Binding, 0, len(pairs))
	names := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		child, err := t.processChildWithDependencies(pair.Node)
		if err != nil {
			return nil, err
		}
		name := bindingName(pair.Node)
		bindings = append(bindings, expr.Binding{Name: name, Expr: child})
		names = append(names, name)
	}

	var body expr.Expression
	if t.resultCount > 1 {
		body = expr.GetFirstNonEmpty{Names: names}
	} else {
		body = expr.Get{Name: names[len(names)-1]}
	}

	return expr.Let{Bindings: bindings, Body: body}, nil
}

// wrapChildren guarantees the node's operation runs, is named, and is
// visible to whatever follows.
func (t *translator) wrapChildren(id qgraph.NodeID, own expr.Expression, children []expr.Expression) expr.Expression {
	if len(children) == 0 {
		return own
	}

	var body expr.Expression
	if len(children) == 1 {
		body = children[0]
	} else {
		body = expr.Seq{Items: children}
	}

	return expr.Let{
		Bindings: []expr.Binding{{Name: bindingName(id), Expr: own}},
		Body:     body,
	}
}

func (t *translator) pluckNode(id qgraph.NodeID) (qgraph.NodeContent, error) {
	content, err := t.g.PluckNode(id)
	if err != nil {
		return nil, wrapGraphErr(id, err)
	}
	return content, nil
}

// bindingName derives the deterministic binding name for a node's
// output. Same graph, same names: downstream Get references are
// generated independently and must match.
func bindingName(id qgraph.NodeID) string {
	return fmt.Sprintf("q%d", int(id))
}

// fieldBindingName derives the binding name for one projected field of a
// node's output.
func fieldBindingName(id qgraph.NodeID, field string) string {
	return fmt.Sprintf("q%d_%s", int(id), field)
}

// errorID identifies a violated expectation in Validate failures.
func errorID(source, dest qgraph.NodeID) string {
	return fmt.Sprintf("expectation q%d->q%d", int(source), int(dest))
}
