package qgraph

import (
	"errors"
	"fmt"
)

// BuildErrorCode categorizes structural graph errors.
type BuildErrorCode string

const (
	// ErrCodeNodeConsumed indicates a node's content was read after it
	// had already been plucked.
	ErrCodeNodeConsumed BuildErrorCode = "NODE_CONSUMED"

	// ErrCodeEdgeConsumed indicates an edge's content was read after it
	// had already been plucked.
	ErrCodeEdgeConsumed BuildErrorCode = "EDGE_CONSUMED"

	// ErrCodeUnknownRef indicates a node or edge id outside the arena.
	ErrCodeUnknownRef BuildErrorCode = "UNKNOWN_REF"
)

// BuildError reports a violated structural invariant of the graph.
// Always fatal to the compilation that observed it.
type BuildError struct {
	Code    BuildErrorCode
	Message string
	Node    NodeID
	Edge    EdgeID
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s (node=%d, edge=%d)", e.Code, e.Message, e.Node, e.Edge)
}

// IsBuildError reports whether err is (or wraps) a BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

func nodeConsumed(id NodeID) *BuildError {
	return &BuildError{Code: ErrCodeNodeConsumed, Message: "node content already consumed", Node: id, Edge: -1}
}

func edgeConsumed(id EdgeID) *BuildError {
	return &BuildError{Code: ErrCodeEdgeConsumed, Message: "edge content already consumed", Node: -1, Edge: id}
}

func unknownNode(id NodeID) *BuildError {
	return &BuildError{Code: ErrCodeUnknownRef, Message: "node id not in graph", Node: id, Edge: -1}
}

func unknownEdge(id EdgeID) *BuildError {
	return &BuildError{Code: ErrCodeUnknownRef, Message: "edge id not in graph", Node: -1, Edge: id}
}
