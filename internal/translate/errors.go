package translate

import (
	"errors"
	"fmt"

	"github.com/inkwell-db/inkwell/internal/qgraph"
)

// ErrorCode categorizes translation failures.
type ErrorCode string

const (
	// ErrCodeNodeContentEmpty indicates the translator tried to finalize
	// a node whose content was already consumed: a graph-shape bug
	// upstream (the node was reached twice).
	ErrCodeNodeContentEmpty ErrorCode = "NODE_CONTENT_EMPTY"

	// ErrCodeGraphBuild indicates a violated structural invariant:
	// duplicate Then/Else edge, missing Then edge, or an unresolvable
	// dependency target.
	ErrCodeGraphBuild ErrorCode = "GRAPH_BUILD"

	// ErrCodeQueryBuild indicates the injected query builder rejected a
	// primitive query. Carries the underlying builder error.
	ErrCodeQueryBuild ErrorCode = "QUERY_BUILD"
)

// Error is a translation failure. There is no partial output: the
// compilation either fully succeeds or fails closed with one of these.
// Internal "cannot happen by construction" conditions surface as
// GRAPH_BUILD errors rather than panics, so a malformed graph cannot
// take down a process serving unrelated requests.
type Error struct {
	Code    ErrorCode
	Message string
	Node    qgraph.NodeID
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (node=%d): %v", e.Code, e.Message, e.Node, e.Err)
	}
	return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Node)
}

// Unwrap exposes the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNodeContentEmpty reports whether err is a NODE_CONTENT_EMPTY error.
func IsNodeContentEmpty(err error) bool {
	return hasCode(err, ErrCodeNodeContentEmpty)
}

// IsGraphBuildError reports whether err is a GRAPH_BUILD error.
func IsGraphBuildError(err error) bool {
	return hasCode(err, ErrCodeGraphBuild)
}

// IsQueryBuildError reports whether err is a QUERY_BUILD error.
func IsQueryBuildError(err error) bool {
	return hasCode(err, ErrCodeQueryBuild)
}

func hasCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

func graphBuildErr(node qgraph.NodeID, format string, args ...any) *Error {
	return &Error{Code: ErrCodeGraphBuild, Message: fmt.Sprintf(format, args...), Node: node}
}

// wrapGraphErr converts arena-level errors into translation errors,
// mapping consumed-content to NODE_CONTENT_EMPTY.
func wrapGraphErr(node qgraph.NodeID, err error) *Error {
	var be *qgraph.BuildError
	if errors.As(err, &be) && be.Code == qgraph.ErrCodeNodeConsumed {
		return &Error{Code: ErrCodeNodeContentEmpty, Message: "node content already consumed", Node: node, Err: err}
	}
	return &Error{Code: ErrCodeGraphBuild, Message: "graph access failed", Node: node, Err: err}
}
