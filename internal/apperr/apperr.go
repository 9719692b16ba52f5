// Package apperr defines the engine's error kinds. Each is a constructor
// function returning an EngineError, the same shape as the teacher's
// per-package Kind+Message error structs (graph.GraphError, query.QueryError,
// dsl.SyntaxError), collapsed into one type here because the engine surfaces
// these five kinds together at a single entry point (spec §7).
package apperr

import "fmt"

// EngineError is the concrete error type behind every constructor below.
type EngineError struct {
	Kind    string
	Message string
}

func (e EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Parse wraps a syntax error produced by the query parser.
func Parse(format string, args ...any) error {
	return EngineError{Kind: "ParseError", Message: fmt.Sprintf(format, args...)}
}

// InvalidPredicate signals a percentile predicate with p outside (0,1] or an
// unrecognized comparator.
func InvalidPredicate(format string, args ...any) error {
	return EngineError{Kind: "InvalidPredicate", Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument signals a malformed operator argument, e.g. a negative k
// in a name() predicate.
func InvalidArgument(format string, args ...any) error {
	return EngineError{Kind: "InvalidArgument", Message: fmt.Sprintf(format, args...)}
}

// Index wraps a failure surfaced by one of the three index collaborators.
func Index(format string, args ...any) error {
	return EngineError{Kind: "IndexError", Message: fmt.Sprintf(format, args...)}
}

// Internal signals a defensively-caught invariant violation, e.g. an
// unexpected node type during evaluation or an optimizer result whose root
// is not a Query. A node missing from the group table is not detected:
// groups.Table.WriteGroup reports group 0 for it.
func Internal(format string, args ...any) error {
	return EngineError{Kind: "InternalError", Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err is an EngineError of the given kind.
func Is(err error, kind string) bool {
	ee, ok := err.(EngineError)
	return ok && ee.Kind == kind
}
