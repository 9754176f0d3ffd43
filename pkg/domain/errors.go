package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTreeNotFound is returned when a tree id or version cannot be found
// in a store.
var ErrTreeNotFound = errors.New("tree not found")

// ErrVersionExists is returned when saving a (tree id, version) pair
// that is already stored. Documents are immutable once written.
var ErrVersionExists = errors.New("tree version already exists")

// ErrInstanceNotFound is returned when an execution id is not registered.
var ErrInstanceNotFound = errors.New("execution instance not found")

// ErrInvalidTransition is returned on a lifecycle operation that the
// current state does not allow (e.g. ticking a shut-down instance).
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// ErrLoopStopped is returned when a scheduler loop that was stopped is
// asked to run again. Stop is terminal for a run.
var ErrLoopStopped = errors.New("scheduler loop is stopped")

// SchemaError reports document validation failures: unknown node types,
// arity violations and malformed parameters. It is raised before any
// runtime node is constructed.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	if len(e.Violations) == 1 {
		return "schema error: " + e.Violations[0]
	}
	return fmt.Sprintf("schema error: %d violations:\n  %s",
		len(e.Violations), strings.Join(e.Violations, "\n  "))
}

// ReferenceError reports a subtree resolution failure: a reference
// cycle or an expansion deeper than the configured limit.
type ReferenceError struct {
	TreeID  string
	Version string
	Reason  string
}

func (e *ReferenceError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("subtree reference %s@%s: %s", e.TreeID, e.Version, e.Reason)
	}
	return fmt.Sprintf("subtree reference %s: %s", e.TreeID, e.Reason)
}

// ExtractionWarning flags a parameter that could not be recovered from
// a runtime node. Warnings are attached to extraction output, never
// thrown.
type ExtractionWarning struct {
	NodeID string `json:"node_id"`
	Param  string `json:"param"`
	Reason string `json:"reason"`
}

func (w ExtractionWarning) String() string {
	return fmt.Sprintf("node %s: parameter %q: %s", w.NodeID, w.Param, w.Reason)
}

// DebugExpressionError reports a breakpoint or watch condition that
// failed to compile or evaluate. The breakpoint is treated as not
// fired; execution continues.
type DebugExpressionError struct {
	Expression string
	Err        error
}

func (e *DebugExpressionError) Error() string {
	return fmt.Sprintf("debug expression %q: %v", e.Expression, e.Err)
}

func (e *DebugExpressionError) Unwrap() error { return e.Err }
