package domain

import "fmt"

// Status is the result of ticking a node.
type Status string

const (
	// StatusInvalid marks a node that has not been ticked yet, or whose
	// last tick faulted.
	StatusInvalid Status = "INVALID"
	// StatusRunning marks a node that needs more ticks to finish.
	StatusRunning Status = "RUNNING"
	// StatusSuccess marks a node that completed successfully.
	StatusSuccess Status = "SUCCESS"
	// StatusFailure marks a node that completed unsuccessfully.
	StatusFailure Status = "FAILURE"
)

// Terminal reports whether the status ends a node's work for the
// current traversal cycle.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Known reports whether s is one of the four defined statuses.
func (s Status) Known() bool {
	switch s {
	case StatusInvalid, StatusRunning, StatusSuccess, StatusFailure:
		return true
	}
	return false
}

// ParseStatus converts a string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Known() {
		return StatusInvalid, fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}
