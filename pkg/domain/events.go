package domain

import "time"

// EventType categorizes lifecycle events emitted by an execution.
type EventType string

const (
	EventTickStarted       EventType = "TICK_STARTED"
	EventTickCompleted     EventType = "TICK_COMPLETED"
	EventNodeVisited       EventType = "NODE_VISITED"
	EventNodeStatusChanged EventType = "NODE_STATUS_CHANGED"
	EventBlackboardUpdated EventType = "BLACKBOARD_UPDATED"
	EventExecutionStarted  EventType = "EXECUTION_STARTED"
	EventExecutionComplete EventType = "EXECUTION_COMPLETED"
	EventErrorOccurred     EventType = "ERROR_OCCURRED"
	EventBreakpointHit     EventType = "BREAKPOINT_HIT"
	EventWatchTriggered    EventType = "WATCH_TRIGGERED"
)

// Event is one structured lifecycle notification.
type Event struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	ExecutionID string    `json:"execution_id"`
	Payload     any       `json:"payload,omitempty"`
}

// TickPayload accompanies TICK_STARTED and TICK_COMPLETED.
type TickPayload struct {
	Tick   uint64 `json:"tick"`
	Status Status `json:"status,omitempty"`

	// Snapshot is attached to TICK_COMPLETED only. History stores
	// subscribe to the emitter and persist it.
	Snapshot *HistorySnapshot `json:"snapshot,omitempty"`
}

// NodeVisitPayload accompanies NODE_VISITED.
type NodeVisitPayload struct {
	NodeID string `json:"node_id"`
	Depth  int    `json:"depth"`
	Status Status `json:"status"`
}

// StatusChangePayload accompanies NODE_STATUS_CHANGED.
type StatusChangePayload struct {
	NodeID string `json:"node_id"`
	From   Status `json:"from"`
	To     Status `json:"to"`
}

// BlackboardPayload accompanies BLACKBOARD_UPDATED. Deleted is true for
// unset operations, in which case Value is nil.
type BlackboardPayload struct {
	Key     string `json:"key"`
	Value   any    `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// ErrorPayload accompanies ERROR_OCCURRED.
type ErrorPayload struct {
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

// BreakpointPayload accompanies BREAKPOINT_HIT.
type BreakpointPayload struct {
	NodeID    string `json:"node_id"`
	Condition string `json:"condition,omitempty"`
	Status    Status `json:"status"`
}

// WatchPayload accompanies WATCH_TRIGGERED.
type WatchPayload struct {
	Key   string `json:"key"`
	Kind  string `json:"kind"`
	Value any    `json:"value,omitempty"`
}
