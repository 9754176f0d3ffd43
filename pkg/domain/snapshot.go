package domain

import "time"

// HistorySnapshot captures the full observable state of an execution at
// the end of one tick.
type HistorySnapshot struct {
	Tick       uint64            `json:"tick"`
	Timestamp  time.Time         `json:"timestamp"`
	RootStatus Status            `json:"root_status"`
	NodeStatus map[string]Status `json:"node_status"`
	Blackboard map[string]any    `json:"blackboard"`
}
