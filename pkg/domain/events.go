package domain

import (
	"context"
	"time"
)

// EventType defines the category of a change event.
type EventType string

const (
	EventCreated      EventType = "created"
	EventUpdated      EventType = "updated"
	EventDeleted      EventType = "deleted"
	EventNodeAppended EventType = "node_appended"
	EventNodeRemoved  EventType = "node_removed"
	EventRunRecorded  EventType = "run_recorded"
)

// ChangeEvent is emitted after a workflow mutation has been persisted.
type ChangeEvent struct {
	Timestamp  time.Time     `json:"timestamp"`
	Type       EventType     `json:"type"`
	WorkflowID string        `json:"workflow_id"`
	NodeID     string        `json:"node_id,omitempty"`
	Diff       *WorkflowDiff `json:"diff,omitempty"`
}

// Hooks defines callbacks for observing workflow changes.
type Hooks struct {
	OnChange func(context.Context, *ChangeEvent)
}

// Emit calls every non-nil OnChange in order.
func Emit(ctx context.Context, hooks []Hooks, ev *ChangeEvent) {
	for _, h := range hooks {
		if h.OnChange != nil {
			h.OnChange(ctx, ev)
		}
	}
}
