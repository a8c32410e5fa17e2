package models

import "time"

const (
	DivergenceOrphanedEvent = "orphaned_event"
	DivergenceCompensated   = "compensated"
	DivergenceStaleTask     = "stale_task"
	DivergenceResolved      = "resolved"
)

// Divergence records a mutation the calendar applied but the task store did
// not. Open entries need someone to reconcile the two sides by hand.
type Divergence struct {
	Id            int64      `json:"id"`
	Operation     string     `json:"operation"`
	Owner         string     `json:"owner"`
	TaskId        int64      `json:"task_id,omitempty"`
	RemoteEventId string     `json:"event_id"`
	Status        string     `json:"status"`
	Detail        string     `json:"detail"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

func (d Divergence) IsOpen() bool {
	return d.Status != DivergenceCompensated && d.Status != DivergenceResolved
}
