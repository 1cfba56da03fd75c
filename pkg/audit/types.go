package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	EventTypeAssign      EventType = "chapter_admin.assign"
	EventTypeReactivate  EventType = "chapter_admin.reactivate"
	EventTypeRoleChange  EventType = "chapter_admin.role_change"
	EventTypeRemove      EventType = "chapter_admin.remove"
	EventTypeStatsUpdate EventType = "school.stats_update"
)

// Event is a single audit trail entry for a chapter admin or school change
type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`

	// Who acted, on whom, where
	ActorID      string `json:"actor_id"`
	TargetUserID string `json:"target_user_id,omitempty"`
	SchoolID     string `json:"school_id"`
	AssignmentID string `json:"assignment_id,omitempty"`

	RequestID string         `json:"request_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Changes   *ChangeDetails `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Filter narrows an audit trail query
type Filter struct {
	SchoolID     string
	TargetUserID string
	EventTypes   []EventType
	Since        *time.Time
	Before       *time.Time
	Limit        int
}
