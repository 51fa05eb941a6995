package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates proctoring signal kinds.
type EventType string

const (
	EventFocusLost  EventType = "FOCUS_LOST"
	EventTabSwitch  EventType = "TAB_SWITCH"
	EventWebcamFlag EventType = "WEBCAM_FLAG"
	EventReconnect  EventType = "RECONNECT"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventFocusLost, EventTabSwitch, EventWebcamFlag, EventReconnect:
		return true
	}
	return false
}

// ProctoringEvent is an append-only integrity signal raised during an active
// session. Events are never mutated and are consumed only at scoring time.
type ProctoringEvent struct {
	SessionID  uuid.UUID       `json:"session_id"`
	Type       EventType       `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// RecordEventRequest is the payload for reporting a proctoring event.
type RecordEventRequest struct {
	Type     EventType       `json:"type" binding:"required,oneof=FOCUS_LOST TAB_SWITCH WEBCAM_FLAG RECONNECT"`
	Metadata json.RawMessage `json:"metadata" binding:"omitempty"`
}
