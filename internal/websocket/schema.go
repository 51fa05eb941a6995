package websocket

import (
	"encoding/json"

	"github.com/examind/examind-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionEvent  Action = "event"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestEnvelope carries every client message; which fields are set depends
// on the action.
type RequestEnvelope struct {
	Action         Action          `json:"action"`
	QuestionID     string          `json:"question_id,omitempty"`
	SelectedOption string          `json:"selected_option,omitempty"`
	EventType      string          `json:"event_type,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSaved      Event = "saved"
	EventRecorded   Event = "recorded"
	EventResult     Event = "result"
	EventTerminated Event = "terminated"
	EventError      Event = "error"
	EventPong       Event = "pong"
)

// SavedResponse acknowledges an answer write.
type SavedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

// RecordedResponse acknowledges a proctoring event.
type RecordedResponse struct {
	Event Event `json:"event"`
}

// ResultResponse carries the final score after a voluntary submit.
type ResultResponse struct {
	Event  Event                `json:"event"`
	Result *model.SessionResult `json:"result"`
}

// TerminatedResponse tells the client its session ended without a submit:
// deadline expiry or a proctoring hard-cap violation.
type TerminatedResponse struct {
	Event  Event                `json:"event"`
	Reason model.FinalizeReason `json:"reason"`
	Result *model.SessionResult `json:"result,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
