package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord is one learner's response to one question within a session.
// Unique per (session, question): repeated submissions overwrite until the
// session finalizes and IsFinal freezes the record.
type AnswerRecord struct {
	SessionID      uuid.UUID `json:"session_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption *string   `json:"selected_option"`
	AnsweredAt     time.Time `json:"answered_at"`
	IsFinal        bool      `json:"is_final"`
}
