package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionState enumerates exam session states.
type SessionState string

const (
	SessionStateCreated    SessionState = "CREATED"
	SessionStateInProgress SessionState = "IN_PROGRESS"
	SessionStateCompleted  SessionState = "COMPLETED"
	SessionStateAbandoned  SessionState = "ABANDONED"
)

// Terminal reports whether the state admits no further transitions.
func (s SessionState) Terminal() bool {
	switch s {
	case SessionStateCompleted, SessionStateAbandoned:
		return true
	}
	return false
}

// FinalizeReason identifies what triggered a session's finalization.
type FinalizeReason string

const (
	ReasonUserSubmit         FinalizeReason = "USER_SUBMIT"
	ReasonDeadlineExpiry     FinalizeReason = "DEADLINE_EXPIRY"
	ReasonIntegrityViolation FinalizeReason = "INTEGRITY_VIOLATION"
)

// State returns the terminal state a finalization reason transitions into.
// All three reasons land in COMPLETED: every finalized session carries a
// score, and the reason column keeps the trigger distinguishable.
func (r FinalizeReason) State() SessionState {
	return SessionStateCompleted
}

// Score is the outcome of grading one session against its answer key.
type Score struct {
	CorrectCount   int  `json:"correct_count"`
	TotalQuestions int  `json:"total_questions"`
	Percent        int  `json:"percent"`
	Passed         bool `json:"passed"`
}

// ExamSession represents one learner's timed attempt at one exam. Sessions are
// append-only from an audit perspective: they are created once, transitioned
// by the session service, and never deleted.
type ExamSession struct {
	ID             uuid.UUID       `json:"id"`
	ExamID         uuid.UUID       `json:"exam_id"`
	IdentityID     uuid.UUID       `json:"identity_id"`
	State          SessionState    `json:"state"`
	StartedAt      time.Time       `json:"started_at"`
	DeadlineAt     time.Time       `json:"deadline_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	Policy         PolicySnapshot  `json:"policy"`
	Score          *Score          `json:"score,omitempty"`
	IntegrityScore *float64        `json:"integrity_score,omitempty"`
	Reason         *FinalizeReason `json:"finalize_reason,omitempty"`
}

// Overdue reports whether the session's deadline has passed at instant now.
func (s *ExamSession) Overdue(now time.Time) bool {
	return !now.Before(s.DeadlineAt)
}

// SessionResult is the immutable outcome attached to a finalized session.
type SessionResult struct {
	SessionID          uuid.UUID      `json:"session_id"`
	State              SessionState   `json:"state"`
	Reason             FinalizeReason `json:"reason"`
	Score              Score          `json:"score"`
	IntegrityScore     float64        `json:"integrity_score"`
	IntegrityViolation bool           `json:"integrity_violation"`
	CompletedAt        time.Time      `json:"completed_at"`
}

// Result assembles the session's result. Returns nil unless the session is in
// a scored terminal state (abandoned sessions carry no result).
func (s *ExamSession) Result() *SessionResult {
	if !s.State.Terminal() || s.Score == nil || s.Reason == nil || s.CompletedAt == nil {
		return nil
	}
	var integrity float64
	if s.IntegrityScore != nil {
		integrity = *s.IntegrityScore
	}
	return &SessionResult{
		SessionID:          s.ID,
		State:              s.State,
		Reason:             *s.Reason,
		Score:              *s.Score,
		IntegrityScore:     integrity,
		IntegrityViolation: *s.Reason == ReasonIntegrityViolation,
		CompletedAt:        *s.CompletedAt,
	}
}

// Finalization carries everything a store must persist atomically with the
// terminal state transition.
type Finalization struct {
	SessionID      uuid.UUID
	State          SessionState
	Reason         FinalizeReason
	Score          Score
	IntegrityScore float64
	CompletedAt    time.Time
}

// StartSessionRequest is the payload for starting (or resuming) a session.
type StartSessionRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
}

// SubmitAnswerRequest is the payload for recording a single answer.
type SubmitAnswerRequest struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedOption string    `json:"selected_option" binding:"required,max=10"`
}
