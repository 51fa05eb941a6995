package model

import (
	"time"

	"github.com/google/uuid"
)

// ProctoringPolicy holds the per-exam integrity thresholds. A limit is the
// number of events of that type tolerated before penalties apply. HardCap is
// the total excess across all types that forces immediate termination.
type ProctoringPolicy struct {
	WebcamRequired bool `json:"webcam_required"`
	TabSwitchLimit int  `json:"tab_switch_limit"`
	FocusLossLimit int  `json:"focus_loss_limit"`
	HardCap        int  `json:"hard_cap"`
}

// Exam represents an exam definition. The engine treats exams as read-only:
// nothing in this module mutates an exam or its answer key.
type Exam struct {
	ID                  uuid.UUID        `json:"id"`
	Title               string           `json:"title"`
	DurationMinutes     int              `json:"duration_minutes"`
	TotalQuestions      int              `json:"total_questions"`
	PassingScorePercent int              `json:"passing_score_percent"`
	IsPublic            bool             `json:"is_public"`
	IsActive            bool             `json:"is_active"`
	Proctoring          ProctoringPolicy `json:"proctoring"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// PolicySnapshot is the immutable copy of an exam's timing and proctoring
// rules taken at session creation. Sessions are scored and expired against
// this snapshot, never against the live exam record, so mid-session edits to
// the exam cannot drift a running attempt.
type PolicySnapshot struct {
	DurationMinutes     int              `json:"duration_minutes"`
	TotalQuestions      int              `json:"total_questions"`
	PassingScorePercent int              `json:"passing_score_percent"`
	Proctoring          ProctoringPolicy `json:"proctoring"`
}

// Snapshot copies the exam's session-relevant policy fields.
func (e *Exam) Snapshot() PolicySnapshot {
	return PolicySnapshot{
		DurationMinutes:     e.DurationMinutes,
		TotalQuestions:      e.TotalQuestions,
		PassingScorePercent: e.PassingScorePercent,
		Proctoring:          e.Proctoring,
	}
}

// Duration returns the snapshot's exam duration.
func (p PolicySnapshot) Duration() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}
