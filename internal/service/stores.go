package service

import (
	"context"
	"time"

	"github.com/examind/examind-backend/internal/integrity"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/scoring"
	"github.com/google/uuid"
)

// SessionStore is the durable store for session records. The production
// implementation is repository.SessionRepository; tests substitute an
// in-memory fake. Create must be atomic with respect to concurrent calls for
// the same identity: exactly one caller wins, the rest get
// repository.ErrActiveSessionExists.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetByID(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error)
	GetActiveByIdentity(ctx context.Context, identityID uuid.UUID) (*model.ExamSession, error)
	Finalize(ctx context.Context, f model.Finalization) (bool, error)
	Abandon(ctx context.Context, sessionID uuid.UUID, at time.Time) (bool, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.ExamSession, error)
}

// AnswerStore is the durable store for answer records. Upserts for the same
// (session, question) pair apply last-write-wins by server receive time.
type AnswerStore interface {
	Upsert(ctx context.Context, sessionID, questionID uuid.UUID, selectedOption string, answeredAt time.Time) error
	MapBySession(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]string, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AnswerRecord, error)
}

// QuestionBank is the read-only boundary to exam definitions and answer keys.
type QuestionBank interface {
	GetByID(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
	AnswerKey(ctx context.Context, examID uuid.UUID) (scoring.AnswerKey, error)
	HasQuestion(ctx context.Context, examID, questionID uuid.UUID) (bool, error)
}

// IntegrityCounter supplies per-session proctoring event counts at
// finalization time.
type IntegrityCounter interface {
	Counts(ctx context.Context, sessionID uuid.UUID) (integrity.Counts, error)
}

// SessionFinalizer is the slice of the session service the proctoring
// ingestion path needs to force a termination on hard-cap violations.
type SessionFinalizer interface {
	Finalize(ctx context.Context, sessionID uuid.UUID, reason model.FinalizeReason) (*model.SessionResult, error)
}
