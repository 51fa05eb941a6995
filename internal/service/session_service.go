package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examind/examind-backend/internal/clock"
	"github.com/examind/examind-backend/internal/integrity"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/repository"
	"github.com/examind/examind-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session engine errors surfaced to the boundary.
var (
	ErrExamNotAvailable  = errors.New("exam is not available")
	ErrSessionNotFound   = errors.New("session not found")
	ErrNoActiveSession   = errors.New("no active session")
	ErrSessionNotActive  = errors.New("session is not active")
	ErrDeadlinePassed    = errors.New("session deadline has passed")
	ErrQuestionNotInExam = errors.New("question does not belong to the exam")
)

// SessionService owns the session state machine: single active session per
// identity, deadline math, answer capture, and finalization. All concurrency
// safety is pushed to the store's atomic primitives so multiple service
// instances can run side by side.
type SessionService struct {
	sessions SessionStore
	answers  AnswerStore
	bank     QuestionBank
	counter  IntegrityCounter
	clk      clock.Clock
	log      zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessions SessionStore,
	answers AnswerStore,
	bank QuestionBank,
	counter IntegrityCounter,
	clk clock.Clock,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		answers:  answers,
		bank:     bank,
		counter:  counter,
		clk:      clk,
		log:      log.With().Str("component", "session_service").Logger(),
	}
}

// Start begins (or resumes) a session for the identity. If a non-terminal
// session exists it is returned as-is — two browser tabs racing here both end
// up on the same session, never on an error. publicOnly restricts the caller
// to public exams (anonymous registrants).
func (s *SessionService) Start(ctx context.Context, identityID, examID uuid.UUID, publicOnly bool) (*model.ExamSession, error) {
	existing, err := s.ActiveSession(ctx, identityID)
	if err != nil && !errors.Is(err, ErrNoActiveSession) {
		return nil, err
	}
	// Lazy expiry inside ActiveSession may have just finalized an overdue
	// session; only a still-running one short-circuits the start.
	if existing != nil && !existing.State.Terminal() {
		return existing, nil
	}

	exam, err := s.bank.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotAvailable
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.IsActive {
		return nil, ErrExamNotAvailable
	}
	if publicOnly && !exam.IsPublic {
		return nil, ErrExamNotAvailable
	}

	now := s.clk.Now()
	snapshot := exam.Snapshot()
	session := &model.ExamSession{
		ID:         uuid.New(),
		ExamID:     examID,
		IdentityID: identityID,
		State:      model.SessionStateInProgress,
		StartedAt:  now,
		DeadlineAt: now.Add(snapshot.Duration()),
		Policy:     snapshot,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrActiveSessionExists) {
			// Concurrent start from the same identity; hand back the winner.
			winner, fetchErr := s.sessions.GetActiveByIdentity(ctx, identityID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_id", examID.String()).
		Str("identity_id", identityID.String()).
		Time("deadline_at", session.DeadlineAt).
		Msg("Session started")

	return session, nil
}

// ActiveSession returns the identity's current session. Expiry is evaluated
// on read: an overdue session is finalized (reason DEADLINE_EXPIRY) before
// being returned, so a client reconnecting after the deadline immediately
// sees the terminal state with its score.
func (s *SessionService) ActiveSession(ctx context.Context, identityID uuid.UUID) (*model.ExamSession, error) {
	sess, err := s.sessions.GetActiveByIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}

	if sess.Overdue(s.clk.Now()) {
		if _, err := s.finalize(ctx, sess, model.ReasonDeadlineExpiry); err != nil {
			return nil, err
		}
		return s.sessions.GetByID(ctx, sess.ID)
	}
	return sess, nil
}

// GetOwned fetches a session and verifies it belongs to the identity.
// Returns ErrSessionNotFound for both a missing session and a foreign one.
func (s *SessionService) GetOwned(ctx context.Context, sessionID, identityID uuid.UUID) (*model.ExamSession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.IdentityID != identityID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// SubmitAnswer records a response. Fail-closed: nothing is written unless the
// session is in progress and the deadline has not passed. Repeat submissions
// for the same question overwrite the previous selection.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID, identityID, questionID uuid.UUID, selectedOption string) error {
	sess, err := s.GetOwned(ctx, sessionID, identityID)
	if err != nil {
		return err
	}
	if sess.State.Terminal() {
		return ErrSessionNotActive
	}

	now := s.clk.Now()
	if sess.Overdue(now) {
		if _, err := s.finalize(ctx, sess, model.ReasonDeadlineExpiry); err != nil {
			return err
		}
		return ErrDeadlinePassed
	}

	ok, err := s.bank.HasQuestion(ctx, sess.ExamID, questionID)
	if err != nil {
		return fmt.Errorf("check question: %w", err)
	}
	if !ok {
		return ErrQuestionNotInExam
	}

	// Server receive time, not client-claimed time, orders the upserts.
	return s.answers.Upsert(ctx, sessionID, questionID, selectedOption, now)
}

// Answers returns the session's recorded answers for resume and review flows.
func (s *SessionService) Answers(ctx context.Context, sessionID, identityID uuid.UUID) ([]model.AnswerRecord, error) {
	if _, err := s.GetOwned(ctx, sessionID, identityID); err != nil {
		return nil, err
	}
	return s.answers.ListBySession(ctx, sessionID)
}

// Finalize transitions the session to its terminal state and computes the
// result. Idempotent: an already-finalized session returns its stored result
// unchanged, no recomputation.
func (s *SessionService) Finalize(ctx context.Context, sessionID uuid.UUID, reason model.FinalizeReason) (*model.SessionResult, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.State.Terminal() {
		if res := sess.Result(); res != nil {
			return res, nil
		}
		// Abandoned sessions carry no result.
		return nil, ErrSessionNotActive
	}
	return s.finalize(ctx, sess, reason)
}

func (s *SessionService) finalize(ctx context.Context, sess *model.ExamSession, reason model.FinalizeReason) (*model.SessionResult, error) {
	answers, err := s.answers.MapBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	key, err := s.bank.AnswerKey(ctx, sess.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	score := scoring.Grade(answers, key, sess.Policy)

	counts, err := s.counter.Counts(ctx, sess.ID)
	if err != nil {
		// Integrity data is best-effort at finalize time; a clean default
		// beats blocking the score.
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Integrity counts unavailable")
		counts = integrity.Counts{}
	}
	integrityScore := integrity.Aggregate(counts, sess.Policy.Proctoring)

	completedAt := s.clk.Now()
	applied, err := s.sessions.Finalize(ctx, model.Finalization{
		SessionID:      sess.ID,
		State:          reason.State(),
		Reason:         reason,
		Score:          score,
		IntegrityScore: integrityScore,
		CompletedAt:    completedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}
	if !applied {
		// A concurrent finalize won; the stored result is authoritative.
		current, err := s.sessions.GetByID(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		if res := current.Result(); res != nil {
			return res, nil
		}
		return nil, ErrSessionNotActive
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("reason", string(reason)).
		Int("percent", score.Percent).
		Bool("passed", score.Passed).
		Float64("integrity_score", integrityScore).
		Msg("Session finalized")

	return &model.SessionResult{
		SessionID:          sess.ID,
		State:              reason.State(),
		Reason:             reason,
		Score:              score,
		IntegrityScore:     integrityScore,
		IntegrityViolation: reason == model.ReasonIntegrityViolation,
		CompletedAt:        completedAt,
	}, nil
}

// ExpireOverdue finalizes up to limit sessions past their deadline. This is
// the backstop for sessions whose clients never reconnect; lazy expiry on
// read covers the rest.
func (s *SessionService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.sessions.ListOverdue(ctx, s.clk.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list overdue: %w", err)
	}

	finalized := 0
	for i := range overdue {
		if _, err := s.finalize(ctx, &overdue[i], model.ReasonDeadlineExpiry); err != nil {
			s.log.Error().Err(err).Str("session_id", overdue[i].ID.String()).Msg("Sweep finalize failed")
			continue
		}
		finalized++
	}
	return finalized, nil
}

// Abandon administratively invalidates a session. Not reachable through any
// learner-facing flow; carries no score.
func (s *SessionService) Abandon(ctx context.Context, sessionID uuid.UUID) error {
	applied, err := s.sessions.Abandon(ctx, sessionID, s.clk.Now())
	if err != nil {
		return err
	}
	if !applied {
		return ErrSessionNotActive
	}
	s.log.Info().Str("session_id", sessionID.String()).Msg("Session abandoned")
	return nil
}
