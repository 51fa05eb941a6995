package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles exam session persistence. Sessions are never
// deleted; every row is an audit record that only moves forward through the
// state machine.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, exam_id, identity_id, state, started_at, deadline_at,
	completed_at, policy_snapshot, correct_count, total_questions, score_percent,
	passed, integrity_score, finalize_reason`

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	var (
		policy         []byte
		correctCount   *int
		totalQuestions *int
		scorePercent   *int
		passed         *bool
		reason         *string
	)
	err := row.Scan(&s.ID, &s.ExamID, &s.IdentityID, &s.State, &s.StartedAt, &s.DeadlineAt,
		&s.CompletedAt, &policy, &correctCount, &totalQuestions, &scorePercent,
		&passed, &s.IntegrityScore, &reason)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(policy, &s.Policy); err != nil {
		return nil, fmt.Errorf("decode policy snapshot: %w", err)
	}
	if correctCount != nil && totalQuestions != nil && scorePercent != nil && passed != nil {
		s.Score = &model.Score{
			CorrectCount:   *correctCount,
			TotalQuestions: *totalQuestions,
			Percent:        *scorePercent,
			Passed:         *passed,
		}
	}
	if reason != nil {
		r := model.FinalizeReason(*reason)
		s.Reason = &r
	}
	return s, nil
}

// Create inserts a new session. The partial unique index on
// exam_sessions(identity_id) over non-terminal states makes the
// check-and-create atomic: a concurrent duplicate insert hits the conflict
// clause, scans no row, and surfaces ErrActiveSessionExists.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	policy, err := json.Marshal(s.Policy)
	if err != nil {
		return fmt.Errorf("encode policy snapshot: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (id, exam_id, identity_id, state, started_at, deadline_at, policy_snapshot)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (identity_id) WHERE state IN ('CREATED', 'IN_PROGRESS') DO NOTHING
		 RETURNING id`,
		s.ID, s.ExamID, s.IdentityID, s.State, s.StartedAt, s.DeadlineAt, policy,
	).Scan(&s.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrActiveSessionExists
	}
	return err
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return s, err
}

// GetActiveByIdentity retrieves the identity's non-terminal session, if any.
func (r *SessionRepository) GetActiveByIdentity(ctx context.Context, identityID uuid.UUID) (*model.ExamSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE identity_id = $1 AND state IN ('CREATED', 'IN_PROGRESS')`, identityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("active session for %s: %w", identityID, ErrNotFound)
	}
	return s, err
}

// Finalize atomically applies the terminal transition, the score, and the
// answer freeze in one transaction. Returns false without error when the
// session was already terminal (a concurrent finalize won the race); the
// caller should re-read and return the stored result.
func (r *SessionRepository) Finalize(ctx context.Context, f model.Finalization) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin finalize tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exam_sessions
		 SET state = $1,
		     finalize_reason = $2,
		     correct_count = $3,
		     total_questions = $4,
		     score_percent = $5,
		     passed = $6,
		     integrity_score = $7,
		     completed_at = $8
		 WHERE id = $9 AND state IN ('CREATED', 'IN_PROGRESS')`,
		f.State, f.Reason, f.Score.CorrectCount, f.Score.TotalQuestions,
		f.Score.Percent, f.Score.Passed, f.IntegrityScore, f.CompletedAt, f.SessionID)
	if err != nil {
		return false, fmt.Errorf("finalize session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	// Freeze every answer record in the same transaction: no state transition
	// without the freeze, no freeze without the transition.
	if _, err := tx.Exec(ctx,
		`UPDATE answer_records SET is_final = TRUE WHERE session_id = $1`, f.SessionID); err != nil {
		return false, fmt.Errorf("freeze answers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit finalize tx: %w", err)
	}
	return true, nil
}

// Abandon marks a session administratively invalidated. No score is written.
// Returns false when the session was already terminal.
func (r *SessionRepository) Abandon(ctx context.Context, sessionID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET state = $1, completed_at = $2
		 WHERE id = $3 AND state IN ('CREATED', 'IN_PROGRESS')`,
		model.SessionStateAbandoned, at, sessionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListOverdue returns up to limit non-terminal sessions whose deadline has
// passed. Used by the backstop sweeper.
func (r *SessionRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE state IN ('CREATED', 'IN_PROGRESS') AND deadline_at <= $1
		 ORDER BY deadline_at ASC
		 LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
