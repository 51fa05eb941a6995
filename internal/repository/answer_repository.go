package repository

import (
	"context"
	"time"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRepository handles answer record persistence.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert writes an answer, overwriting any previous selection for the same
// question. The is_final guard makes frozen records immutable even if a
// late write slips past the service's state check.
func (r *AnswerRepository) Upsert(ctx context.Context, sessionID, questionID uuid.UUID, selectedOption string, answeredAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO answer_records (session_id, question_id, selected_option, answered_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET selected_option = EXCLUDED.selected_option,
		     answered_at = EXCLUDED.answered_at
		 WHERE answer_records.is_final = FALSE`,
		sessionID, questionID, selectedOption, answeredAt)
	return err
}

// MapBySession returns the latest selected option per question.
func (r *AnswerRepository) MapBySession(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, selected_option
		 FROM answer_records
		 WHERE session_id = $1 AND selected_option IS NOT NULL`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[uuid.UUID]string)
	for rows.Next() {
		var questionID uuid.UUID
		var selected string
		if err := rows.Scan(&questionID, &selected); err != nil {
			return nil, err
		}
		answers[questionID] = selected
	}
	return answers, rows.Err()
}

// ListBySession returns full answer records ordered by question, for resume
// flows and review surfaces.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AnswerRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, question_id, selected_option, answered_at, is_final
		 FROM answer_records
		 WHERE session_id = $1
		 ORDER BY answered_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AnswerRecord
	for rows.Next() {
		var rec model.AnswerRecord
		if err := rows.Scan(&rec.SessionID, &rec.QuestionID, &rec.SelectedOption, &rec.AnsweredAt, &rec.IsFinal); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
