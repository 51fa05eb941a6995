package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository is the read-only boundary to the question bank. No method on
// it mutates exam definitions or answer keys.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam definition including its proctoring policy.
func (r *ExamRepository) GetByID(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	var proctoring []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_minutes, total_questions, passing_score_percent,
		        is_public, is_active, proctoring_policy, created_at, updated_at
		 FROM exams
		 WHERE id = $1`, examID,
	).Scan(&e.ID, &e.Title, &e.DurationMinutes, &e.TotalQuestions, &e.PassingScorePercent,
		&e.IsPublic, &e.IsActive, &proctoring, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("exam %s: %w", examID, ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal(proctoring, &e.Proctoring); err != nil {
		return nil, fmt.Errorf("decode proctoring policy: %w", err)
	}
	return e, nil
}

// AnswerKey loads the exam's full answer key, keyed by question id.
func (r *ExamRepository) AnswerKey(ctx context.Context, examID uuid.UUID) (scoring.AnswerKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, correct_option FROM questions WHERE exam_id = $1`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	key := make(scoring.AnswerKey)
	for rows.Next() {
		var questionID uuid.UUID
		var correct string
		if err := rows.Scan(&questionID, &correct); err != nil {
			return nil, err
		}
		key[questionID] = correct
	}
	return key, rows.Err()
}

// HasQuestion reports whether a question belongs to an exam.
func (r *ExamRepository) HasQuestion(ctx context.Context, examID, questionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1 AND exam_id = $2)`,
		questionID, examID,
	).Scan(&exists)
	return exists, err
}

// GetQuestion retrieves a single question with its answer key and authored
// explanation. Used by the post-exam review surfaces only.
func (r *ExamRepository) GetQuestion(ctx context.Context, questionID uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, question_text, options, correct_option, COALESCE(explanation, ''), order_num
		 FROM questions
		 WHERE id = $1`, questionID,
	).Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.Options, &q.CorrectOption, &q.Explanation, &q.OrderNum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
		}
		return nil, err
	}
	return q, nil
}
