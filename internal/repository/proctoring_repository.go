package repository

import (
	"context"

	"github.com/examind/examind-backend/internal/integrity"
	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProctoringRepository handles the append-only proctoring event log.
type ProctoringRepository struct {
	pool *pgxpool.Pool
}

// NewProctoringRepository creates a new ProctoringRepository.
func NewProctoringRepository(pool *pgxpool.Pool) *ProctoringRepository {
	return &ProctoringRepository{pool: pool}
}

// BulkInsert writes a batch of events with COPY. Used by the persistence
// worker; a failure of the whole batch falls back to Insert per event.
func (r *ProctoringRepository) BulkInsert(ctx context.Context, events []model.ProctoringEvent) error {
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{e.SessionID, string(e.Type), []byte(e.Metadata), e.OccurredAt})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"proctoring_events"},
		[]string{"session_id", "event_type", "metadata", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert writes a single event.
func (r *ProctoringRepository) Insert(ctx context.Context, e model.ProctoringEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO proctoring_events (session_id, event_type, metadata, occurred_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		e.SessionID, string(e.Type), []byte(e.Metadata), e.OccurredAt)
	return err
}

// CountsBySession tallies penalizable event types from the durable log.
// Serves as the fallback when the Redis counters are unavailable.
func (r *ProctoringRepository) CountsBySession(ctx context.Context, sessionID uuid.UUID) (integrity.Counts, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT event_type, COUNT(*)
		 FROM proctoring_events
		 WHERE session_id = $1
		 GROUP BY event_type`, sessionID)
	if err != nil {
		return integrity.Counts{}, err
	}
	defer rows.Close()

	var counts integrity.Counts
	for rows.Next() {
		var eventType string
		var n int
		if err := rows.Scan(&eventType, &n); err != nil {
			return integrity.Counts{}, err
		}
		switch model.EventType(eventType) {
		case model.EventFocusLost:
			counts.FocusLost = n
		case model.EventTabSwitch:
			counts.TabSwitch = n
		case model.EventWebcamFlag:
			counts.WebcamFlag = n
		}
	}
	return counts, rows.Err()
}
