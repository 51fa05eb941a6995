package repository

import (
	"context"

	"github.com/examind/examind-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistrantRepository handles anonymous registrant persistence.
type RegistrantRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrantRepository creates a new RegistrantRepository.
func NewRegistrantRepository(pool *pgxpool.Pool) *RegistrantRepository {
	return &RegistrantRepository{pool: pool}
}

// Upsert registers a contact fingerprint for an exam. Re-registration with
// the same fingerprint resolves to the existing row: the returned id is
// stable across repeat visits and no duplicate registrant is ever created.
func (r *RegistrantRepository) Upsert(ctx context.Context, reg *model.Registrant) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO registrants (id, exam_id, contact_fingerprint, display_name)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, contact_fingerprint) DO UPDATE
		 SET display_name = EXCLUDED.display_name
		 RETURNING id, created_at`,
		reg.ID, reg.ExamID, reg.ContactFingerprint, reg.DisplayName,
	).Scan(&reg.ID, &reg.CreatedAt)
}
