package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clubkit/clubkit/go/internal/models"
	"github.com/clubkit/clubkit/go/internal/sqlutil"
)

// Repository implements attendance data access over Postgres.
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new attendance repository.
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// Upsert stores the record for (team, occurrence), replacing both sets on
// resubmission.
func (r *Repository) Upsert(ctx context.Context, rec *models.AttendanceRecord) error {
	const query = `
INSERT INTO attendance_records (id, team_id, occurrence_id, present, absent, recorded_by, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (team_id, occurrence_id) DO UPDATE SET
	present = EXCLUDED.present,
	absent = EXCLUDED.absent,
	recorded_by = EXCLUDED.recorded_by,
	updated_at = now()
RETURNING id, updated_at`

	err := r.db.QueryRow(ctx, query,
		rec.ID, rec.TeamID, rec.OccurrenceID,
		sqlutil.UUIDSlice(rec.Present), sqlutil.UUIDSlice(rec.Absent),
		rec.RecordedBy,
	).Scan(&rec.ID, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert attendance record: %w", err)
	}
	return nil
}

// GetByOccurrence retrieves the record for an occurrence, or ErrNoRecord if
// attendance has not been taken yet.
func (r *Repository) GetByOccurrence(ctx context.Context, occurrenceID uuid.UUID) (*models.AttendanceRecord, error) {
	const query = `
SELECT id, team_id, occurrence_id, present, absent, recorded_by, updated_at
FROM attendance_records
WHERE occurrence_id = $1`

	var rec models.AttendanceRecord
	err := r.db.QueryRow(ctx, query, occurrenceID).Scan(
		&rec.ID, &rec.TeamID, &rec.OccurrenceID,
		&rec.Present, &rec.Absent, &rec.RecordedBy, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return &rec, nil
}
