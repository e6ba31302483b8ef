package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clubkit/clubkit/go/internal/models"
	"github.com/clubkit/clubkit/go/internal/sqlutil"
)

const occurrenceColumns = `
	id, title, description, team_id, club_id, created_by, kind, date,
	start_time, end_time, status, coaches, participants, recurrence,
	series_id, series_index, notified_before_start, created_at, updated_at`

// Repository implements occurrence data access over Postgres.
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new schedule repository bound to db, which may be
// a pool or an open transaction.
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// Insert stores a new occurrence.
func (r *Repository) Insert(ctx context.Context, occ *models.Occurrence) error {
	participants, err := sqlutil.ToJSON(occ.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}

	const query = `
INSERT INTO occurrences (
	id, title, description, team_id, club_id, created_by, kind, date,
	start_time, end_time, status, coaches, participants, recurrence,
	series_id, series_index, notified_before_start
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8,
	$9, $10, $11, $12, $13, $14,
	$15, $16, $17
)
RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		occ.ID, occ.Title, occ.Description, occ.TeamID, occ.ClubID,
		occ.CreatedBy, occ.Kind, occ.Date, occ.StartTime, occ.EndTime,
		occ.Status, sqlutil.UUIDSlice(occ.Coaches), participants,
		occ.Recurrence, occ.SeriesID, occ.SeriesIndex, occ.NotifiedBeforeStart,
	).Scan(&occ.CreatedAt, &occ.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert occurrence: %w", err)
	}
	return nil
}

// InsertSeriesMember stores a generated series occurrence, skipping the
// insert if an occurrence with the same (series_id, series_index) already
// exists. Returns whether a row was inserted.
func (r *Repository) InsertSeriesMember(ctx context.Context, occ *models.Occurrence) (bool, error) {
	participants, err := sqlutil.ToJSON(occ.Participants)
	if err != nil {
		return false, fmt.Errorf("failed to encode participants: %w", err)
	}

	const query = `
INSERT INTO occurrences (
	id, title, description, team_id, club_id, created_by, kind, date,
	start_time, end_time, status, coaches, participants, recurrence,
	series_id, series_index, notified_before_start
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8,
	$9, $10, $11, $12, $13, $14,
	$15, $16, $17
)
ON CONFLICT (series_id, series_index) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		occ.ID, occ.Title, occ.Description, occ.TeamID, occ.ClubID,
		occ.CreatedBy, occ.Kind, occ.Date, occ.StartTime, occ.EndTime,
		occ.Status, sqlutil.UUIDSlice(occ.Coaches), participants,
		occ.Recurrence, occ.SeriesID, occ.SeriesIndex, occ.NotifiedBeforeStart,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert series occurrence: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get retrieves an occurrence by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Occurrence, error) {
	query := `SELECT` + occurrenceColumns + ` FROM occurrences WHERE id = $1`

	occ, err := scanOccurrence(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get occurrence: %w", err)
	}
	return occ, nil
}

// UpdateFields applies a single-occurrence patch. Absent fields keep their
// stored value. Date and time fields move only on this occurrence.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, patch OccurrencePatch) (*models.Occurrence, error) {
	participants, err := encodePatchParticipants(patch.Participants)
	if err != nil {
		return nil, err
	}

	query := `
UPDATE occurrences SET
	title = COALESCE($2, title),
	description = COALESCE($3, description),
	team_id = COALESCE($4::uuid, team_id),
	kind = COALESCE($5, kind),
	date = COALESCE($6::date, date),
	start_time = COALESCE($7, start_time),
	end_time = COALESCE($8, end_time),
	coaches = COALESCE($9::uuid[], coaches),
	participants = COALESCE($10::jsonb, participants),
	updated_at = now()
WHERE id = $1
RETURNING` + occurrenceColumns

	occ, err := scanOccurrence(r.db.QueryRow(ctx, query,
		id, patch.Title, patch.Description, patch.TeamID, patch.Kind,
		patch.Date, patch.StartTime, patch.EndTime, derefUUIDs(patch.Coaches),
		participants,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update occurrence: %w", err)
	}
	return occ, nil
}

// UpdateSeriesFields applies a series patch to every non-completed
// occurrence sharing seriesID. Dates and series indexes are untouched.
func (r *Repository) UpdateSeriesFields(ctx context.Context, seriesID uuid.UUID, patch SeriesPatch) (int64, error) {
	participants, err := encodePatchParticipants(patch.Participants)
	if err != nil {
		return 0, err
	}

	query := `
UPDATE occurrences SET
	title = COALESCE($2, title),
	description = COALESCE($3, description),
	kind = COALESCE($4, kind),
	start_time = COALESCE($5, start_time),
	end_time = COALESCE($6, end_time),
	coaches = COALESCE($7::uuid[], coaches),
	participants = COALESCE($8::jsonb, participants),
	updated_at = now()
WHERE series_id = $1 AND status <> $9`

	tag, err := r.db.Exec(ctx, query,
		seriesID, patch.Title, patch.Description, patch.Kind,
		patch.StartTime, patch.EndTime, derefUUIDs(patch.Coaches),
		participants, models.OccurrenceStatusCompleted,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update series: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetStatus transitions an occurrence from one status to another. Returns
// ErrStatusConflict if the occurrence is no longer in the from status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, from, to models.OccurrenceStatus) error {
	const query = `
UPDATE occurrences SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2`

	tag, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to set occurrence status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// List retrieves occurrences matching the filter, ordered by start time.
func (r *Repository) List(ctx context.Context, filter OccurrenceFilter) ([]models.Occurrence, error) {
	query := `SELECT` + occurrenceColumns + `
FROM occurrences
WHERE ($1::uuid IS NULL OR team_id = $1)
  AND ($2::uuid IS NULL OR club_id = $2)
  AND ($3::text IS NULL OR status = $3)
  AND ($4::date IS NULL OR date >= $4)
  AND ($5::date IS NULL OR date <= $5)
ORDER BY date, start_time
LIMIT $6 OFFSET $7`

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}

	rows, err := r.db.Query(ctx, query,
		filter.TeamID, filter.ClubID, filter.Status, filter.From, filter.To,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences: %w", err)
	}
	defer rows.Close()

	return scanOccurrences(rows)
}

// ListSeries retrieves every occurrence in a series ordered by series index.
func (r *Repository) ListSeries(ctx context.Context, seriesID uuid.UUID) ([]models.Occurrence, error) {
	query := `SELECT` + occurrenceColumns + `
FROM occurrences WHERE series_id = $1 ORDER BY series_index`

	rows, err := r.db.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	return scanOccurrences(rows)
}

// ExistsInSeries reports whether an occurrence with the given series index
// already exists. Series expansion uses this to stay idempotent on re-runs.
func (r *Repository) ExistsInSeries(ctx context.Context, seriesID uuid.UUID, index int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM occurrences WHERE series_id = $1 AND series_index = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, seriesID, index).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check series index: %w", err)
	}
	return exists, nil
}

// ListDueForReminder retrieves scheduled, not yet notified occurrences whose
// start time falls within [from, to].
func (r *Repository) ListDueForReminder(ctx context.Context, from, to time.Time, limit int) ([]models.Occurrence, error) {
	query := `SELECT` + occurrenceColumns + `
FROM occurrences
WHERE status = $1
  AND notified_before_start = false
  AND (date + start_time::time) >= $2::timestamp
  AND (date + start_time::time) <= $3::timestamp
ORDER BY date, start_time
LIMIT $4`

	rows, err := r.db.Query(ctx, query, models.OccurrenceStatusScheduled, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due occurrences: %w", err)
	}
	defer rows.Close()

	return scanOccurrences(rows)
}

// MarkNotified flips notified_before_start exactly once. Returns whether this
// call won the flip; a false return means another run already marked it.
func (r *Repository) MarkNotified(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `
UPDATE occurrences SET notified_before_start = true, updated_at = now()
WHERE id = $1 AND notified_before_start = false`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark occurrence notified: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func encodePatchParticipants(p *[]models.Participant) (any, error) {
	if p == nil {
		return nil, nil
	}
	data, err := sqlutil.ToJSON(*p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode participants: %w", err)
	}
	return data, nil
}

func derefUUIDs(ids *[]uuid.UUID) any {
	if ids == nil {
		return nil
	}
	return sqlutil.UUIDSlice(*ids)
}

func scanOccurrence(row pgx.Row) (*models.Occurrence, error) {
	var occ models.Occurrence
	var participants []byte

	err := row.Scan(
		&occ.ID, &occ.Title, &occ.Description, &occ.TeamID, &occ.ClubID,
		&occ.CreatedBy, &occ.Kind, &occ.Date, &occ.StartTime, &occ.EndTime,
		&occ.Status, &occ.Coaches, &participants, &occ.Recurrence,
		&occ.SeriesID, &occ.SeriesIndex, &occ.NotifiedBeforeStart,
		&occ.CreatedAt, &occ.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := sqlutil.FromJSON(participants, &occ.Participants); err != nil {
		return nil, err
	}
	return &occ, nil
}

func scanOccurrences(rows pgx.Rows) ([]models.Occurrence, error) {
	var out []models.Occurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan occurrence: %w", err)
		}
		out = append(out, *occ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read occurrences: %w", err)
	}
	return out, nil
}
