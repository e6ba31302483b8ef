package series

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clubkit/clubkit/go/internal/jobs"
	"github.com/clubkit/clubkit/go/internal/models"
)

// Store defines what the expander needs from the event store.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Occurrence, error)
	InsertSeriesMember(ctx context.Context, occ *models.Occurrence) (bool, error)
}

// Expander materializes the future occurrences of a recurring series, from
// the base occurrence up to one year after the base date. Re-running an
// expansion after a partial failure is safe: every insert is keyed on
// (series_id, series_index) and skipped when the row already exists.
type Expander struct {
	store Store
}

// NewExpander creates a series expander.
func NewExpander(store Store) *Expander {
	return &Expander{store: store}
}

// HandleJob is the EXPAND_SERIES job handler.
func (e *Expander) HandleJob(ctx context.Context, payload []byte) error {
	var p jobs.ExpandSeriesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode expand-series payload: %w", err)
	}
	return e.Expand(ctx, p.SeriesID, p.BaseEventID)
}

// Expand generates every remaining occurrence of the series.
func (e *Expander) Expand(ctx context.Context, seriesID, baseEventID uuid.UUID) error {
	base, err := e.store.Get(ctx, baseEventID)
	if err != nil {
		return fmt.Errorf("failed to load base occurrence: %w", err)
	}
	if base.SeriesID == nil || *base.SeriesID != seriesID {
		return fmt.Errorf("occurrence %s does not belong to series %s", baseEventID, seriesID)
	}

	step, err := stepFunc(base.Recurrence)
	if err != nil {
		return err
	}

	until := base.Date.AddDate(1, 0, 0)
	inserted := 0
	skipped := 0

	date := step(base.Date)
	for index := 1; !date.After(until); index++ {
		idx := index
		occ := &models.Occurrence{
			ID:           uuid.New(),
			Title:        base.Title,
			Description:  base.Description,
			TeamID:       base.TeamID,
			ClubID:       base.ClubID,
			CreatedBy:    base.CreatedBy,
			Kind:         base.Kind,
			Date:         date,
			StartTime:    base.StartTime,
			EndTime:      base.EndTime,
			Status:       models.OccurrenceStatusScheduled,
			Coaches:      base.Coaches,
			Participants: base.Participants,
			Recurrence:   base.Recurrence,
			SeriesID:     base.SeriesID,
			SeriesIndex:  &idx,
		}

		ok, err := e.store.InsertSeriesMember(ctx, occ)
		if err != nil {
			return fmt.Errorf("failed to insert occurrence %d of series %s: %w", index, seriesID, err)
		}
		if ok {
			inserted++
		} else {
			skipped++
		}

		date = step(date)
	}

	log.Info().
		Str("series_id", seriesID.String()).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Msg("series expanded")

	return nil
}

// stepFunc returns the date increment for one recurrence unit. Monthly adds
// one calendar month; the base day-of-month is at most 27, so the anchored
// day exists in every target month and AddDate never rolls over.
func stepFunc(r models.Recurrence) (func(time.Time) time.Time, error) {
	switch r {
	case models.RecurrenceDaily:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }, nil
	case models.RecurrenceWeekly:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }, nil
	case models.RecurrenceMonthly:
		return func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }, nil
	default:
		return nil, fmt.Errorf("recurrence %q cannot be expanded", r)
	}
}
