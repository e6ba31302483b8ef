package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/clubkit/clubkit/go/internal/models"
)

// CreateOccurrenceRequest represents the data needed to schedule a new
// occurrence. Recurring requests describe the base occurrence of the series;
// the remaining occurrences are materialized asynchronously.
type CreateOccurrenceRequest struct {
	Title        string               `json:"title"`
	Description  string               `json:"description,omitempty"`
	TeamID       uuid.UUID            `json:"team_id"`
	Kind         models.EventKind     `json:"kind"`
	Date         time.Time            `json:"date"`
	StartTime    models.TimeOfDay     `json:"start_time"`
	EndTime      models.TimeOfDay     `json:"end_time"`
	Coaches      []uuid.UUID          `json:"coaches,omitempty"`
	Participants []models.Participant `json:"participants,omitempty"`
	Recurrence   models.Recurrence    `json:"recurrence"`
}

// OccurrencePatch is the set of fields a single-occurrence edit may change.
// Identity, club, creator and series linkage are not representable here, so
// they cannot be changed by construction.
type OccurrencePatch struct {
	Title        *string               `json:"title,omitempty"`
	Description  *string               `json:"description,omitempty"`
	TeamID       *uuid.UUID            `json:"team_id,omitempty"`
	Kind         *models.EventKind     `json:"kind,omitempty"`
	Date         *time.Time            `json:"date,omitempty"`
	StartTime    *models.TimeOfDay     `json:"start_time,omitempty"`
	EndTime      *models.TimeOfDay     `json:"end_time,omitempty"`
	Coaches      *[]uuid.UUID          `json:"coaches,omitempty"`
	Participants *[]models.Participant `json:"participants,omitempty"`
}

// SeriesPatch is the set of fields a series-wide edit may change. Date is
// deliberately absent: a series edit never shifts any occurrence's date,
// while new wall-clock times apply to every occurrence on its own date.
type SeriesPatch struct {
	Title        *string               `json:"title,omitempty"`
	Description  *string               `json:"description,omitempty"`
	Kind         *models.EventKind     `json:"kind,omitempty"`
	StartTime    *models.TimeOfDay     `json:"start_time,omitempty"`
	EndTime      *models.TimeOfDay     `json:"end_time,omitempty"`
	Coaches      *[]uuid.UUID          `json:"coaches,omitempty"`
	Participants *[]models.Participant `json:"participants,omitempty"`
}

// OccurrenceFilter represents filtering options for occurrence listings.
type OccurrenceFilter struct {
	TeamID *uuid.UUID               `json:"team_id,omitempty"`
	ClubID *uuid.UUID               `json:"club_id,omitempty"`
	Status *models.OccurrenceStatus `json:"status,omitempty"`
	From   *time.Time               `json:"from,omitempty"`
	To     *time.Time               `json:"to,omitempty"`
	Limit  int                      `json:"limit,omitempty"`
	Offset int                      `json:"offset,omitempty"`
}

// EditScope selects whether an edit applies to one occurrence or to every
// occurrence in its series.
type EditScope string

const (
	EditScopeSingle EditScope = "single"
	EditScopeSeries EditScope = "series"
)
