package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clubkit/clubkit/go/internal/models"
)

var (
	// ErrNoRecord is returned by the repository when attendance has not been
	// taken for an occurrence. Callers translate it into the default sheet.
	ErrNoRecord = errors.New("no attendance record")

	// ErrNotTeamOccurrence is returned when the occurrence does not belong
	// to the given team.
	ErrNotTeamOccurrence = errors.New("occurrence does not belong to team")
)

// Store defines what the attendance app needs from its repository.
type Store interface {
	Upsert(ctx context.Context, rec *models.AttendanceRecord) error
	GetByOccurrence(ctx context.Context, occurrenceID uuid.UUID) (*models.AttendanceRecord, error)
}

// OccurrenceGetter defines what the attendance app needs from the event
// store: only a read path to locate the occurrence's team.
type OccurrenceGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Occurrence, error)
}

// RosterProvider defines what the attendance app needs from the team
// subsystem.
type RosterProvider interface {
	GetTeamRoster(ctx context.Context, teamID uuid.UUID) (*models.Roster, error)
}

// Sheet is the attendance view for an occurrence. IsExisting distinguishes
// "taken" from "not yet taken": a missing record yields the live roster with
// everyone defaulted to present, so a caller can pre-fill a form without
// creating anything.
type Sheet struct {
	IsExisting bool        `json:"is_existing"`
	TeamID     uuid.UUID   `json:"team_id"`
	Present    []uuid.UUID `json:"present"`
	Absent     []uuid.UUID `json:"absent"`
}

// App handles attendance business logic.
type App struct {
	store       Store
	occurrences OccurrenceGetter
	roster      RosterProvider
}

// NewApp creates a new attendance App.
func NewApp(store Store, occurrences OccurrenceGetter, roster RosterProvider) *App {
	return &App{
		store:       store,
		occurrences: occurrences,
		roster:      roster,
	}
}

// Record classifies the full roster for an occurrence: everyone in present
// (intersected with the roster) is present, every other roster member is
// absent. Resubmissions replace the previous record.
func (a *App) Record(ctx context.Context, actor, teamID, occurrenceID uuid.UUID, present []uuid.UUID) (*models.AttendanceRecord, error) {
	occ, err := a.occurrences.Get(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	if occ.TeamID != teamID {
		return nil, ErrNotTeamOccurrence
	}

	roster, err := a.roster.GetTeamRoster(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve team roster: %w", err)
	}

	presentSet := make(map[uuid.UUID]struct{}, len(present))
	for _, id := range present {
		presentSet[id] = struct{}{}
	}

	rec := &models.AttendanceRecord{
		ID:           uuid.New(),
		TeamID:       teamID,
		OccurrenceID: occurrenceID,
		RecordedBy:   actor,
	}
	for _, member := range roster.Members {
		if _, ok := presentSet[member]; ok {
			rec.Present = append(rec.Present, member)
		} else {
			rec.Absent = append(rec.Absent, member)
		}
	}

	if err := a.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	log.Info().
		Str("occurrence_id", occurrenceID.String()).
		Str("team_id", teamID.String()).
		Int("present", len(rec.Present)).
		Int("absent", len(rec.Absent)).
		Msg("attendance recorded")

	return rec, nil
}

// SheetForOccurrence returns the stored record when one exists, or a default
// sheet built from the live roster with every member present.
func (a *App) SheetForOccurrence(ctx context.Context, occurrenceID uuid.UUID) (*Sheet, error) {
	rec, err := a.store.GetByOccurrence(ctx, occurrenceID)
	if err == nil {
		return &Sheet{
			IsExisting: true,
			TeamID:     rec.TeamID,
			Present:    rec.Present,
			Absent:     rec.Absent,
		}, nil
	}
	if !errors.Is(err, ErrNoRecord) {
		return nil, err
	}

	occ, err := a.occurrences.Get(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	roster, err := a.roster.GetTeamRoster(ctx, occ.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve team roster: %w", err)
	}

	return &Sheet{
		IsExisting: false,
		TeamID:     occ.TeamID,
		Present:    append([]uuid.UUID(nil), roster.Members...),
		Absent:     []uuid.UUID{},
	}, nil
}
