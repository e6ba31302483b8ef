package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clubkit/clubkit/go/internal/jobs"
	"github.com/clubkit/clubkit/go/internal/models"
	"github.com/clubkit/clubkit/go/internal/sqlutil"
)

// maxMonthlyAnchorDay is the last day of month that exists in every month.
// Monthly series anchored on 28-31 would drift or skip months, so they are
// rejected at creation.
const maxMonthlyAnchorDay = 27

// OccurrenceStore defines what the app layer needs from the repository.
type OccurrenceStore interface {
	Insert(ctx context.Context, occ *models.Occurrence) error
	Get(ctx context.Context, id uuid.UUID) (*models.Occurrence, error)
	UpdateFields(ctx context.Context, id uuid.UUID, patch OccurrencePatch) (*models.Occurrence, error)
	UpdateSeriesFields(ctx context.Context, seriesID uuid.UUID, patch SeriesPatch) (int64, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to models.OccurrenceStatus) error
	List(ctx context.Context, filter OccurrenceFilter) ([]models.Occurrence, error)
	ListSeries(ctx context.Context, seriesID uuid.UUID) ([]models.Occurrence, error)
}

// RosterProvider defines what the app layer needs from the team subsystem.
type RosterProvider interface {
	GetTeamRoster(ctx context.Context, teamID uuid.UUID) (*models.Roster, error)
}

// App handles event scheduling business logic.
type App struct {
	txm    TxManager
	store  OccurrenceStore
	roster RosterProvider
}

// NewApp creates a new scheduling App.
func NewApp(txm TxManager, store OccurrenceStore, roster RosterProvider) *App {
	return &App{
		txm:    txm,
		store:  store,
		roster: roster,
	}
}

// CreateOccurrence validates and stores a new occurrence. In the same
// transaction it enqueues a NOTIFY job and, for recurring events, an
// EXPAND_SERIES job, so the jobs exist if and only if the occurrence does.
func (a *App) CreateOccurrence(ctx context.Context, actor uuid.UUID, req CreateOccurrenceRequest) (*models.Occurrence, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	roster, err := a.roster.GetTeamRoster(ctx, req.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve team roster: %w", err)
	}
	if !canManageTeam(actor, roster) {
		return nil, ErrUnauthorized
	}

	occ := &models.Occurrence{
		ID:           uuid.New(),
		Title:        req.Title,
		Description:  req.Description,
		TeamID:       req.TeamID,
		ClubID:       roster.ClubID,
		CreatedBy:    actor,
		Kind:         req.Kind,
		Date:         sqlutil.DateOnly(req.Date),
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Status:       models.OccurrenceStatusScheduled,
		Coaches:      req.Coaches,
		Participants: req.Participants,
		Recurrence:   req.Recurrence,
	}
	if req.Recurrence != models.RecurrenceNone {
		seriesID := uuid.New()
		index := 0
		occ.SeriesID = &seriesID
		occ.SeriesIndex = &index
	}

	err = a.txm.WithTx(ctx, func(ctx context.Context, repos TxRepos) error {
		if err := repos.Occurrences.Insert(ctx, occ); err != nil {
			return err
		}

		notify := jobs.NotifyPayload{OccurrenceID: occ.ID, Title: occ.Title}
		if err := repos.Jobs.Enqueue(ctx, models.JobTypeNotify, notify); err != nil {
			return err
		}

		if occ.IsRecurring() {
			expand := jobs.ExpandSeriesPayload{SeriesID: *occ.SeriesID, BaseEventID: occ.ID}
			if err := repos.Jobs.Enqueue(ctx, models.JobTypeExpandSeries, expand); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("occurrence_id", occ.ID.String()).
		Str("team_id", occ.TeamID.String()).
		Str("kind", string(occ.Kind)).
		Str("recurrence", string(occ.Recurrence)).
		Msg("occurrence created")

	return occ, nil
}

// EditSingle applies a patch to one occurrence. Completed occurrences are
// immutable; fields shared across a series cannot change on one member.
func (a *App) EditSingle(ctx context.Context, actor uuid.UUID, id uuid.UUID, patch OccurrencePatch) (*models.Occurrence, error) {
	occ, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if occ.Status == models.OccurrenceStatusCompleted {
		return nil, ErrEventFrozen
	}
	if occ.SeriesID != nil && (patch.TeamID != nil || patch.Kind != nil) {
		return nil, ErrSeriesFieldLocked
	}
	if err := a.authorizeEdit(ctx, actor, occ); err != nil {
		return nil, err
	}
	if err := validatePatchTimes(occ, patch); err != nil {
		return nil, err
	}
	if patch.Kind != nil && !patch.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	if patch.Date != nil {
		normalized := sqlutil.DateOnly(*patch.Date)
		patch.Date = &normalized
	}

	updated, err := a.store.UpdateFields(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	log.Info().Str("occurrence_id", id.String()).Msg("occurrence updated")
	return updated, nil
}

// EditSeries applies a patch to every occurrence sharing seriesID. Dates
// and series indexes are preserved per occurrence; completed occurrences
// are skipped. Returns the number of occurrences updated.
func (a *App) EditSeries(ctx context.Context, actor uuid.UUID, seriesID uuid.UUID, patch SeriesPatch) (int, error) {
	members, err := a.store.ListSeries(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, ErrNotFound
	}

	base := &members[0]
	if err := a.authorizeEdit(ctx, actor, base); err != nil {
		return 0, err
	}
	if patch.Kind != nil && !patch.Kind.Valid() {
		return 0, ErrInvalidKind
	}
	if patch.StartTime != nil || patch.EndTime != nil {
		// A partial time patch merges with each member's own times, which
		// may have been edited individually, so every member gets checked.
		for i := range members {
			member := &members[i]
			if member.Status == models.OccurrenceStatusCompleted {
				continue
			}
			start, end := member.StartTime, member.EndTime
			if patch.StartTime != nil {
				start = *patch.StartTime
			}
			if patch.EndTime != nil {
				end = *patch.EndTime
			}
			if !start.Valid() || !end.Valid() || !start.Before(end) {
				return 0, ErrInvalidTimeRange
			}
		}
	}

	count, err := a.store.UpdateSeriesFields(ctx, seriesID, patch)
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("series_id", seriesID.String()).
		Int64("updated", count).
		Msg("series updated")

	return int(count), nil
}

// Cancel soft-cancels an occurrence: the status flips, nothing is deleted.
func (a *App) Cancel(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	occ, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if occ.Status == models.OccurrenceStatusCompleted {
		return ErrEventFrozen
	}
	if occ.Status == models.OccurrenceStatusCancelled {
		return nil
	}
	if err := a.authorizeEdit(ctx, actor, occ); err != nil {
		return err
	}

	if err := a.store.SetStatus(ctx, id, occ.Status, models.OccurrenceStatusCancelled); err != nil {
		return err
	}

	log.Info().Str("occurrence_id", id.String()).Msg("occurrence cancelled")
	return nil
}

// Complete marks a scheduled occurrence completed. The transition happens
// once; afterwards the occurrence is frozen.
func (a *App) Complete(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	occ, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if occ.Status == models.OccurrenceStatusCompleted {
		return ErrEventFrozen
	}
	if err := a.authorizeEdit(ctx, actor, occ); err != nil {
		return err
	}

	if err := a.store.SetStatus(ctx, id, models.OccurrenceStatusScheduled, models.OccurrenceStatusCompleted); err != nil {
		return err
	}

	log.Info().Str("occurrence_id", id.String()).Msg("occurrence completed")
	return nil
}

// Get retrieves one occurrence.
func (a *App) Get(ctx context.Context, id uuid.UUID) (*models.Occurrence, error) {
	return a.store.Get(ctx, id)
}

// List retrieves occurrences matching the filter.
func (a *App) List(ctx context.Context, filter OccurrenceFilter) ([]models.Occurrence, error) {
	return a.store.List(ctx, filter)
}

func (a *App) authorizeEdit(ctx context.Context, actor uuid.UUID, occ *models.Occurrence) error {
	if actor == occ.CreatedBy {
		return nil
	}
	roster, err := a.roster.GetTeamRoster(ctx, occ.TeamID)
	if err != nil {
		return fmt.Errorf("failed to resolve team roster: %w", err)
	}
	if !canManageTeam(actor, roster) {
		return ErrUnauthorized
	}
	return nil
}

// canManageTeam reports whether actor is the club owner or a coach of the
// team.
func canManageTeam(actor uuid.UUID, roster *models.Roster) bool {
	return actor == roster.OwnerID || roster.HasCoach(actor)
}

func validateCreateRequest(req CreateOccurrenceRequest) error {
	if req.Title == "" {
		return ErrTitleRequired
	}
	if !req.Kind.Valid() {
		return ErrInvalidKind
	}
	if !req.Recurrence.Valid() {
		return ErrInvalidRecurrence
	}
	if !req.StartTime.Valid() || !req.EndTime.Valid() || !req.StartTime.Before(req.EndTime) {
		return ErrInvalidTimeRange
	}
	if req.Date.IsZero() {
		return ErrInvalidTimeRange
	}
	if req.Recurrence == models.RecurrenceMonthly && req.Date.Day() > maxMonthlyAnchorDay {
		return ErrInvalidRecurrenceAnchor
	}
	return nil
}

func validatePatchTimes(occ *models.Occurrence, patch OccurrencePatch) error {
	start, end := occ.StartTime, occ.EndTime
	if patch.StartTime != nil {
		start = *patch.StartTime
	}
	if patch.EndTime != nil {
		end = *patch.EndTime
	}
	if !start.Valid() || !end.Valid() || !start.Before(end) {
		return ErrInvalidTimeRange
	}
	return nil
}
