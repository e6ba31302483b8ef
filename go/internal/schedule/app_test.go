package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clubkit/clubkit/go/internal/models"
)

type fakeOccurrenceStore struct {
	occs          map[uuid.UUID]*models.Occurrence
	series        map[uuid.UUID][]models.Occurrence
	inserted      []*models.Occurrence
	updatedPatch  *OccurrencePatch
	seriesPatch   *SeriesPatch
	statusChanges []models.OccurrenceStatus
}

func newFakeOccurrenceStore() *fakeOccurrenceStore {
	return &fakeOccurrenceStore{
		occs:   make(map[uuid.UUID]*models.Occurrence),
		series: make(map[uuid.UUID][]models.Occurrence),
	}
}

func (s *fakeOccurrenceStore) Insert(_ context.Context, occ *models.Occurrence) error {
	s.occs[occ.ID] = occ
	s.inserted = append(s.inserted, occ)
	return nil
}

func (s *fakeOccurrenceStore) Get(_ context.Context, id uuid.UUID) (*models.Occurrence, error) {
	occ, ok := s.occs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return occ, nil
}

func (s *fakeOccurrenceStore) UpdateFields(_ context.Context, id uuid.UUID, patch OccurrencePatch) (*models.Occurrence, error) {
	occ, ok := s.occs[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.updatedPatch = &patch
	if patch.Title != nil {
		occ.Title = *patch.Title
	}
	if patch.StartTime != nil {
		occ.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		occ.EndTime = *patch.EndTime
	}
	if patch.Date != nil {
		occ.Date = *patch.Date
	}
	return occ, nil
}

func (s *fakeOccurrenceStore) UpdateSeriesFields(_ context.Context, seriesID uuid.UUID, patch SeriesPatch) (int64, error) {
	s.seriesPatch = &patch
	return int64(len(s.series[seriesID])), nil
}

func (s *fakeOccurrenceStore) SetStatus(_ context.Context, id uuid.UUID, from, to models.OccurrenceStatus) error {
	occ, ok := s.occs[id]
	if !ok {
		return ErrNotFound
	}
	if occ.Status != from {
		return ErrStatusConflict
	}
	occ.Status = to
	s.statusChanges = append(s.statusChanges, to)
	return nil
}

func (s *fakeOccurrenceStore) List(_ context.Context, _ OccurrenceFilter) ([]models.Occurrence, error) {
	return nil, nil
}

func (s *fakeOccurrenceStore) ListSeries(_ context.Context, seriesID uuid.UUID) ([]models.Occurrence, error) {
	return s.series[seriesID], nil
}

type enqueued struct {
	jobType models.JobType
	payload any
}

type fakeEnqueuer struct {
	jobs []enqueued
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, jobType models.JobType, payload any) error {
	e.jobs = append(e.jobs, enqueued{jobType: jobType, payload: payload})
	return nil
}

type fakeTxManager struct {
	store *fakeOccurrenceStore
	jobs  *fakeEnqueuer
}

func (m *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error {
	return fn(ctx, TxRepos{Occurrences: m.store, Jobs: m.jobs})
}

type fakeRoster struct {
	roster *models.Roster
}

func (r *fakeRoster) GetTeamRoster(_ context.Context, _ uuid.UUID) (*models.Roster, error) {
	return r.roster, nil
}

type appFixture struct {
	app    *App
	store  *fakeOccurrenceStore
	jobs   *fakeEnqueuer
	owner  uuid.UUID
	coach  uuid.UUID
	member uuid.UUID
	teamID uuid.UUID
}

func newAppFixture() *appFixture {
	f := &appFixture{
		store:  newFakeOccurrenceStore(),
		jobs:   &fakeEnqueuer{},
		owner:  uuid.New(),
		coach:  uuid.New(),
		member: uuid.New(),
		teamID: uuid.New(),
	}
	roster := &fakeRoster{roster: &models.Roster{
		TeamID:  f.teamID,
		ClubID:  uuid.New(),
		OwnerID: f.owner,
		Members: []uuid.UUID{f.member},
		Coaches: []uuid.UUID{f.coach},
	}}
	f.app = NewApp(&fakeTxManager{store: f.store, jobs: f.jobs}, f.store, roster)
	return f
}

func validCreateRequest(teamID uuid.UUID) CreateOccurrenceRequest {
	return CreateOccurrenceRequest{
		Title:      "Team practice",
		TeamID:     teamID,
		Kind:       models.EventKindTraining,
		Date:       time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		StartTime:  "18:00",
		EndTime:    "19:30",
		Recurrence: models.RecurrenceNone,
	}
}

func TestCreateOccurrenceEnqueuesNotify(t *testing.T) {
	f := newAppFixture()

	occ, err := f.app.CreateOccurrence(context.Background(), f.coach, validCreateRequest(f.teamID))
	if err != nil {
		t.Fatalf("CreateOccurrence failed: %v", err)
	}

	if occ.Status != models.OccurrenceStatusScheduled {
		t.Errorf("status = %s, want SCHEDULED", occ.Status)
	}
	if occ.SeriesID != nil {
		t.Error("one-off occurrence should not carry a series id")
	}
	if len(f.jobs.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(f.jobs.jobs))
	}
	if f.jobs.jobs[0].jobType != models.JobTypeNotify {
		t.Errorf("job type = %s, want NOTIFY", f.jobs.jobs[0].jobType)
	}
}

func TestCreateRecurringEnqueuesExpansion(t *testing.T) {
	f := newAppFixture()
	req := validCreateRequest(f.teamID)
	req.Recurrence = models.RecurrenceWeekly

	occ, err := f.app.CreateOccurrence(context.Background(), f.owner, req)
	if err != nil {
		t.Fatalf("CreateOccurrence failed: %v", err)
	}

	if occ.SeriesID == nil {
		t.Fatal("recurring occurrence missing series id")
	}
	if occ.SeriesIndex == nil || *occ.SeriesIndex != 0 {
		t.Fatal("recurring base occurrence must be series index 0")
	}

	types := make(map[models.JobType]bool, len(f.jobs.jobs))
	for _, j := range f.jobs.jobs {
		types[j.jobType] = true
	}
	if len(f.jobs.jobs) != 2 || !types[models.JobTypeNotify] || !types[models.JobTypeExpandSeries] {
		t.Fatalf("expected NOTIFY and EXPAND_SERIES jobs, got %v", f.jobs.jobs)
	}
}

func TestCreateOccurrenceValidation(t *testing.T) {
	f := newAppFixture()

	tests := []struct {
		name    string
		mutate  func(*CreateOccurrenceRequest)
		wantErr error
	}{
		{"missing title", func(r *CreateOccurrenceRequest) { r.Title = "" }, ErrTitleRequired},
		{"unknown kind", func(r *CreateOccurrenceRequest) { r.Kind = "PICNIC" }, ErrInvalidKind},
		{"unknown recurrence", func(r *CreateOccurrenceRequest) { r.Recurrence = "YEARLY" }, ErrInvalidRecurrence},
		{"end before start", func(r *CreateOccurrenceRequest) { r.StartTime, r.EndTime = "19:00", "18:00" }, ErrInvalidTimeRange},
		{"end equals start", func(r *CreateOccurrenceRequest) { r.EndTime = r.StartTime }, ErrInvalidTimeRange},
		{"malformed time", func(r *CreateOccurrenceRequest) { r.StartTime = "6pm" }, ErrInvalidTimeRange},
		{"unpadded end before start", func(r *CreateOccurrenceRequest) { r.StartTime, r.EndTime = "10:00", "9:30" }, ErrInvalidTimeRange},
		{"unpadded start", func(r *CreateOccurrenceRequest) { r.StartTime = "9:30" }, ErrInvalidTimeRange},
		{"monthly anchored past 27", func(r *CreateOccurrenceRequest) {
			r.Recurrence = models.RecurrenceMonthly
			r.Date = time.Date(2025, time.January, 29, 0, 0, 0, 0, time.UTC)
		}, ErrInvalidRecurrenceAnchor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest(f.teamID)
			tt.mutate(&req)
			if _, err := f.app.CreateOccurrence(context.Background(), f.coach, req); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMonthlyOnDay27Allowed(t *testing.T) {
	f := newAppFixture()
	req := validCreateRequest(f.teamID)
	req.Recurrence = models.RecurrenceMonthly
	req.Date = time.Date(2025, time.January, 27, 0, 0, 0, 0, time.UTC)

	if _, err := f.app.CreateOccurrence(context.Background(), f.coach, req); err != nil {
		t.Fatalf("CreateOccurrence failed: %v", err)
	}
}

func TestCreateOccurrenceRequiresManager(t *testing.T) {
	f := newAppFixture()

	if _, err := f.app.CreateOccurrence(context.Background(), f.member, validCreateRequest(f.teamID)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if len(f.jobs.jobs) != 0 {
		t.Fatal("unauthorized create must not enqueue jobs")
	}
}

func (f *appFixture) seedOccurrence(t *testing.T, mutate func(*models.Occurrence)) *models.Occurrence {
	t.Helper()
	occ := &models.Occurrence{
		ID:         uuid.New(),
		Title:      "Team practice",
		TeamID:     f.teamID,
		ClubID:     uuid.New(),
		CreatedBy:  f.coach,
		Kind:       models.EventKindTraining,
		Date:       time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		StartTime:  "18:00",
		EndTime:    "19:30",
		Status:     models.OccurrenceStatusScheduled,
		Recurrence: models.RecurrenceNone,
	}
	if mutate != nil {
		mutate(occ)
	}
	f.store.occs[occ.ID] = occ
	return occ
}

func TestEditSingleFrozenWhenCompleted(t *testing.T) {
	f := newAppFixture()
	occ := f.seedOccurrence(t, func(o *models.Occurrence) { o.Status = models.OccurrenceStatusCompleted })

	title := "Moved practice"
	if _, err := f.app.EditSingle(context.Background(), f.coach, occ.ID, OccurrencePatch{Title: &title}); !errors.Is(err, ErrEventFrozen) {
		t.Fatalf("got %v, want ErrEventFrozen", err)
	}
}

func TestEditSingleLocksSeriesFields(t *testing.T) {
	f := newAppFixture()
	seriesID := uuid.New()
	index := 3
	occ := f.seedOccurrence(t, func(o *models.Occurrence) {
		o.Recurrence = models.RecurrenceWeekly
		o.SeriesID = &seriesID
		o.SeriesIndex = &index
	})

	otherTeam := uuid.New()
	if _, err := f.app.EditSingle(context.Background(), f.coach, occ.ID, OccurrencePatch{TeamID: &otherTeam}); !errors.Is(err, ErrSeriesFieldLocked) {
		t.Fatalf("team change: got %v, want ErrSeriesFieldLocked", err)
	}

	kind := models.EventKindMatch
	if _, err := f.app.EditSingle(context.Background(), f.coach, occ.ID, OccurrencePatch{Kind: &kind}); !errors.Is(err, ErrSeriesFieldLocked) {
		t.Fatalf("kind change: got %v, want ErrSeriesFieldLocked", err)
	}

	// Non-shared fields stay editable on a single series member.
	title := "Special session"
	if _, err := f.app.EditSingle(context.Background(), f.coach, occ.ID, OccurrencePatch{Title: &title}); err != nil {
		t.Fatalf("title change failed: %v", err)
	}
}

func TestEditSingleValidatesTimesAgainstCurrent(t *testing.T) {
	f := newAppFixture()
	occ := f.seedOccurrence(t, nil)

	// New start after the existing end.
	start := models.TimeOfDay("20:00")
	if _, err := f.app.EditSingle(context.Background(), f.coach, occ.ID, OccurrencePatch{StartTime: &start}); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("got %v, want ErrInvalidTimeRange", err)
	}

	// Moving both together is fine.
	end := models.TimeOfDay("21:00")
	if _, err := f.app.EditSingle(context.Background(), f.coach, occ.ID, OccurrencePatch{StartTime: &start, EndTime: &end}); err != nil {
		t.Fatalf("EditSingle failed: %v", err)
	}

	// An unpadded time must not sneak past the range check.
	unpadded := models.TimeOfDay("9:30")
	if _, err := f.app.EditSingle(context.Background(), f.coach, occ.ID, OccurrencePatch{EndTime: &unpadded}); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("unpadded end: got %v, want ErrInvalidTimeRange", err)
	}
}

func TestEditSingleCreatorAllowed(t *testing.T) {
	f := newAppFixture()
	creator := uuid.New() // not on the roster at all
	occ := f.seedOccurrence(t, func(o *models.Occurrence) { o.CreatedBy = creator })

	title := "Renamed"
	if _, err := f.app.EditSingle(context.Background(), creator, occ.ID, OccurrencePatch{Title: &title}); err != nil {
		t.Fatalf("creator edit failed: %v", err)
	}

	if _, err := f.app.EditSingle(context.Background(), f.member, occ.ID, OccurrencePatch{Title: &title}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("member edit: got %v, want ErrUnauthorized", err)
	}
}

func TestEditSeriesPreservesDates(t *testing.T) {
	f := newAppFixture()
	seriesID := uuid.New()
	var members []models.Occurrence
	for i := 0; i < 3; i++ {
		idx := i
		occ := f.seedOccurrence(t, func(o *models.Occurrence) {
			o.Recurrence = models.RecurrenceWeekly
			o.SeriesID = &seriesID
			o.SeriesIndex = &idx
			o.Date = time.Date(2025, time.June, 10+7*idx, 0, 0, 0, 0, time.UTC)
		})
		members = append(members, *occ)
	}
	f.store.series[seriesID] = members

	start := models.TimeOfDay("17:00")
	count, err := f.app.EditSeries(context.Background(), f.coach, seriesID, SeriesPatch{StartTime: &start})
	if err != nil {
		t.Fatalf("EditSeries failed: %v", err)
	}
	if count != 3 {
		t.Errorf("updated %d occurrences, want 3", count)
	}
	if f.store.seriesPatch == nil || f.store.seriesPatch.StartTime == nil || *f.store.seriesPatch.StartTime != start {
		t.Fatal("series patch not forwarded to the store")
	}
}

func TestEditSeriesUnknown(t *testing.T) {
	f := newAppFixture()
	title := "Renamed"
	if _, err := f.app.EditSeries(context.Background(), f.coach, uuid.New(), SeriesPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestEditSeriesRejectsInvertedTimes(t *testing.T) {
	f := newAppFixture()
	seriesID := uuid.New()
	idx := 0
	occ := f.seedOccurrence(t, func(o *models.Occurrence) {
		o.Recurrence = models.RecurrenceWeekly
		o.SeriesID = &seriesID
		o.SeriesIndex = &idx
	})
	f.store.series[seriesID] = []models.Occurrence{*occ}

	// 20:00 start against the existing 19:30 end.
	start := models.TimeOfDay("20:00")
	if _, err := f.app.EditSeries(context.Background(), f.coach, seriesID, SeriesPatch{StartTime: &start}); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("got %v, want ErrInvalidTimeRange", err)
	}
}

func TestEditSeriesValidatesEveryMember(t *testing.T) {
	f := newAppFixture()
	seriesID := uuid.New()

	// Member 0 keeps the default 18:00-19:30; member 1 was edited on its
	// own to a morning slot.
	var members []models.Occurrence
	for i := 0; i < 2; i++ {
		idx := i
		occ := f.seedOccurrence(t, func(o *models.Occurrence) {
			o.Recurrence = models.RecurrenceWeekly
			o.SeriesID = &seriesID
			o.SeriesIndex = &idx
			if idx == 1 {
				o.StartTime, o.EndTime = "10:00", "11:00"
			}
		})
		members = append(members, *occ)
	}
	f.store.series[seriesID] = members

	// Valid against member 0, inverted against member 1's 11:00 end.
	start := models.TimeOfDay("17:00")
	if _, err := f.app.EditSeries(context.Background(), f.coach, seriesID, SeriesPatch{StartTime: &start}); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("got %v, want ErrInvalidTimeRange", err)
	}
	if f.store.seriesPatch != nil {
		t.Fatal("invalid series patch must not reach the store")
	}

	// Moving both ends works for every member.
	end := models.TimeOfDay("18:00")
	if _, err := f.app.EditSeries(context.Background(), f.coach, seriesID, SeriesPatch{StartTime: &start, EndTime: &end}); err != nil {
		t.Fatalf("EditSeries failed: %v", err)
	}
}

func TestCancelLifecycle(t *testing.T) {
	f := newAppFixture()
	occ := f.seedOccurrence(t, nil)

	if err := f.app.Cancel(context.Background(), f.coach, occ.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if occ.Status != models.OccurrenceStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", occ.Status)
	}

	// Cancelling again is a no-op, not an error.
	if err := f.app.Cancel(context.Background(), f.coach, occ.ID); err != nil {
		t.Fatalf("repeat Cancel failed: %v", err)
	}
	if len(f.store.statusChanges) != 1 {
		t.Fatalf("expected a single status change, got %d", len(f.store.statusChanges))
	}
}

func TestCancelCompletedRejected(t *testing.T) {
	f := newAppFixture()
	occ := f.seedOccurrence(t, func(o *models.Occurrence) { o.Status = models.OccurrenceStatusCompleted })

	if err := f.app.Cancel(context.Background(), f.coach, occ.ID); !errors.Is(err, ErrEventFrozen) {
		t.Fatalf("got %v, want ErrEventFrozen", err)
	}
}

func TestCompleteTransitions(t *testing.T) {
	f := newAppFixture()
	occ := f.seedOccurrence(t, nil)

	if err := f.app.Complete(context.Background(), f.owner, occ.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if occ.Status != models.OccurrenceStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", occ.Status)
	}

	if err := f.app.Complete(context.Background(), f.owner, occ.ID); !errors.Is(err, ErrEventFrozen) {
		t.Fatalf("repeat Complete: got %v, want ErrEventFrozen", err)
	}
}

func TestCompleteCancelledConflicts(t *testing.T) {
	f := newAppFixture()
	occ := f.seedOccurrence(t, func(o *models.Occurrence) { o.Status = models.OccurrenceStatusCancelled })

	if err := f.app.Complete(context.Background(), f.owner, occ.ID); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("got %v, want ErrStatusConflict", err)
	}
}
