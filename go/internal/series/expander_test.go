package series

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clubkit/clubkit/go/internal/models"
)

type fakeStore struct {
	occs     map[uuid.UUID]*models.Occurrence
	inserted map[int]*models.Occurrence
}

func newFakeStore(base *models.Occurrence) *fakeStore {
	return &fakeStore{
		occs:     map[uuid.UUID]*models.Occurrence{base.ID: base},
		inserted: make(map[int]*models.Occurrence),
	}
}

func (s *fakeStore) Get(_ context.Context, id uuid.UUID) (*models.Occurrence, error) {
	occ, ok := s.occs[id]
	if !ok {
		return nil, context.Canceled
	}
	return occ, nil
}

func (s *fakeStore) InsertSeriesMember(_ context.Context, occ *models.Occurrence) (bool, error) {
	if _, ok := s.inserted[*occ.SeriesIndex]; ok {
		return false, nil
	}
	s.inserted[*occ.SeriesIndex] = occ
	return true, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func baseOccurrence(recurrence models.Recurrence, d time.Time) *models.Occurrence {
	seriesID := uuid.New()
	index := 0
	return &models.Occurrence{
		ID:          uuid.New(),
		Title:       "Team practice",
		TeamID:      uuid.New(),
		ClubID:      uuid.New(),
		CreatedBy:   uuid.New(),
		Kind:        models.EventKindTraining,
		Date:        d,
		StartTime:   "18:00",
		EndTime:     "19:30",
		Status:      models.OccurrenceStatusScheduled,
		Recurrence:  recurrence,
		SeriesID:    &seriesID,
		SeriesIndex: &index,
	}
}

func TestExpandWeekly(t *testing.T) {
	base := baseOccurrence(models.RecurrenceWeekly, date(2025, time.January, 6))
	store := newFakeStore(base)
	exp := NewExpander(store)

	if err := exp.Expand(context.Background(), *base.SeriesID, base.ID); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	// Weekly steps from 2025-01-06, bounded by 2026-01-06: 52 occurrences.
	if len(store.inserted) != 52 {
		t.Fatalf("expected 52 occurrences, got %d", len(store.inserted))
	}

	first := store.inserted[1]
	if !first.Date.Equal(date(2025, time.January, 13)) {
		t.Errorf("first occurrence date = %v, want 2025-01-13", first.Date)
	}
	last := store.inserted[52]
	if last == nil {
		t.Fatal("missing occurrence at index 52")
	}
	if !last.Date.Equal(date(2026, time.January, 5)) {
		t.Errorf("last occurrence date = %v, want 2026-01-05", last.Date)
	}

	prev := base.Date
	for i := 1; i <= 52; i++ {
		occ := store.inserted[i]
		if occ == nil {
			t.Fatalf("missing occurrence at index %d", i)
		}
		if !occ.Date.After(prev) {
			t.Fatalf("occurrence %d date %v not after previous %v", i, occ.Date, prev)
		}
		if occ.StartTime != base.StartTime || occ.EndTime != base.EndTime {
			t.Fatalf("occurrence %d times %s-%s, want %s-%s", i, occ.StartTime, occ.EndTime, base.StartTime, base.EndTime)
		}
		if occ.SeriesID == nil || *occ.SeriesID != *base.SeriesID {
			t.Fatalf("occurrence %d not linked to series", i)
		}
		if occ.Status != models.OccurrenceStatusScheduled {
			t.Fatalf("occurrence %d status = %s, want SCHEDULED", i, occ.Status)
		}
		prev = occ.Date
	}
}

func TestExpandDaily(t *testing.T) {
	base := baseOccurrence(models.RecurrenceDaily, date(2025, time.March, 1))
	store := newFakeStore(base)

	if err := NewExpander(store).Expand(context.Background(), *base.SeriesID, base.ID); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	// 2025-03-02 through 2026-03-01 inclusive.
	if len(store.inserted) != 365 {
		t.Fatalf("expected 365 occurrences, got %d", len(store.inserted))
	}
	if !store.inserted[1].Date.Equal(date(2025, time.March, 2)) {
		t.Errorf("first occurrence date = %v, want 2025-03-02", store.inserted[1].Date)
	}
	if !store.inserted[365].Date.Equal(date(2026, time.March, 1)) {
		t.Errorf("last occurrence date = %v, want 2026-03-01", store.inserted[365].Date)
	}
}

func TestExpandMonthlyKeepsAnchorDay(t *testing.T) {
	base := baseOccurrence(models.RecurrenceMonthly, date(2025, time.March, 15))
	store := newFakeStore(base)

	if err := NewExpander(store).Expand(context.Background(), *base.SeriesID, base.ID); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if len(store.inserted) != 12 {
		t.Fatalf("expected 12 occurrences, got %d", len(store.inserted))
	}
	for i := 1; i <= 12; i++ {
		occ := store.inserted[i]
		if occ.Date.Day() != 15 {
			t.Errorf("occurrence %d falls on day %d, want 15", i, occ.Date.Day())
		}
	}
	if !store.inserted[12].Date.Equal(date(2026, time.March, 15)) {
		t.Errorf("last occurrence date = %v, want 2026-03-15", store.inserted[12].Date)
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	base := baseOccurrence(models.RecurrenceWeekly, date(2025, time.January, 6))
	store := newFakeStore(base)
	exp := NewExpander(store)

	if err := exp.Expand(context.Background(), *base.SeriesID, base.ID); err != nil {
		t.Fatalf("first Expand failed: %v", err)
	}
	firstIDs := make(map[int]uuid.UUID, len(store.inserted))
	for idx, occ := range store.inserted {
		firstIDs[idx] = occ.ID
	}

	if err := exp.Expand(context.Background(), *base.SeriesID, base.ID); err != nil {
		t.Fatalf("second Expand failed: %v", err)
	}

	if len(store.inserted) != len(firstIDs) {
		t.Fatalf("re-expansion changed series size: %d -> %d", len(firstIDs), len(store.inserted))
	}
	for idx, occ := range store.inserted {
		if occ.ID != firstIDs[idx] {
			t.Fatalf("re-expansion replaced occurrence at index %d", idx)
		}
	}
}

func TestExpandRejectsSeriesMismatch(t *testing.T) {
	base := baseOccurrence(models.RecurrenceWeekly, date(2025, time.January, 6))
	store := newFakeStore(base)

	if err := NewExpander(store).Expand(context.Background(), uuid.New(), base.ID); err == nil {
		t.Fatal("expected error for mismatched series id")
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected no inserts, got %d", len(store.inserted))
	}
}

func TestExpandRejectsNonRecurring(t *testing.T) {
	base := baseOccurrence(models.RecurrenceNone, date(2025, time.January, 6))
	store := newFakeStore(base)

	if err := NewExpander(store).Expand(context.Background(), *base.SeriesID, base.ID); err == nil {
		t.Fatal("expected error for NONE recurrence")
	}
}
