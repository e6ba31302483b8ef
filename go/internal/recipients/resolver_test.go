package recipients

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/clubkit/clubkit/go/internal/models"
)

type fakeRoster struct {
	roster *models.Roster
	err    error
}

func (r *fakeRoster) GetTeamRoster(_ context.Context, _ uuid.UUID) (*models.Roster, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.roster, nil
}

type fakeChannels struct {
	registered map[uuid.UUID]bool
	got        []uuid.UUID
}

func (c *fakeChannels) FilterWithChannel(_ context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	c.got = userIDs
	var out []uuid.UUID
	for _, id := range userIDs {
		if c.registered[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func allRegistered(ids ...uuid.UUID) map[uuid.UUID]bool {
	m := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestResolveUnionsAllPaths(t *testing.T) {
	member := uuid.New()
	rosterCoach := uuid.New()
	explicitCoach := uuid.New()
	participant := uuid.New()

	roster := &fakeRoster{roster: &models.Roster{
		Members: []uuid.UUID{member},
		Coaches: []uuid.UUID{rosterCoach},
	}}
	channels := &fakeChannels{registered: allRegistered(member, rosterCoach, explicitCoach, participant)}

	occ := &models.Occurrence{
		ID:      uuid.New(),
		TeamID:  uuid.New(),
		Coaches: []uuid.UUID{explicitCoach},
		Participants: []models.Participant{
			{UserID: participant, RSVPStatus: models.RSVPStatusConfirmed},
		},
	}

	got, err := NewResolver(roster, channels).Resolve(context.Background(), occ)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []uuid.UUID{member, rosterCoach, explicitCoach, participant}
	sort.Slice(want, func(i, j int) bool { return want[i].String() < want[j].String() })
	if len(got) != len(want) {
		t.Fatalf("got %d recipients, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("recipient %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestResolveDeduplicates(t *testing.T) {
	// One identity on every path at once.
	everywhere := uuid.New()

	roster := &fakeRoster{roster: &models.Roster{
		Members: []uuid.UUID{everywhere},
		Coaches: []uuid.UUID{everywhere},
	}}
	channels := &fakeChannels{registered: allRegistered(everywhere)}

	occ := &models.Occurrence{
		ID:      uuid.New(),
		Coaches: []uuid.UUID{everywhere},
		Participants: []models.Participant{
			{UserID: everywhere, RSVPStatus: models.RSVPStatusPending},
		},
	}

	got, err := NewResolver(roster, channels).Resolve(context.Background(), occ)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(got) != 1 || got[0] != everywhere {
		t.Fatalf("got %v, want exactly [%s]", got, everywhere)
	}
	if len(channels.got) != 1 {
		t.Fatalf("channel filter saw %d ids, want 1", len(channels.got))
	}
}

func TestResolveFiltersUnreachable(t *testing.T) {
	reachable := uuid.New()
	unreachable := uuid.New()

	roster := &fakeRoster{roster: &models.Roster{
		Members: []uuid.UUID{reachable, unreachable},
	}}
	channels := &fakeChannels{registered: allRegistered(reachable)}

	got, err := NewResolver(roster, channels).Resolve(context.Background(), &models.Occurrence{ID: uuid.New()})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(got) != 1 || got[0] != reachable {
		t.Fatalf("got %v, want exactly [%s]", got, reachable)
	}
}

func TestResolveSkipsNilIdentities(t *testing.T) {
	roster := &fakeRoster{roster: &models.Roster{}}
	channels := &fakeChannels{registered: map[uuid.UUID]bool{}}

	occ := &models.Occurrence{
		ID: uuid.New(),
		Participants: []models.Participant{
			{UserID: uuid.Nil, RSVPStatus: models.RSVPStatusPending},
		},
	}

	got, err := NewResolver(roster, channels).Resolve(context.Background(), occ)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
	if channels.got != nil {
		t.Fatal("channel filter should not run for an empty union")
	}
}

func TestResolveRosterFailure(t *testing.T) {
	roster := &fakeRoster{err: errors.New("roster service down")}
	channels := &fakeChannels{}

	if _, err := NewResolver(roster, channels).Resolve(context.Background(), &models.Occurrence{ID: uuid.New()}); err == nil {
		t.Fatal("expected error when the roster lookup fails")
	}
}
