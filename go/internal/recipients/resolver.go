package recipients

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/clubkit/clubkit/go/internal/models"
)

// RosterProvider defines what the resolver needs from the team subsystem.
type RosterProvider interface {
	GetTeamRoster(ctx context.Context, teamID uuid.UUID) (*models.Roster, error)
}

// ChannelDirectory reports which identities have a registered notification
// channel. Registration itself is owned by the push transport service.
type ChannelDirectory interface {
	FilterWithChannel(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error)
}

// Resolver computes the deduplicated set of identities to notify for an
// occurrence: team members, team coaches, the occurrence's explicit coaches
// and its RSVP participants, whichever path introduced them.
type Resolver struct {
	roster   RosterProvider
	channels ChannelDirectory
}

// NewResolver creates a recipient resolver.
func NewResolver(roster RosterProvider, channels ChannelDirectory) *Resolver {
	return &Resolver{roster: roster, channels: channels}
}

// Resolve returns the recipient set for occ, sorted for determinism and
// filtered to identities with at least one registered channel.
func (r *Resolver) Resolve(ctx context.Context, occ *models.Occurrence) ([]uuid.UUID, error) {
	roster, err := r.roster.GetTeamRoster(ctx, occ.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve team roster: %w", err)
	}

	seen := make(map[uuid.UUID]struct{})
	var union []uuid.UUID
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		union = append(union, id)
	}

	for _, id := range roster.Members {
		add(id)
	}
	for _, id := range roster.Coaches {
		add(id)
	}
	for _, id := range occ.Coaches {
		add(id)
	}
	for _, p := range occ.Participants {
		add(p.UserID)
	}

	if len(union) == 0 {
		return nil, nil
	}

	reachable, err := r.channels.FilterWithChannel(ctx, union)
	if err != nil {
		return nil, fmt.Errorf("failed to filter recipients by channel: %w", err)
	}

	sort.Slice(reachable, func(i, j int) bool {
		return reachable[i].String() < reachable[j].String()
	})
	return reachable, nil
}
