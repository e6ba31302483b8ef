package models

import (
	"github.com/google/uuid"
)

// Roster is the current member/coach list of a team as reported by the
// roster provider. It is owned by the team subsystem and never persisted
// here.
type Roster struct {
	TeamID  uuid.UUID   `json:"team_id"`
	ClubID  uuid.UUID   `json:"club_id"`
	OwnerID uuid.UUID   `json:"owner_id"`
	Members []uuid.UUID `json:"members"`
	Coaches []uuid.UUID `json:"coaches"`
}

// HasCoach reports whether userID is on the coach list.
func (r *Roster) HasCoach(userID uuid.UUID) bool {
	for _, id := range r.Coaches {
		if id == userID {
			return true
		}
	}
	return false
}
