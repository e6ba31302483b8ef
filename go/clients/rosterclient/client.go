package rosterclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubkit/clubkit/go/internal/models"
)

// ErrTeamNotFound is returned when the roster provider has no such team.
var ErrTeamNotFound = errors.New("team not found")

// Client talks to the team subsystem's roster endpoint. The roster side owns
// team and membership CRUD; this side only reads.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a roster client with a bounded request timeout.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type rosterResponse struct {
	TeamID  uuid.UUID   `json:"team_id"`
	ClubID  uuid.UUID   `json:"club_id"`
	OwnerID uuid.UUID   `json:"owner_id"`
	Members []uuid.UUID `json:"members"`
	Coaches []uuid.UUID `json:"coaches"`
}

// GetTeamRoster retrieves the current member and coach list of a team.
func (c *Client) GetTeamRoster(ctx context.Context, teamID uuid.UUID) (*models.Roster, error) {
	url := fmt.Sprintf("%s/v1/teams/%s/roster", c.baseURL, teamID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create roster request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, ErrTeamNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("roster provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload rosterResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode roster response: %w", err)
	}

	return &models.Roster{
		TeamID:  payload.TeamID,
		ClubID:  payload.ClubID,
		OwnerID: payload.OwnerID,
		Members: payload.Members,
		Coaches: payload.Coaches,
	}, nil
}
