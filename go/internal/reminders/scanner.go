package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/clubkit/clubkit/go/internal/jobs"
	"github.com/clubkit/clubkit/go/internal/models"
	"github.com/clubkit/clubkit/go/internal/schedule"
)

// EventStore defines what the scanner needs from the event store.
type EventStore interface {
	ListDueForReminder(ctx context.Context, from, to time.Time, limit int) ([]models.Occurrence, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Occurrence, error)
	MarkNotified(ctx context.Context, id uuid.UUID) (bool, error)
}

// RecipientResolver defines what the scanner needs from the recipient
// resolver.
type RecipientResolver interface {
	Resolve(ctx context.Context, occ *models.Occurrence) ([]uuid.UUID, error)
}

// Notifier is the outbound edge to the push transport. It must report
// per-recipient failures without aborting the caller.
type Notifier interface {
	Send(ctx context.Context, recipient uuid.UUID, title, body string, data map[string]string) error
}

// Config holds reminder scanner settings.
type Config struct {
	Lookahead   time.Duration
	BatchLimit  int
	SendTimeout time.Duration
}

// DefaultConfig returns the scanner settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Lookahead:   30 * time.Minute,
		BatchLimit:  200,
		SendTimeout: 5 * time.Second,
	}
}

// Scanner finds occurrences starting within the lookahead window and
// dispatches one reminder per resolvable recipient. An occurrence is marked
// notified exactly once, after all its recipients were attempted, so a
// second run inside the same window dispatches nothing.
type Scanner struct {
	store    EventStore
	resolver RecipientResolver
	notifier Notifier
	clock    clockwork.Clock
	config   Config
}

// NewScanner creates a reminder scanner.
func NewScanner(store EventStore, resolver RecipientResolver, notifier Notifier, clock clockwork.Clock, cfg Config) *Scanner {
	return &Scanner{
		store:    store,
		resolver: resolver,
		notifier: notifier,
		clock:    clock,
		config:   cfg,
	}
}

// Scan runs one pass over the lookahead window. Only store-level failures
// fail the scan; per-occurrence and per-recipient problems are logged and
// skipped.
func (s *Scanner) Scan(ctx context.Context) error {
	now := s.clock.Now().UTC()
	due, err := s.store.ListDueForReminder(ctx, now, now.Add(s.config.Lookahead), s.config.BatchLimit)
	if err != nil {
		return fmt.Errorf("failed to list due occurrences: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	log.Debug().Int("count", len(due)).Msg("occurrences due for reminder")

	for i := range due {
		s.dispatchOccurrence(ctx, &due[i])
	}
	return nil
}

// HandleNotifyJob is the NOTIFY job handler. It re-checks current state so
// re-delivery of the same payload is harmless.
func (s *Scanner) HandleNotifyJob(ctx context.Context, payload []byte) error {
	var p jobs.NotifyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode notify payload: %w", err)
	}

	occ, err := s.store.Get(ctx, p.OccurrenceID)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			log.Warn().Str("occurrence_id", p.OccurrenceID.String()).Msg("notify job for unknown occurrence, dropping")
			return nil
		}
		return err
	}

	if occ.Status != models.OccurrenceStatusScheduled || occ.NotifiedBeforeStart {
		return nil
	}

	now := s.clock.Now().UTC()
	startsAt := occ.StartsAt()
	if startsAt.Before(now) || startsAt.After(now.Add(s.config.Lookahead)) {
		// Not in the reminder window yet; the periodic scan picks it up.
		return nil
	}

	s.dispatchOccurrence(ctx, occ)
	return nil
}

func (s *Scanner) dispatchOccurrence(ctx context.Context, occ *models.Occurrence) {
	recipients, err := s.resolver.Resolve(ctx, occ)
	if err != nil {
		log.Error().
			Err(err).
			Str("occurrence_id", occ.ID.String()).
			Msg("failed to resolve recipients, will retry next scan")
		return
	}

	if len(recipients) == 0 {
		log.Warn().
			Str("occurrence_id", occ.ID.String()).
			Str("team_id", occ.TeamID.String()).
			Msg("no reachable recipients, skipping occurrence")
		s.markNotified(ctx, occ)
		return
	}

	body := fmt.Sprintf("%s starts at %s", occ.Title, occ.StartTime)
	data := map[string]string{
		"occurrence_id": occ.ID.String(),
		"title":         occ.Title,
	}

	sent := 0
	failed := 0
	for _, recipient := range recipients {
		sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
		err := s.notifier.Send(sendCtx, recipient, occ.Title, body, data)
		cancel()
		if err != nil {
			failed++
			log.Error().
				Err(err).
				Str("occurrence_id", occ.ID.String()).
				Str("recipient", recipient.String()).
				Msg("reminder dispatch failed")
			continue
		}
		sent++
	}

	// Marked regardless of individual outcomes: one reminder window, one
	// attempt per recipient, no duplicate storms.
	s.markNotified(ctx, occ)

	log.Info().
		Str("occurrence_id", occ.ID.String()).
		Int("sent", sent).
		Int("failed", failed).
		Msg("reminders dispatched")
}

func (s *Scanner) markNotified(ctx context.Context, occ *models.Occurrence) {
	won, err := s.store.MarkNotified(ctx, occ.ID)
	if err != nil {
		log.Error().
			Err(err).
			Str("occurrence_id", occ.ID.String()).
			Msg("failed to mark occurrence notified")
		return
	}
	if !won {
		log.Debug().
			Str("occurrence_id", occ.ID.String()).
			Msg("occurrence already marked notified by a concurrent run")
	}
	occ.NotifiedBeforeStart = true
}
