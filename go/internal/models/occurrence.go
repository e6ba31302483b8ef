package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind defines what kind of club event an occurrence is.
type EventKind string

const (
	EventKindTraining   EventKind = "TRAINING"
	EventKindMatch      EventKind = "MATCH"
	EventKindMeeting    EventKind = "MEETING"
	EventKindTournament EventKind = "TOURNAMENT"
	EventKindOther      EventKind = "OTHER"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventKindTraining, EventKindMatch, EventKindMeeting, EventKindTournament, EventKindOther:
		return true
	}
	return false
}

// OccurrenceStatus defines the lifecycle state of an occurrence.
type OccurrenceStatus string

const (
	OccurrenceStatusScheduled OccurrenceStatus = "SCHEDULED"
	OccurrenceStatusCompleted OccurrenceStatus = "COMPLETED"
	OccurrenceStatusCancelled OccurrenceStatus = "CANCELLED"
)

// Recurrence defines the repeat rule of a series.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "NONE"
	RecurrenceDaily   Recurrence = "DAILY"
	RecurrenceWeekly  Recurrence = "WEEKLY"
	RecurrenceMonthly Recurrence = "MONTHLY"
)

// Valid reports whether r is a known recurrence rule.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// RSVPStatus defines a participant's reply to an occurrence.
type RSVPStatus string

const (
	RSVPStatusPending   RSVPStatus = "PENDING"
	RSVPStatusConfirmed RSVPStatus = "CONFIRMED"
	RSVPStatusDeclined  RSVPStatus = "DECLINED"
	RSVPStatusTentative RSVPStatus = "TENTATIVE"
)

// TimeOfDay is a zero-padded 24h wall-clock time ("09:00", "18:30").
// Zero-padding makes lexicographic comparison equivalent to time order.
type TimeOfDay string

// Valid reports whether t is a canonical zero-padded 24h HH:MM time.
// Non-canonical forms like "9:30" are rejected: Before relies on the
// padding, and so does the text ordering in the store.
func (t TimeOfDay) Valid() bool {
	parsed, err := time.Parse("15:04", string(t))
	if err != nil {
		return false
	}
	return parsed.Format("15:04") == string(t)
}

// Before reports whether t is earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return string(t) < string(other)
}

// On anchors the wall-clock time to the given calendar date in UTC.
func (t TimeOfDay) On(date time.Time) time.Time {
	parsed, err := time.Parse("15:04", string(t))
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}

// Participant is one user's RSVP entry on an occurrence.
type Participant struct {
	UserID       uuid.UUID  `json:"user_id"`
	RSVPStatus   RSVPStatus `json:"rsvp_status"`
	ResponseDate *time.Time `json:"response_date,omitempty"`
}

// Occurrence represents one concrete scheduled event. Recurring events are
// stored as one Occurrence per date, linked through SeriesID.
type Occurrence struct {
	ID                  uuid.UUID        `json:"id"`
	Title               string           `json:"title"`
	Description         string           `json:"description,omitempty"`
	TeamID              uuid.UUID        `json:"team_id"`
	ClubID              uuid.UUID        `json:"club_id"`
	CreatedBy           uuid.UUID        `json:"created_by"`
	Kind                EventKind        `json:"kind"`
	Date                time.Time        `json:"date"`
	StartTime           TimeOfDay        `json:"start_time"`
	EndTime             TimeOfDay        `json:"end_time"`
	Status              OccurrenceStatus `json:"status"`
	Coaches             []uuid.UUID      `json:"coaches,omitempty"`
	Participants        []Participant    `json:"participants,omitempty"`
	Recurrence          Recurrence       `json:"recurrence"`
	SeriesID            *uuid.UUID       `json:"series_id,omitempty"`
	SeriesIndex         *int             `json:"series_index,omitempty"`
	NotifiedBeforeStart bool             `json:"notified_before_start"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// IsRecurring reports whether the occurrence belongs to a series.
func (o *Occurrence) IsRecurring() bool {
	return o.Recurrence != RecurrenceNone && o.SeriesID != nil
}

// StartsAt returns the full start instant (date + start time, UTC).
func (o *Occurrence) StartsAt() time.Time {
	return o.StartTime.On(o.Date)
}
