package schedule

import "errors"

var (
	// ErrNotFound is returned when no occurrence matches the given id.
	ErrNotFound = errors.New("occurrence not found")

	// ErrUnauthorized is returned when the actor is not allowed to manage
	// events for the team.
	ErrUnauthorized = errors.New("actor is not authorized for this team")

	// ErrInvalidTimeRange is returned when end time is not after start time.
	ErrInvalidTimeRange = errors.New("end time must be after start time")

	// ErrInvalidRecurrenceAnchor is returned for monthly recurrence anchored
	// on day 28-31, which has no stable monthly equivalent.
	ErrInvalidRecurrenceAnchor = errors.New("monthly recurrence requires day of month <= 27")

	// ErrTitleRequired is returned when an occurrence is created without a
	// title.
	ErrTitleRequired = errors.New("title is required")

	// ErrInvalidKind is returned for an unknown event kind.
	ErrInvalidKind = errors.New("invalid event kind")

	// ErrInvalidRecurrence is returned for an unknown recurrence rule.
	ErrInvalidRecurrence = errors.New("invalid recurrence rule")

	// ErrEventFrozen is returned when mutating a completed occurrence.
	ErrEventFrozen = errors.New("completed occurrence is immutable")

	// ErrSeriesFieldLocked is returned when a single-occurrence edit tries to
	// change a field that all members of a series must share.
	ErrSeriesFieldLocked = errors.New("field is shared across the series and cannot be changed per occurrence")

	// ErrStatusConflict is returned when a status transition races with
	// another update and no longer applies.
	ErrStatusConflict = errors.New("occurrence status changed concurrently")
)
