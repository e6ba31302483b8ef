package jobs

import (
	"github.com/google/uuid"
)

// Job payload types shared between the enqueuing services and the worker.

// ExpandSeriesPayload is the payload for an EXPAND_SERIES job. It carries
// the immutable series identity so re-delivery of the same job is safe.
type ExpandSeriesPayload struct {
	SeriesID    uuid.UUID `json:"series_id"`
	BaseEventID uuid.UUID `json:"base_event_id"`
}

// NotifyPayload is the payload for a NOTIFY job.
type NotifyPayload struct {
	OccurrenceID uuid.UUID `json:"occurrence_id"`
	Title        string    `json:"title"`
}
