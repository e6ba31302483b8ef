package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord classifies every roster member of a team as present or
// absent for one occurrence. There is at most one record per
// (team, occurrence) pair; resubmissions replace it.
type AttendanceRecord struct {
	ID           uuid.UUID   `json:"id"`
	TeamID       uuid.UUID   `json:"team_id"`
	OccurrenceID uuid.UUID   `json:"occurrence_id"`
	Present      []uuid.UUID `json:"present"`
	Absent       []uuid.UUID `json:"absent"`
	RecordedBy   uuid.UUID   `json:"recorded_by"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
