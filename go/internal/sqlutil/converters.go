package sqlutil

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Helper functions for values that cross the pgx boundary.

// ToJSON marshals v for a jsonb column.
func ToJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb value: %w", err)
	}
	return data, nil
}

// FromJSON unmarshals a jsonb column into dst. A NULL column (nil bytes)
// leaves dst untouched.
func FromJSON(data []byte, dst any) error {
	if data == nil {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal jsonb value: %w", err)
	}
	return nil
}

// UUIDSlice returns a non-nil copy of ids so empty lists round-trip as
// empty uuid[] columns rather than NULL.
func UUIDSlice(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

// DateOnly truncates t to UTC midnight.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
