package models

import (
	"testing"
	"time"
)

func TestTimeOfDayValid(t *testing.T) {
	tests := []struct {
		in   TimeOfDay
		want bool
	}{
		{"00:00", true},
		{"09:30", true},
		{"23:59", true},
		{"24:00", false},
		{"9:30", false},
		{"18:5", false},
		{"18:60", false},
		{"6pm", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.in.Valid(); got != tt.want {
			t.Errorf("TimeOfDay(%q).Valid() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDayBefore(t *testing.T) {
	if !TimeOfDay("09:00").Before("18:00") {
		t.Error("09:00 should be before 18:00")
	}
	if TimeOfDay("18:00").Before("18:00") {
		t.Error("a time is not before itself")
	}
	if TimeOfDay("18:30").Before("09:00") {
		t.Error("18:30 should not be before 09:00")
	}
}

func TestStartsAt(t *testing.T) {
	occ := &Occurrence{
		Date:      time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		StartTime: "18:30",
	}
	want := time.Date(2025, time.June, 10, 18, 30, 0, 0, time.UTC)
	if got := occ.StartsAt(); !got.Equal(want) {
		t.Errorf("StartsAt() = %v, want %v", got, want)
	}
}

func TestIsRecurring(t *testing.T) {
	occ := &Occurrence{Recurrence: RecurrenceNone}
	if occ.IsRecurring() {
		t.Error("NONE recurrence is not recurring")
	}

	occ.Recurrence = RecurrenceWeekly
	if occ.IsRecurring() {
		t.Error("weekly recurrence without a series id is not recurring")
	}
}
