package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType defines the kind of deferred work a job carries.
type JobType string

const (
	JobTypeExpandSeries JobType = "EXPAND_SERIES"
	JobTypeNotify       JobType = "NOTIFY"
)

// Job is one unit of deferred asynchronous work, written durably in the same
// transaction as the occurrence change that caused it and consumed later by
// a worker. Delivery is at-least-once; handlers must be idempotent.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Processed   bool            `json:"processed"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
