package models

import (
	"time"

	"gorm.io/datatypes"
)

// Reconciliation outcomes recorded on the webhook event log.
const (
	OutcomeProcessed = "processed"
	OutcomeNoOp      = "noop"
	OutcomeIgnored   = "ignored"
	OutcomeNotFound  = "not_found"
	OutcomeStale     = "stale"
	OutcomeError     = "error"
)

// WebhookEvent stores every verified gateway event with deduplication
// metadata. The unique index on event_id makes the insert itself the
// duplicate-delivery check.
type WebhookEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EventID         string         `gorm:"uniqueIndex;not null" json:"event_id"`
	EventType       string         `gorm:"index;not null" json:"event_type"`
	Payload         datatypes.JSON `json:"-"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty"`
	Outcome         string         `gorm:"index" json:"outcome,omitempty"`
	ProcessingError string         `gorm:"type:text" json:"processing_error,omitempty"`
}
