package models

import (
	"time"
)

// PaymentStatus is the ledger status of a payment record. Status only changes
// through the reconcile transition engine; no other writer may set it.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusRefunded  PaymentStatus = "refunded"
	StatusDisputed  PaymentStatus = "disputed"
)

// Payment is the unit of reconciliation. It is created with status "pending"
// by the checkout flow and afterwards mutated exclusively by webhook
// reconciliation. Records are never deleted; they are retained for audit.
type Payment struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// TransactionID is the gateway checkout-session id (cs_...). Unique,
	// assigned once at creation, never reused.
	TransactionID string `gorm:"uniqueIndex;not null" json:"transaction_id"`

	// PaymentIntentID (pi_...) and ChargeID (ch_...) arrive asynchronously
	// via webhook events and are immutable once set.
	PaymentIntentID string `gorm:"index" json:"payment_intent_id,omitempty"`
	ChargeID        string `gorm:"index" json:"charge_id,omitempty"`

	// CorrelationID is a unique token minted at checkout creation and echoed
	// back in gateway event metadata. It is the supported last-resort lookup
	// key for events that carry neither a session nor an intent reference.
	CorrelationID string `gorm:"uniqueIndex" json:"correlation_id,omitempty"`

	UserID     string        `gorm:"index" json:"user_id"`
	ProductIDs []string      `gorm:"serializer:json;type:jsonb" json:"product_ids"`
	Price      int64         `json:"price"`
	Currency   string        `json:"currency"`
	Status     PaymentStatus `gorm:"index;not null" json:"status"`

	PaymentMethod string `json:"payment_method,omitempty"`
	ReceiptURL    string `json:"receipt_url,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
}

// PaymentUpdate carries the target status plus the auxiliary fields an event
// made available. Empty fields are absent: they must never clear a stored
// value, and identifiers (intent, charge) must never overwrite one.
type PaymentUpdate struct {
	Status          PaymentStatus
	PaymentIntentID string
	ChargeID        string
	ReceiptURL      string
	PaymentMethod   string
	ErrorMessage    string
	ErrorCode       string
}

// Apply merges u into p following the additive rules above. Shared by the
// in-memory store; the SQL store expresses the same rules in one UPDATE.
func (u PaymentUpdate) Apply(p *Payment) {
	p.Status = u.Status
	if p.PaymentIntentID == "" {
		p.PaymentIntentID = u.PaymentIntentID
	}
	if p.ChargeID == "" {
		p.ChargeID = u.ChargeID
	}
	if u.ReceiptURL != "" {
		p.ReceiptURL = u.ReceiptURL
	}
	if u.PaymentMethod != "" {
		p.PaymentMethod = u.PaymentMethod
	}
	if u.ErrorMessage != "" {
		p.ErrorMessage = u.ErrorMessage
	}
	if u.ErrorCode != "" {
		p.ErrorCode = u.ErrorCode
	}
}
