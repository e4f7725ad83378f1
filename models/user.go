package models

import "time"

// User is the slice of the user record this service touches. The full user
// model lives in the accounts service; reconciliation only reads the email
// address and maintains the last_transaction_id audit pointer.
type User struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email string `gorm:"uniqueIndex;not null" json:"email"`

	// LastTransactionID is a best-effort, non-authoritative pointer to the
	// user's most recent gateway transaction. Not part of the correctness
	// contract.
	LastTransactionID string `json:"last_transaction_id,omitempty"`
}
