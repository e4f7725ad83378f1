package reconcile

import (
	"context"

	"github.com/beardfriends/payments-backend/gateway"
	"github.com/beardfriends/payments-backend/models"
)

// LedgerStore is the narrow contract reconciliation holds against the payment
// ledger. Every call is a single atomic statement; ApplyTransition carries a
// status precondition and fails with store.ErrConflict when it no longer
// holds.
type LedgerStore interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	FindByCorrelationID(ctx context.Context, token string) (*models.Payment, error)
	FindPendingByProductSet(ctx context.Context, productIDs []string) (*models.Payment, error)
	ApplyTransition(ctx context.Context, id string, from models.PaymentStatus, update models.PaymentUpdate) (*models.Payment, error)
}

// UserStore covers the user side-channel: the email address for
// notifications and the best-effort last_transaction_id audit pointer.
type UserStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
	SetLastTransaction(ctx context.Context, userID, transactionID string) error
}

// EventLog is the durable record of received events. Record returns
// store.ErrDuplicate on redelivery; Find returns store.ErrNotFound for an
// unknown event id.
type EventLog interface {
	Record(ctx context.Context, evt *models.WebhookEvent) error
	Find(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID, outcome, processingError string) error
}

// Deduper is an optional fast-path duplicate check ahead of the event log.
// MarkSeen must only be called once the event reached a final outcome: a
// Seen hit is trusted to mean the prior delivery completed.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
}

// ChargeRetriever is the slice of the gateway client reconciliation needs.
type ChargeRetriever interface {
	RetrieveCharge(ctx context.Context, chargeID string) (*gateway.Charge, error)
}

// Notifier sends a templated message to an address. Fire-and-forget: the
// return value is logged, never consulted for control flow.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}
