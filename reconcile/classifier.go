package reconcile

import "github.com/beardfriends/payments-backend/models"

// Kind is the closed set of event kinds the engine reconciles. The gateway's
// taxonomy evolves independently; anything that does not map here is
// acknowledged and dropped so the gateway does not retry-storm over events we
// never asked for.
type Kind string

const (
	KindSessionCompleted Kind = "session_completed"
	KindSessionExpired   Kind = "session_expired"
	KindPaymentSucceeded Kind = "payment_succeeded"
	KindPaymentFailed    Kind = "payment_failed"
	KindPaymentCanceled  Kind = "payment_canceled"
	KindChargeSucceeded  Kind = "charge_succeeded"
	KindChargeFailed     Kind = "charge_failed"
)

// Wire-level event type strings, matched exactly.
var wireKinds = map[string]Kind{
	"checkout.session.completed":    KindSessionCompleted,
	"checkout.session.expired":      KindSessionExpired,
	"payment_intent.succeeded":      KindPaymentSucceeded,
	"payment_intent.payment_failed": KindPaymentFailed,
	"payment_intent.canceled":       KindPaymentCanceled,
	"charge.succeeded":              KindChargeSucceeded,
	"charge.failed":                 KindChargeFailed,
}

// Classify maps a wire event type to its kind. ok is false for unmapped
// types.
func Classify(wireType string) (Kind, bool) {
	k, ok := wireKinds[wireType]
	return k, ok
}

// outcome is the status a kind drives toward, independent of the current
// record state. Used to tell an idempotent replay from a contradictory event.
var outcomes = map[Kind]models.PaymentStatus{
	KindSessionCompleted: models.StatusCompleted,
	KindPaymentSucceeded: models.StatusCompleted,
	KindChargeSucceeded:  models.StatusCompleted,
	KindSessionExpired:   models.StatusFailed,
	KindPaymentFailed:    models.StatusFailed,
	KindPaymentCanceled:  models.StatusFailed,
	KindChargeFailed:     models.StatusFailed,
}
