package reconcile

import (
	"errors"

	"github.com/beardfriends/payments-backend/gateway"
	"github.com/beardfriends/payments-backend/models"
)

var (
	// ErrStaleEvent: the event's emission time is not newer than the
	// record's last transition and it contradicts the current state. Events
	// are not delivered in causal order; applying this one would move the
	// ledger backward.
	ErrStaleEvent = errors.New("reconcile: stale event contradicts newer record state")

	// ErrNoTransition: the transition table has no entry for this state and
	// kind, and the event is not an idempotent replay. Logged at warn and
	// acknowledged; the record is not mutated.
	ErrNoTransition = errors.New("reconcile: no transition for current status and event kind")
)

// transitions is the full state machine: current status -> event kind ->
// next status. Adding an event kind is one entry here plus a test.
var transitions = map[models.PaymentStatus]map[Kind]models.PaymentStatus{
	models.StatusPending: {
		KindSessionCompleted: models.StatusCompleted,
		KindPaymentSucceeded: models.StatusCompleted,
		KindChargeSucceeded:  models.StatusCompleted,
		KindSessionExpired:   models.StatusFailed,
		KindPaymentFailed:    models.StatusFailed,
		KindPaymentCanceled:  models.StatusFailed,
		KindChargeFailed:     models.StatusFailed,
	},
	models.StatusCompleted: {
		// Late chargeback signal after settlement.
		KindChargeFailed: models.StatusDisputed,
	},
}

// Decision is the engine's verdict for one event against one record.
type Decision struct {
	Kind Kind
	From models.PaymentStatus
	Next models.PaymentStatus

	// NoOp: the event is a replay whose outcome the record already holds.
	// Nothing is written and the dispatcher must not fire.
	NoOp bool

	Update models.PaymentUpdate
}

// Decide applies the transition table to the record's current status.
//
// Ordering guard: transitions out of a state the record reached earlier are
// only taken when the event was emitted after the record's updated_at. A
// charge.failed carrying an older timestamp than a completed record is a
// reordered delivery, not a chargeback, and is discarded.
func Decide(rec *models.Payment, kind Kind, evt *gateway.Event) (Decision, error) {
	next, ok := transitions[rec.Status][kind]
	if !ok {
		switch {
		case outcomes[kind] == rec.Status:
			// Duplicate delivery of the event that put the record here.
			return Decision{Kind: kind, From: rec.Status, Next: rec.Status, NoOp: true}, nil
		case successKind(kind) && rec.Status != models.StatusPending:
			// Replayed success signal against any terminal state: re-ack
			// without touching the record.
			return Decision{Kind: kind, From: rec.Status, Next: rec.Status, NoOp: true}, nil
		case !evt.Created.After(rec.UpdatedAt):
			return Decision{}, ErrStaleEvent
		default:
			return Decision{}, ErrNoTransition
		}
	}

	if rec.Status != models.StatusPending && !evt.Created.After(rec.UpdatedAt) {
		return Decision{}, ErrStaleEvent
	}

	return Decision{
		Kind:   kind,
		From:   rec.Status,
		Next:   next,
		Update: buildUpdate(next, kind, evt),
	}, nil
}

// buildUpdate collects the auxiliary fields the event made available. Values
// are additive; the store never lets an empty field clear a stored one and
// never reassigns an identifier.
func buildUpdate(next models.PaymentStatus, kind Kind, evt *gateway.Event) models.PaymentUpdate {
	u := models.PaymentUpdate{
		Status:          next,
		PaymentIntentID: evt.Object.PaymentIntentID,
		ReceiptURL:      evt.Object.ReceiptURL,
		PaymentMethod:   evt.Object.PaymentMethod,
	}

	switch evt.Object.Kind {
	case gateway.ObjectCharge:
		u.ChargeID = evt.Object.ID
	default:
		u.ChargeID = evt.Object.LatestChargeID
	}

	if next == models.StatusFailed || next == models.StatusDisputed {
		u.ErrorMessage = evt.Object.FailureMessage
		u.ErrorCode = evt.Object.FailureCode
		if u.ErrorMessage == "" {
			u.ErrorMessage = defaultErrorMessage(kind)
		}
	}
	return u
}

func successKind(kind Kind) bool {
	return kind == KindPaymentSucceeded || kind == KindChargeSucceeded
}

func defaultErrorMessage(kind Kind) string {
	switch kind {
	case KindSessionExpired:
		return "Checkout session expired"
	case KindPaymentCanceled:
		return "Payment canceled"
	case KindChargeFailed:
		return "Payment processing failed"
	default:
		return "Payment failed"
	}
}
