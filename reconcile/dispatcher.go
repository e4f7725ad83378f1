package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/beardfriends/payments-backend/models"
)

// Dispatcher fires at-most-one user notification per accepted, state-changing
// transition. It is keyed off transitions, not raw events: the service never
// calls it for no-ops, which is what keeps duplicate deliveries silent.
// Notification is best-effort; failures are logged and never roll back the
// persisted transition.
type Dispatcher struct {
	users    UserStore
	notifier Notifier
}

func NewDispatcher(users UserStore, notifier Notifier) *Dispatcher {
	return &Dispatcher{users: users, notifier: notifier}
}

// Dispatch sends the notification matching the transition's terminal status.
func (d *Dispatcher) Dispatch(ctx context.Context, p *models.Payment, dec Decision) {
	if dec.NoOp {
		return
	}

	var subject, body string
	switch dec.Next {
	case models.StatusCompleted:
		subject = "Payment Successful"
	case models.StatusFailed:
		subject = "Payment Failed"
		if dec.Kind == KindSessionExpired {
			subject = "Payment Session Expired"
		}
	case models.StatusDisputed:
		// No user-facing notification for disputes; operations reads the log.
		log.Printf("dispatcher: payment=%s disputed charge=%s reason=%q", p.ID, p.ChargeID, p.ErrorMessage)
		return
	default:
		return
	}

	if d.notifier == nil || p.UserID == "" {
		return
	}
	user, err := d.users.Get(ctx, p.UserID)
	if err != nil || user.Email == "" {
		log.Printf("dispatcher: payment=%s user=%s email lookup failed err=%v", p.ID, p.UserID, err)
		return
	}

	switch {
	case dec.Next == models.StatusCompleted:
		body = successTemplate(user.Email, p.ReceiptURL)
	case dec.Kind == KindSessionExpired:
		body = "Your payment session has expired. Please try again if you wish to complete your purchase."
	default:
		reason := p.ErrorMessage
		if reason == "" {
			reason = "Payment processing failed"
		}
		body = failureTemplate(user.Email, reason)
	}

	if err := d.notifier.Send(ctx, user.Email, subject, body); err != nil {
		log.Printf("dispatcher: payment=%s notify %s failed err=%v", p.ID, user.Email, err)
	}
}

func successTemplate(email, receiptURL string) string {
	return fmt.Sprintf(`Dear %s,

Thank you for your payment. Your transaction was successful.

You can view your receipt here: %s
If you have any questions, please contact our support team.

Best regards,
BeardFriends
`, email, receiptURL)
}

func failureTemplate(email, reason string) string {
	return fmt.Sprintf(`Dear %s,

We regret to inform you that your payment could not be processed.
Reason: %s

Please check your payment information and try again. If the problem persists,
contact your bank or use a different payment method.

If you need assistance, please contact our support team.

Best regards,
BeardFriends
`, email, reason)
}
