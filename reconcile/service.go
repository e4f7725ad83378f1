package reconcile

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/datatypes"

	"github.com/beardfriends/payments-backend/gateway"
	"github.com/beardfriends/payments-backend/models"
	"github.com/beardfriends/payments-backend/store"
)

// Outcomes reported per handled event. All of them acknowledge with 200
// except a persistence failure, which surfaces as an error so the gateway
// redelivers.
const (
	OutcomeProcessed = models.OutcomeProcessed
	OutcomeNoOp      = models.OutcomeNoOp
	OutcomeIgnored   = models.OutcomeIgnored
	OutcomeNotFound  = models.OutcomeNotFound
	OutcomeStale     = models.OutcomeStale
	OutcomeDuplicate = "duplicate"
)

// transitionAttempts bounds the re-decide loop when a concurrent handler wins
// the conditional update first.
const transitionAttempts = 3

// Result is the reconciliation verdict for one delivery.
type Result struct {
	Outcome string
	Payment *models.Payment
}

// Config wires the orchestrator. Events, Dedup and Charges are optional;
// Ledger, Users and Notifier drive the core contract.
type Config struct {
	WebhookSecret string
	Tolerance     time.Duration

	Ledger   LedgerStore
	Users    UserStore
	Events   EventLog
	Dedup    Deduper
	Charges  ChargeRetriever
	Notifier Notifier
}

// Service sequences the reconciliation pipeline: verify -> classify ->
// locate -> transition -> persist -> notify. One linear pass per delivery; no
// stage calls back into an earlier one.
type Service struct {
	secret    string
	tolerance time.Duration

	ledger     LedgerStore
	users      UserStore
	events     EventLog
	dedup      Deduper
	charges    ChargeRetriever
	locator    *Locator
	dispatcher *Dispatcher
}

func NewService(cfg Config) *Service {
	tolerance := cfg.Tolerance
	if tolerance == 0 {
		tolerance = gateway.DefaultTolerance
	}
	return &Service{
		secret:     cfg.WebhookSecret,
		tolerance:  tolerance,
		ledger:     cfg.Ledger,
		users:      cfg.Users,
		events:     cfg.Events,
		dedup:      cfg.Dedup,
		charges:    cfg.Charges,
		locator:    NewLocator(cfg.Ledger),
		dispatcher: NewDispatcher(cfg.Users, cfg.Notifier),
	}
}

// HandleEvent reconciles one raw webhook delivery. The payload must be the
// exact bytes as transmitted; signature verification runs before any parsing.
//
// Returned errors are transient-class (persistence) and map to a server
// error; everything else resolves to a Result and a 200 acknowledgment.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, sigHeader string) (Result, error) {
	evt, err := gateway.VerifyEvent(payload, sigHeader, s.secret, s.tolerance)
	if err != nil {
		return Result{}, err
	}

	if s.dedup != nil {
		seen, derr := s.dedup.Seen(ctx, evt.ID)
		if derr != nil {
			log.Printf("reconcile: dedup unavailable event=%s err=%v", evt.ID, derr)
		} else if seen {
			log.Printf("reconcile: duplicate delivery event=%s type=%s", evt.ID, evt.Type)
			return Result{Outcome: OutcomeDuplicate}, nil
		}
	}

	if s.events != nil {
		rerr := s.events.Record(ctx, &models.WebhookEvent{
			EventID:   evt.ID,
			EventType: evt.Type,
			Payload:   datatypes.JSON(payload),
		})
		if errors.Is(rerr, store.ErrDuplicate) {
			done, derr := s.priorAttemptCompleted(ctx, evt.ID)
			if derr != nil {
				return Result{}, derr
			}
			if done {
				log.Printf("reconcile: duplicate delivery event=%s type=%s", evt.ID, evt.Type)
				return Result{Outcome: OutcomeDuplicate}, nil
			}
			// The prior delivery left its row but never reached a final
			// outcome; the redelivery is the retry and must run the full
			// pipeline.
			log.Printf("reconcile: reprocessing event=%s type=%s after incomplete attempt", evt.ID, evt.Type)
		} else if rerr != nil {
			// Without the durable dedup row a redelivery could double-apply;
			// fail so the gateway retries once the store is back.
			return Result{}, rerr
		}
	}

	kind, ok := Classify(evt.Type)
	if !ok {
		s.markProcessed(ctx, evt.ID, OutcomeIgnored, "")
		return Result{Outcome: OutcomeIgnored}, nil
	}

	rec, strategy, err := s.locator.Locate(ctx, evt)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("reconcile: error: no payment record for event=%s type=%s intent=%s session=%s",
			evt.ID, evt.Type, evt.Object.PaymentIntentID, evt.SessionID())
		s.markProcessed(ctx, evt.ID, OutcomeNotFound, "")
		return Result{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		s.markFailed(ctx, evt.ID, err)
		return Result{}, err
	}

	s.enrichReceipt(ctx, evt, kind)

	updated, dec, err := s.transition(ctx, rec, kind, evt)
	if errors.Is(err, ErrStaleEvent) || errors.Is(err, ErrNoTransition) {
		log.Printf("reconcile: warn: rejected event=%s type=%s payment=%s status=%s strategy=%s reason=%v",
			evt.ID, evt.Type, rec.ID, rec.Status, strategy, err)
		s.markProcessed(ctx, evt.ID, OutcomeStale, err.Error())
		return Result{Outcome: OutcomeStale, Payment: rec}, nil
	}
	if err != nil {
		s.markFailed(ctx, evt.ID, err)
		return Result{}, err
	}

	if dec.NoOp {
		log.Printf("reconcile: noop event=%s type=%s payment=%s status=%s", evt.ID, evt.Type, updated.ID, updated.Status)
		s.markProcessed(ctx, evt.ID, OutcomeNoOp, "")
		return Result{Outcome: OutcomeNoOp, Payment: updated}, nil
	}

	s.updateUserPointer(ctx, updated)
	s.dispatcher.Dispatch(ctx, updated, dec)

	log.Printf("reconcile: processed event=%s type=%s payment=%s %s->%s strategy=%s",
		evt.ID, evt.Type, updated.ID, dec.From, dec.Next, strategy)
	s.markProcessed(ctx, evt.ID, OutcomeProcessed, "")
	return Result{Outcome: OutcomeProcessed, Payment: updated}, nil
}

// transition runs the engine against the current record and applies the
// decision with a status precondition. When a concurrent handler wins the
// race, the record is re-read and re-decided; the replay usually resolves to
// a no-op, which is exactly the at-most-once behavior the dispatcher needs.
func (s *Service) transition(ctx context.Context, rec *models.Payment, kind Kind, evt *gateway.Event) (*models.Payment, Decision, error) {
	for attempt := 0; ; attempt++ {
		dec, err := Decide(rec, kind, evt)
		if err != nil {
			return nil, Decision{}, err
		}
		if dec.NoOp {
			return rec, dec, nil
		}

		updated, err := s.ledger.ApplyTransition(ctx, rec.ID, dec.From, dec.Update)
		if err == nil {
			return updated, dec, nil
		}
		if !errors.Is(err, store.ErrConflict) || attempt+1 >= transitionAttempts {
			return nil, Decision{}, err
		}

		rec, err = s.ledger.FindByID(ctx, rec.ID)
		if err != nil {
			return nil, Decision{}, err
		}
	}
}

// enrichReceipt recovers the receipt URL from the gateway when a success
// event only carries latest_charge. Best effort: a gateway hiccup here must
// not fail the transition.
func (s *Service) enrichReceipt(ctx context.Context, evt *gateway.Event, kind Kind) {
	if s.charges == nil || outcomes[kind] != models.StatusCompleted {
		return
	}
	if evt.Object.ReceiptURL != "" || evt.Object.LatestChargeID == "" {
		return
	}
	ch, err := s.charges.RetrieveCharge(ctx, evt.Object.LatestChargeID)
	if err != nil {
		log.Printf("reconcile: retrieve charge %s for event=%s failed err=%v", evt.Object.LatestChargeID, evt.ID, err)
		return
	}
	evt.Object.ReceiptURL = ch.ReceiptURL
	if evt.Object.PaymentMethod == "" {
		evt.Object.PaymentMethod = ch.PaymentMethod
	}
}

// updateUserPointer maintains the non-authoritative last_transaction_id audit
// pointer on the user record. Best effort by contract.
func (s *Service) updateUserPointer(ctx context.Context, p *models.Payment) {
	if s.users == nil || p.UserID == "" {
		return
	}
	ref := p.PaymentIntentID
	if ref == "" {
		ref = p.TransactionID
	}
	if err := s.users.SetLastTransaction(ctx, p.UserID, ref); err != nil {
		log.Printf("reconcile: update user=%s last_transaction_id failed err=%v", p.UserID, err)
	}
}

// priorAttemptCompleted reports whether the logged delivery of this event id
// already reached a final outcome. A row without processed_at (the earlier
// attempt died mid-pipeline) or stamped with the error outcome must be
// reprocessed, not short-circuited, or a transient persistence failure would
// strand the record forever.
func (s *Service) priorAttemptCompleted(ctx context.Context, eventID string) (bool, error) {
	prior, err := s.events.Find(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return prior.ProcessedAt != nil && prior.Outcome != models.OutcomeError, nil
}

// markProcessed stamps the final outcome on the event log and only then
// confirms the fast-path dedup key, so a Seen hit always means a completed
// attempt. Both writes are best effort.
func (s *Service) markProcessed(ctx context.Context, eventID, outcome, processingError string) {
	if s.events != nil {
		if err := s.events.MarkProcessed(ctx, eventID, outcome, processingError); err != nil {
			log.Printf("reconcile: mark event=%s processed failed err=%v", eventID, err)
		}
	}
	if s.dedup != nil {
		if err := s.dedup.MarkSeen(ctx, eventID); err != nil {
			log.Printf("reconcile: dedup confirm event=%s failed err=%v", eventID, err)
		}
	}
}

// markFailed stamps a transient failure on the event log without confirming
// the dedup key, so the gateway's redelivery runs the pipeline again.
func (s *Service) markFailed(ctx context.Context, eventID string, cause error) {
	if s.events == nil {
		return
	}
	if err := s.events.MarkProcessed(ctx, eventID, models.OutcomeError, cause.Error()); err != nil {
		log.Printf("reconcile: mark event=%s failed err=%v", eventID, err)
	}
}
