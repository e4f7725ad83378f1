package reconcile

import (
	"context"
	"errors"
	"log"

	"github.com/beardfriends/payments-backend/gateway"
	"github.com/beardfriends/payments-backend/models"
	"github.com/beardfriends/payments-backend/store"
)

// Lookup strategies, in the order they are tried.
const (
	StrategyIntentID      = "payment_intent_id"
	StrategyTransactionID = "transaction_id"
	StrategyCorrelation   = "correlation_id"
	StrategyProductSet    = "product_set"
)

// Locator resolves an event to the single ledger record it pertains to.
// Strategies run in strict priority order, stopping at the first hit:
//
//  1. exact payment_intent_id match
//  2. exact transaction_id match (session id, direct or via cross-reference
//     metadata)
//  3. correlation token carried in event metadata since checkout creation
//  4. pending record with an equal product-id set
//
// Strategy 4 predates correlation tokens and is ambiguous when two pending
// checkouts share a product set; it is kept only for records created before
// tokens existed and logs a warning whenever it is the one that hits.
type Locator struct {
	ledger LedgerStore
}

func NewLocator(ledger LedgerStore) *Locator {
	return &Locator{ledger: ledger}
}

// Locate returns the matched record and the name of the strategy that
// matched, or store.ErrNotFound when no strategy does.
func (l *Locator) Locate(ctx context.Context, evt *gateway.Event) (*models.Payment, string, error) {
	if id := evt.Object.PaymentIntentID; id != "" {
		p, err := l.ledger.FindByIntentID(ctx, id)
		if err == nil {
			return p, StrategyIntentID, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, "", err
		}
	}

	if sid := evt.SessionID(); sid != "" {
		p, err := l.ledger.FindByTransactionID(ctx, sid)
		if err == nil {
			return p, StrategyTransactionID, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, "", err
		}
	}

	if token := evt.Object.Metadata[gateway.MetaCorrelationID]; token != "" {
		p, err := l.ledger.FindByCorrelationID(ctx, token)
		if err == nil {
			return p, StrategyCorrelation, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, "", err
		}
	}

	if ids := evt.ProductIDs(); len(ids) > 0 {
		p, err := l.ledger.FindPendingByProductSet(ctx, ids)
		if err == nil {
			log.Printf("locator: warn: event=%s matched payment=%s by product set; record predates correlation tokens", evt.ID, p.ID)
			return p, StrategyProductSet, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, "", err
		}
	}

	return nil, "", store.ErrNotFound
}
