package reconcile

import (
	"context"
	"sync"

	"github.com/beardfriends/payments-backend/gateway"
	"github.com/beardfriends/payments-backend/models"
)

type sentMail struct {
	Address string
	Subject string
	Body    string
}

// notifierRecorder captures dispatched notifications; err, when set, makes
// every send fail.
type notifierRecorder struct {
	mu    sync.Mutex
	sends []sentMail
	err   error
}

func (n *notifierRecorder) Send(ctx context.Context, address, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sends = append(n.sends, sentMail{Address: address, Subject: subject, Body: body})
	return nil
}

func (n *notifierRecorder) sent() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail(nil), n.sends...)
}

type chargeStub struct {
	charge *gateway.Charge
	err    error
	calls  int
}

func (c *chargeStub) RetrieveCharge(ctx context.Context, chargeID string) (*gateway.Charge, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.charge, nil
}

// deduperMap is an in-memory stand-in for the Redis fast path.
type deduperMap struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newDeduperMap() *deduperMap {
	return &deduperMap{seen: make(map[string]bool)}
}

func (d *deduperMap) Seen(ctx context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[eventID], nil
}

func (d *deduperMap) MarkSeen(ctx context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[eventID] = true
	return nil
}

// flakyLedger wraps a real ledger store and fails ApplyTransition a set
// number of times, optionally running a hook first (to simulate a concurrent
// handler winning the conditional update).
type flakyLedger struct {
	LedgerStore
	applyErr  error
	failures  int
	beforeErr func()
}

func (f *flakyLedger) ApplyTransition(ctx context.Context, id string, from models.PaymentStatus, u models.PaymentUpdate) (*models.Payment, error) {
	if f.failures > 0 {
		f.failures--
		if f.beforeErr != nil {
			f.beforeErr()
		}
		return nil, f.applyErr
	}
	return f.LedgerStore.ApplyTransition(ctx, id, from, u)
}
