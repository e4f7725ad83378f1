package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/beardfriends/payments-backend/models"
)

// Memory is an in-memory ledger store with the same conditional-update
// semantics as the Postgres store. Used by the test suite and local runs
// without a database.
type Memory struct {
	mu       sync.RWMutex
	payments map[string]*models.Payment
	users    map[string]*models.User
	events   map[string]*models.WebhookEvent
}

func NewMemory() *Memory {
	return &Memory{
		payments: make(map[string]*models.Payment),
		users:    make(map[string]*models.User),
		events:   make(map[string]*models.WebhookEvent),
	}
}

// SeedPayment inserts a ledger record as the checkout flow would.
func (s *Memory) SeedPayment(p models.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	s.payments[p.ID] = &p
}

func (s *Memory) SeedUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

func (s *Memory) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	return s.find(func(p *models.Payment) bool { return p.ID == id && id != "" })
}

func (s *Memory) FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	return s.find(func(p *models.Payment) bool { return p.PaymentIntentID == intentID && intentID != "" })
}

func (s *Memory) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return s.find(func(p *models.Payment) bool { return p.TransactionID == transactionID && transactionID != "" })
}

func (s *Memory) FindByCorrelationID(ctx context.Context, token string) (*models.Payment, error) {
	return s.find(func(p *models.Payment) bool { return p.CorrelationID == token && token != "" })
}

func (s *Memory) FindPendingByProductSet(ctx context.Context, productIDs []string) (*models.Payment, error) {
	if len(productIDs) == 0 {
		return nil, ErrNotFound
	}
	return s.find(func(p *models.Payment) bool {
		return p.Status == models.StatusPending && sameIDSet(p.ProductIDs, productIDs)
	})
}

func (s *Memory) find(match func(*models.Payment) bool) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []*models.Payment
	for _, p := range s.payments {
		if match(p) {
			hits = append(hits, p)
		}
	}
	if len(hits) == 0 {
		return nil, ErrNotFound
	}
	// Oldest first, mirroring the SQL store's ordering.
	sort.Slice(hits, func(i, j int) bool { return hits[i].CreatedAt.Before(hits[j].CreatedAt) })
	cp := *hits[0]
	return &cp, nil
}

func (s *Memory) ApplyTransition(ctx context.Context, id string, from models.PaymentStatus, u models.PaymentUpdate) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != from {
		return nil, ErrConflict
	}
	u.Apply(p)
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

// ----------------- Users -----------------

func (s *Memory) Get(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Memory) SetLastTransaction(ctx context.Context, userID, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.LastTransactionID = transactionID
		u.UpdatedAt = time.Now()
	}
	return nil
}

// ----------------- Webhook event log -----------------

func (s *Memory) Record(ctx context.Context, evt *models.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[evt.EventID]; ok {
		return ErrDuplicate
	}
	cp := *evt
	cp.CreatedAt = time.Now()
	s.events[evt.EventID] = &cp
	return nil
}

func (s *Memory) Find(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *Memory) MarkProcessed(ctx context.Context, eventID, outcome, processingError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[eventID]; ok {
		now := time.Now()
		e.ProcessedAt = &now
		e.Outcome = outcome
		e.ProcessingError = processingError
	}
	return nil
}
