package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beardfriends/payments-backend/models"
)

// Gorm is the production ledger store backed by Postgres. All lookups and the
// conditional transition update are single statements.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *Gorm) FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	return s.first(ctx, "payment_intent_id = ?", intentID)
}

func (s *Gorm) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return s.first(ctx, "transaction_id = ?", transactionID)
}

func (s *Gorm) FindByCorrelationID(ctx context.Context, token string) (*models.Payment, error) {
	return s.first(ctx, "correlation_id = ?", token)
}

func (s *Gorm) first(ctx context.Context, query string, arg string) (*models.Payment, error) {
	if arg == "" {
		return nil, ErrNotFound
	}
	var p models.Payment
	err := s.db.WithContext(ctx).Where(query, arg).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPendingByProductSet matches a pending record whose product-id set
// equals the given set. Product ids are stored as JSON, so candidates are
// compared in memory; this is a last-resort path and the pending set is
// small.
func (s *Gorm) FindPendingByProductSet(ctx context.Context, productIDs []string) (*models.Payment, error) {
	if len(productIDs) == 0 {
		return nil, ErrNotFound
	}
	var candidates []models.Payment
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusPending).
		Order("created_at ASC").
		Find(&candidates).Error; err != nil {
		return nil, err
	}
	for i := range candidates {
		if sameIDSet(candidates[i].ProductIDs, productIDs) {
			return &candidates[i], nil
		}
	}
	return nil, ErrNotFound
}

// ApplyTransition performs the compare-and-swap the reconciliation engine
// relies on: one UPDATE with a status precondition, so two concurrent
// handlers resolving to the same record cannot both win. Identifier columns
// are only filled when still empty; diagnostic columns are only written when
// the event carried a value.
func (s *Gorm) ApplyTransition(ctx context.Context, id string, from models.PaymentStatus, u models.PaymentUpdate) (*models.Payment, error) {
	assign := map[string]interface{}{
		"status": u.Status,
	}
	if u.PaymentIntentID != "" {
		assign["payment_intent_id"] = gorm.Expr("COALESCE(NULLIF(payment_intent_id, ''), ?)", u.PaymentIntentID)
	}
	if u.ChargeID != "" {
		assign["charge_id"] = gorm.Expr("COALESCE(NULLIF(charge_id, ''), ?)", u.ChargeID)
	}
	if u.ReceiptURL != "" {
		assign["receipt_url"] = u.ReceiptURL
	}
	if u.PaymentMethod != "" {
		assign["payment_method"] = u.PaymentMethod
	}
	if u.ErrorMessage != "" {
		assign["error_message"] = u.ErrorMessage
	}
	if u.ErrorCode != "" {
		assign["error_code"] = u.ErrorCode
	}

	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(assign)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflict
	}
	return s.FindByID(ctx, id)
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// ----------------- Users -----------------

type GormUsers struct {
	db *gorm.DB
}

func NewGormUsers(db *gorm.DB) *GormUsers {
	return &GormUsers{db: db}
}

func (s *GormUsers) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormUsers) SetLastTransaction(ctx context.Context, userID, transactionID string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_transaction_id", transactionID).Error
}

// ----------------- Webhook event log -----------------

type GormEventLog struct {
	db *gorm.DB
}

func NewGormEventLog(db *gorm.DB) *GormEventLog {
	return &GormEventLog{db: db}
}

// Record inserts the event row; the unique index on event_id turns a
// redelivery into ErrDuplicate without a read-then-write race.
func (s *GormEventLog) Record(ctx context.Context, evt *models.WebhookEvent) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(evt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *GormEventLog) Find(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var evt models.WebhookEvent
	err := s.db.WithContext(ctx).Where("event_id = ?", eventID).First(&evt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &evt, nil
}

func (s *GormEventLog) MarkProcessed(ctx context.Context, eventID, outcome, processingError string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processed_at":     &now,
			"outcome":          outcome,
			"processing_error": processingError,
		}).Error
}
