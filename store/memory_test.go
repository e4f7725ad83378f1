package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beardfriends/payments-backend/models"
)

func TestMemory_ApplyTransition_ConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.SeedPayment(models.Payment{ID: "pay_1", TransactionID: "cs_1", Status: models.StatusPending})

	updated, err := mem.ApplyTransition(ctx, "pay_1", models.StatusPending, models.PaymentUpdate{
		Status:          models.StatusCompleted,
		PaymentIntentID: "pi_1",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, updated.Status)
	require.Equal(t, "pi_1", updated.PaymentIntentID)

	// The precondition no longer holds; a second writer loses.
	_, err = mem.ApplyTransition(ctx, "pay_1", models.StatusPending, models.PaymentUpdate{
		Status: models.StatusFailed,
	})
	require.ErrorIs(t, err, ErrConflict)

	rec, err := mem.FindByID(ctx, "pay_1")
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, rec.Status)
}

func TestMemory_ApplyTransition_UnknownRecord(t *testing.T) {
	mem := NewMemory()
	_, err := mem.ApplyTransition(context.Background(), "pay_missing", models.StatusPending, models.PaymentUpdate{
		Status: models.StatusCompleted,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ApplyTransition_IdentifiersImmutable(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.SeedPayment(models.Payment{
		ID:              "pay_1",
		TransactionID:   "cs_1",
		PaymentIntentID: "pi_original",
		ChargeID:        "ch_original",
		ReceiptURL:      "https://pay.example/r/old",
		Status:          models.StatusCompleted,
	})

	updated, err := mem.ApplyTransition(ctx, "pay_1", models.StatusCompleted, models.PaymentUpdate{
		Status:          models.StatusDisputed,
		PaymentIntentID: "pi_other",
		ChargeID:        "ch_other",
		ErrorMessage:    "Chargeback initiated",
	})
	require.NoError(t, err)

	// Identifiers stick once assigned; auxiliary fields stay additive.
	require.Equal(t, "pi_original", updated.PaymentIntentID)
	require.Equal(t, "ch_original", updated.ChargeID)
	require.Equal(t, "https://pay.example/r/old", updated.ReceiptURL)
	require.Equal(t, "Chargeback initiated", updated.ErrorMessage)
}

func TestMemory_ApplyTransition_EmptyFieldsDoNotClear(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.SeedPayment(models.Payment{
		ID:            "pay_1",
		TransactionID: "cs_1",
		ReceiptURL:    "https://pay.example/r/1",
		PaymentMethod: "pm_1",
		Status:        models.StatusPending,
	})

	updated, err := mem.ApplyTransition(ctx, "pay_1", models.StatusPending, models.PaymentUpdate{
		Status: models.StatusCompleted,
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/r/1", updated.ReceiptURL)
	require.Equal(t, "pm_1", updated.PaymentMethod)
}

func TestMemory_FindByKeys(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.SeedPayment(models.Payment{
		ID:              "pay_1",
		TransactionID:   "cs_1",
		PaymentIntentID: "pi_1",
		CorrelationID:   "corr_1",
		Status:          models.StatusPending,
	})

	for name, find := range map[string]func() (*models.Payment, error){
		"by id":          func() (*models.Payment, error) { return mem.FindByID(ctx, "pay_1") },
		"by intent":      func() (*models.Payment, error) { return mem.FindByIntentID(ctx, "pi_1") },
		"by transaction": func() (*models.Payment, error) { return mem.FindByTransactionID(ctx, "cs_1") },
		"by correlation": func() (*models.Payment, error) { return mem.FindByCorrelationID(ctx, "corr_1") },
	} {
		t.Run(name, func(t *testing.T) {
			p, err := find()
			require.NoError(t, err)
			require.Equal(t, "pay_1", p.ID)
		})
	}

	// Empty keys never match the records whose fields are empty.
	_, err := mem.FindByIntentID(ctx, "")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = mem.FindByCorrelationID(ctx, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_FindPendingByProductSet(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mem.SeedPayment(models.Payment{
		ID: "pay_old", TransactionID: "cs_old",
		ProductIDs: []string{"prod_a", "prod_b"},
		Status:     models.StatusPending,
		CreatedAt:  base,
	})
	mem.SeedPayment(models.Payment{
		ID: "pay_new", TransactionID: "cs_new",
		ProductIDs: []string{"prod_b", "prod_a"},
		Status:     models.StatusPending,
		CreatedAt:  base.Add(time.Minute),
	})
	mem.SeedPayment(models.Payment{
		ID: "pay_done", TransactionID: "cs_done",
		ProductIDs: []string{"prod_a", "prod_b"},
		Status:     models.StatusCompleted,
		CreatedAt:  base.Add(-time.Hour),
	})

	// Order within the set is irrelevant; the oldest pending match wins.
	p, err := mem.FindPendingByProductSet(ctx, []string{"prod_b", "prod_a"})
	require.NoError(t, err)
	require.Equal(t, "pay_old", p.ID)

	_, err = mem.FindPendingByProductSet(ctx, []string{"prod_a"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = mem.FindPendingByProductSet(ctx, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_EventLog(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	err := mem.Record(ctx, &models.WebhookEvent{EventID: "evt_1", EventType: "charge.succeeded"})
	require.NoError(t, err)

	err = mem.Record(ctx, &models.WebhookEvent{EventID: "evt_1", EventType: "charge.succeeded"})
	require.ErrorIs(t, err, ErrDuplicate)

	// Before processing finishes the row has no final outcome.
	pending, err := mem.Find(ctx, "evt_1")
	require.NoError(t, err)
	require.Nil(t, pending.ProcessedAt)

	require.NoError(t, mem.MarkProcessed(ctx, "evt_1", models.OutcomeProcessed, ""))

	logged, err := mem.Find(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeProcessed, logged.Outcome)
	require.NotNil(t, logged.ProcessedAt)

	_, err = mem.Find(ctx, "evt_unknown")
	require.ErrorIs(t, err, ErrNotFound)
}
