package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beardfriends/payments-backend/gateway"
	"github.com/beardfriends/payments-backend/models"
	"github.com/beardfriends/payments-backend/store"
)

func TestLocator_Priority(t *testing.T) {
	ctx := context.Background()

	seed := func() *store.Memory {
		mem := store.NewMemory()
		mem.SeedPayment(models.Payment{
			ID:              "pay_intent",
			TransactionID:   "cs_intent",
			PaymentIntentID: "pi_1",
			Status:          models.StatusPending,
		})
		mem.SeedPayment(models.Payment{
			ID:            "pay_session",
			TransactionID: "cs_1",
			Status:        models.StatusPending,
		})
		mem.SeedPayment(models.Payment{
			ID:            "pay_token",
			TransactionID: "cs_token",
			CorrelationID: "tok_1",
			Status:        models.StatusPending,
		})
		mem.SeedPayment(models.Payment{
			ID:            "pay_products",
			TransactionID: "cs_products",
			ProductIDs:    []string{"p1", "p2"},
			Status:        models.StatusPending,
		})
		return mem
	}

	var tests = []struct {
		name         string
		evt          *gateway.Event
		wantID       string
		wantStrategy string
	}{
		{
			name: "intent id wins over everything",
			evt: &gateway.Event{
				ID: "evt_1",
				Object: gateway.Object{
					Kind:            gateway.ObjectPaymentIntent,
					ID:              "pi_1",
					PaymentIntentID: "pi_1",
					Metadata: map[string]string{
						"checkout_session": "cs_1",
						"correlation_id":   "tok_1",
						"product_id":       `["p1","p2"]`,
					},
				},
			},
			wantID:       "pay_intent",
			wantStrategy: StrategyIntentID,
		},
		{
			name: "session id direct",
			evt: &gateway.Event{
				ID:     "evt_2",
				Object: gateway.Object{Kind: gateway.ObjectCheckoutSession, ID: "cs_1"},
			},
			wantID:       "pay_session",
			wantStrategy: StrategyTransactionID,
		},
		{
			name: "session id via cross-reference metadata beats product set",
			evt: &gateway.Event{
				ID: "evt_3",
				Object: gateway.Object{
					Kind:            gateway.ObjectPaymentIntent,
					ID:              "pi_unknown",
					PaymentIntentID: "pi_unknown",
					Metadata: map[string]string{
						"checkout_session": "cs_1",
						"product_id":       `["p1","p2"]`,
					},
				},
			},
			wantID:       "pay_session",
			wantStrategy: StrategyTransactionID,
		},
		{
			name: "correlation token beats product set",
			evt: &gateway.Event{
				ID: "evt_4",
				Object: gateway.Object{
					Kind:            gateway.ObjectPaymentIntent,
					ID:              "pi_unknown",
					PaymentIntentID: "pi_unknown",
					Metadata: map[string]string{
						"correlation_id": "tok_1",
						"product_id":     `["p1","p2"]`,
					},
				},
			},
			wantID:       "pay_token",
			wantStrategy: StrategyCorrelation,
		},
		{
			name: "product set as last resort",
			evt: &gateway.Event{
				ID: "evt_5",
				Object: gateway.Object{
					Kind:            gateway.ObjectPaymentIntent,
					ID:              "pi_unknown",
					PaymentIntentID: "pi_unknown",
					Metadata:        map[string]string{"product_id": `["p2","p1"]`},
				},
			},
			wantID:       "pay_products",
			wantStrategy: StrategyProductSet,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			loc := NewLocator(seed())
			p, strategy, err := loc.Locate(ctx, tt.evt)
			require.NoError(t, err)
			require.Equal(t, tt.wantID, p.ID)
			require.Equal(t, tt.wantStrategy, strategy)
		})
	}
}

func TestLocator_Miss(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.SeedPayment(models.Payment{
		ID:            "pay_done",
		TransactionID: "cs_done",
		ProductIDs:    []string{"p1"},
		Status:        models.StatusCompleted,
	})

	loc := NewLocator(mem)

	t.Run("nothing matches", func(t *testing.T) {
		_, _, err := loc.Locate(ctx, &gateway.Event{
			ID:     "evt_1",
			Object: gateway.Object{Kind: gateway.ObjectCheckoutSession, ID: "cs_other"},
		})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("product set only matches pending records", func(t *testing.T) {
		_, _, err := loc.Locate(ctx, &gateway.Event{
			ID: "evt_2",
			Object: gateway.Object{
				Kind:     gateway.ObjectPaymentIntent,
				ID:       "pi_x",
				Metadata: map[string]string{"product_id": `["p1"]`},
			},
		})
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
