package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/beardfriends/payments-backend/gateway"
	"github.com/beardfriends/payments-backend/reconcile"
)

// Reconciler is the slice of the reconciliation service the webhook endpoint
// needs.
type Reconciler interface {
	HandleEvent(ctx context.Context, payload []byte, sigHeader string) (reconcile.Result, error)
}

type WebhookHandler struct {
	reconciler Reconciler
}

func NewWebhookHandler(reconciler Reconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandleStripeWebhook passes the raw request body straight to the
// reconciler. No body-parsing middleware may run ahead of this route: the
// signature covers the exact bytes as transmitted.
//
// Responses: 200 {"received":true} for everything the gateway must not
// retry (processed, no-op, duplicate, unknown type, lookup miss, stale);
// 400 on signature or payload failure; 5xx on persistence failure so the
// gateway redelivers.
func (h *WebhookHandler) HandleStripeWebhook(c *fiber.Ctx) error {
	_, err := h.reconciler.HandleEvent(c.Context(), c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, gateway.ErrBadSignature) || errors.Is(err, gateway.ErrMalformedPayload) {
			log.Printf("webhook: rejected delivery err=%v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("webhook: processing failed err=%v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event processing failed"})
	}

	return c.JSON(fiber.Map{"received": true})
}
