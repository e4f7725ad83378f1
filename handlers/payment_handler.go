// payment_handler.go contains the read-only ledger inspection endpoints.
// Records are created by the checkout flow and mutated only by webhook
// reconciliation; there is no write surface here.
package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beardfriends/payments-backend/models"
)

type PaymentHandler struct {
	DB *gorm.DB
}

func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{DB: db}
}

func (h *PaymentHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type paymentFilters struct {
	UserID string
	Status string
}

func applyPaymentFilters(f paymentFilters) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.UserID != "" {
			db = db.Where("user_id = ?", f.UserID)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		return db
	}
}

func parseLimitOffset(limitStr, offsetStr string) (int, int) {
	limit, offset := 50, 0
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}

func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	f := paymentFilters{
		UserID: c.Query("user_id"),
		Status: c.Query("status"),
	}
	limit, offset := parseLimitOffset(c.Query("limit"), c.Query("offset"))

	var totalCount int64
	if err := h.DB.Model(&models.Payment{}).
		Scopes(applyPaymentFilters(f)).
		Count(&totalCount).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to count payments: " + err.Error()})
	}

	var payments []models.Payment
	if err := h.DB.Model(&models.Payment{}).
		Scopes(applyPaymentFilters(f)).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&payments).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to retrieve payments: " + err.Error()})
	}

	return c.JSON(fiber.Map{
		"payments": payments,
		"pagination": fiber.Map{
			"total":  totalCount,
			"limit":  limit,
			"offset": offset,
		},
	})
}

func (h *PaymentHandler) GetPayment(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(400).JSON(fiber.Map{"error": "id is required"})
	}

	// If it parses as a UUID, treat it as the record id; else treat it as
	// the checkout-session id.
	var p models.Payment
	if _, uerr := uuid.Parse(id); uerr == nil {
		err := h.DB.Where("id = ?", id).First(&p).Error
		if err == nil {
			return c.JSON(p)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to retrieve payment: " + err.Error()})
		}
	}

	if err := h.DB.Where("transaction_id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "Payment not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "Failed to retrieve payment: " + err.Error()})
	}
	return c.JSON(p)
}
