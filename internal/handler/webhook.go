package handler

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/service"
)

// PaymentWebhook receives checkout, renewal and lead events. Only storage
// failures answer 5xx; everything else is acknowledged so the processor
// stops retrying.
func (h *Handler) PaymentWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)

	var ev model.PaymentEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return badRequest(c, "invalid JSON payload")
	}

	outcome, err := h.commissionSvc.HandlePaymentEvent(c.Context(), &ev, payload)
	if err != nil {
		if errors.Is(err, model.ErrMalformedEvent) {
			return badRequest(c, err.Error())
		}
		return fail(c, err)
	}

	status := fiber.StatusOK
	if outcome.Status == service.OutcomeCreated {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(outcome)
}

// PayoutWebhook is called by the payout provider once a transfer settled.
func (h *Handler) PayoutWebhook(c *fiber.Ctx) error {
	var sel model.PayoutConfirmation
	if err := c.BodyParser(&sel); err != nil {
		return badRequest(c, "invalid JSON payload")
	}

	result, err := h.payoutSvc.Confirm(c.Context(), "payout-webhook", sel)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

// CronMature runs a maturation sweep on demand.
func (h *Handler) CronMature(c *fiber.Ctx) error {
	result, err := h.maturationSvc.Sweep(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}
