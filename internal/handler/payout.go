package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/model"
)

type CreateBatchRequest struct {
	SellerID uuid.UUID `json:"seller_id"`
}

// CreatePayoutBatch groups every due commission of a seller for transfer
func (h *Handler) CreatePayoutBatch(c *fiber.Ctx) error {
	var req CreateBatchRequest
	if err := c.BodyParser(&req); err != nil || req.SellerID == uuid.Nil {
		return badRequest(c, "seller_id is required")
	}

	batch, err := h.payoutSvc.CreateBatch(c.Context(), actor(c), req.SellerID)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(batch)
}

func (h *Handler) GetPayoutBatch(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	batch, err := h.payoutSvc.GetBatch(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(batch)
}

// ConfirmPayout marks a batch or an explicit id list as paid
func (h *Handler) ConfirmPayout(c *fiber.Ctx) error {
	var sel model.PayoutConfirmation
	if err := c.BodyParser(&sel); err != nil {
		return badRequest(c, "invalid JSON payload")
	}

	result, err := h.payoutSvc.Confirm(c.Context(), actor(c), sel)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(result)
}
