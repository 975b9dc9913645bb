package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/traaaction/backend/internal/model"
)

// GetBalance returns the cached pending/due/paid totals of a seller
func (h *Handler) GetBalance(c *fiber.Ctx) error {
	sellerID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	balance, err := h.balanceSvc.GetBalance(c.Context(), sellerID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(balance)
}

// ListCommissions returns seller commissions, optionally filtered by ?status=
func (h *Handler) ListCommissions(c *fiber.Ctx) error {
	sellerID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	filter := model.CommissionFilter{}
	filter.Limit, filter.Offset = pagination(c)
	if status := c.Query("status"); status != "" {
		s := model.CommissionStatus(strings.ToUpper(status))
		filter.Status = &s
	}

	commissions, err := h.balanceSvc.ListCommissions(c.Context(), sellerID, filter)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"commissions": commissions,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})
}

// GetLedger returns balance history, newest first
func (h *Handler) GetLedger(c *fiber.Ctx) error {
	sellerID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	limit, offset := pagination(c)
	entries, err := h.balanceSvc.GetTransactions(c.Context(), sellerID, limit, offset)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"transactions": entries,
		"limit":        limit,
		"offset":       offset,
	})
}

func (h *Handler) GetCommission(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	commission, err := h.balanceSvc.GetCommission(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(commission)
}
