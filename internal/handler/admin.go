package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/middleware"
)

func actor(c *fiber.Ctx) string {
	return middleware.GetActor(c)
}

// --- Settings ---

// GetSettings returns stored overrides merged over the configured defaults
func (h *Handler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settingsSvc.Effective(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(settings)
}

type SetSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *Handler) SetSetting(c *fiber.Ctx) error {
	var req SetSettingRequest
	if err := c.BodyParser(&req); err != nil || req.Key == "" {
		return badRequest(c, "key is required")
	}

	if err := h.settingsSvc.Set(c.Context(), actor(c), req.Key, req.Value); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"key":     req.Key,
		"value":   req.Value,
	})
}

// --- Reconciliation ---

func (h *Handler) CheckReconciliation(c *fiber.Ctx) error {
	sellerID, err := paramUUID(c, "seller_id")
	if err != nil {
		return err
	}

	rec, err := h.balanceSvc.CheckReconciliation(c.Context(), sellerID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(rec)
}

// ReconcileSeller rebuilds the cached balance of one seller from its commissions
func (h *Handler) ReconcileSeller(c *fiber.Ctx) error {
	sellerID, err := paramUUID(c, "seller_id")
	if err != nil {
		return err
	}

	rec, err := h.balanceSvc.ReconcileSeller(c.Context(), actor(c), sellerID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(rec)
}

// ReconcileAll checks every seller and repairs the ones that drifted
func (h *Handler) ReconcileAll(c *fiber.Ctx) error {
	repaired, err := h.balanceSvc.ReconcileAll(c.Context(), actor(c))
	if err != nil {
		return fail(c, err)
	}
	if repaired == nil {
		repaired = []uuid.UUID{}
	}
	return c.JSON(fiber.Map{
		"repaired": repaired,
		"count":    len(repaired),
	})
}

// --- Repair ---

type ReattributeRequest struct {
	SellerID uuid.UUID `json:"seller_id"`
	Force    bool      `json:"force"`
}

func (h *Handler) ReattributeLink(c *fiber.Ctx) error {
	linkID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req ReattributeRequest
	if err := c.BodyParser(&req); err != nil || req.SellerID == uuid.Nil {
		return badRequest(c, "seller_id is required")
	}

	result, err := h.repairSvc.ReattributeLink(c.Context(), actor(c), linkID, req.SellerID, req.Force)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

type AdjustBalanceRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// AdjustBalance posts a signed manual correction to the seller ledger
func (h *Handler) AdjustBalance(c *fiber.Ctx) error {
	sellerID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req AdjustBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON payload")
	}

	entry, balance, err := h.balanceSvc.AdjustBalance(c.Context(), actor(c), sellerID, req.Amount, req.Description)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"entry":   entry,
		"balance": balance,
	})
}

// --- Logs ---

func (h *Handler) GetAdminLogs(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	logs, err := h.repairSvc.GetAdminLogs(c.Context(), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"logs":   logs,
		"limit":  limit,
		"offset": offset,
	})
}
