package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traaaction/backend/internal/config"
	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/repository"
	"github.com/traaaction/backend/internal/service"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	cfg           *config.Config
	db            Pinger
	catalogSvc    *service.CatalogService
	commissionSvc *service.CommissionService
	maturationSvc *service.MaturationService
	payoutSvc     *service.PayoutService
	balanceSvc    *service.BalanceService
	repairSvc     *service.RepairService
	settingsSvc   *service.SettingsService
}

func New(
	cfg *config.Config,
	db Pinger,
	catalogSvc *service.CatalogService,
	commissionSvc *service.CommissionService,
	maturationSvc *service.MaturationService,
	payoutSvc *service.PayoutService,
	balanceSvc *service.BalanceService,
	repairSvc *service.RepairService,
	settingsSvc *service.SettingsService,
) *Handler {
	return &Handler{
		cfg:           cfg,
		db:            db,
		catalogSvc:    catalogSvc,
		commissionSvc: commissionSvc,
		maturationSvc: maturationSvc,
		payoutSvc:     payoutSvc,
		balanceSvc:    balanceSvc,
		repairSvc:     repairSvc,
		settingsSvc:   settingsSvc,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.db.Ping(c.Context()); err != nil {
		log.WithError(err).Error("Health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Register mounts every route. Webhooks are signed by the payment
// processor; catalog, reads and repair sit behind the admin secret.
func (h *Handler) Register(app *fiber.App, webhookAuth, cronAuth, adminAuth fiber.Handler) {
	app.Get("/health", h.Health)
	app.Get("/r/:slug", h.Redirect)

	webhooks := app.Group("/webhooks", webhookAuth)
	webhooks.Post("/payments", h.PaymentWebhook)
	webhooks.Post("/payouts", h.PayoutWebhook)

	internal := app.Group("/internal", cronAuth)
	internal.Get("/cron/mature", h.CronMature)
	internal.Post("/cron/mature", h.CronMature)

	api := app.Group("/api", adminAuth)
	api.Post("/sellers", h.CreateSeller)
	api.Get("/sellers/:id/balance", h.GetBalance)
	api.Get("/sellers/:id/commissions", h.ListCommissions)
	api.Get("/sellers/:id/ledger", h.GetLedger)
	api.Post("/groups", h.CreateGroup)
	api.Post("/groups/:id/members", h.AddGroupMember)
	api.Post("/missions", h.CreateMission)
	api.Get("/missions/:id", h.GetMission)
	api.Put("/missions/:id/terms", h.UpdateMissionTerms)
	api.Post("/missions/:id/enroll", h.Enroll)
	api.Post("/enrollments/:id/links", h.CreateMemberLink)
	api.Get("/commissions/:id", h.GetCommission)
	api.Post("/payouts/batches", h.CreatePayoutBatch)
	api.Get("/payouts/batches/:id", h.GetPayoutBatch)
	api.Post("/payouts/confirm", h.ConfirmPayout)

	admin := api.Group("/admin")
	admin.Get("/settings", h.GetSettings)
	admin.Post("/settings", h.SetSetting)
	admin.Post("/reconcile", h.ReconcileAll)
	admin.Get("/reconcile/:seller_id", h.CheckReconciliation)
	admin.Post("/reconcile/:seller_id", h.ReconcileSeller)
	admin.Post("/links/:id/reattribute", h.ReattributeLink)
	admin.Post("/sellers/:id/adjust", h.AdjustBalance)
	admin.Get("/logs", h.GetAdminLogs)
}

// ErrorHandler is the fiber fallback for errors handlers return unmapped.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed")
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// fail maps business errors to 4xx and everything else to 500.
func fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed")
		return c.Status(status).JSON(fiber.Map{
			"error": "internal error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrSellerNotFound),
		errors.Is(err, repository.ErrGroupNotFound),
		errors.Is(err, repository.ErrMissionNotFound),
		errors.Is(err, repository.ErrEnrollmentNotFound),
		errors.Is(err, repository.ErrLinkNotFound),
		errors.Is(err, repository.ErrCommissionNotFound),
		errors.Is(err, repository.ErrPayoutBatchNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrMalformedEvent),
		errors.Is(err, model.ErrMixedPayoutSelection),
		errors.Is(err, service.ErrInvalidReward),
		errors.Is(err, service.ErrInvalidEnrollment),
		errors.Is(err, service.ErrInvalidSetting),
		errors.Is(err, service.ErrUnknownSetting),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrEmptySelection),
		errors.Is(err, service.ErrInvalidStatus):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrMissionTermsLocked),
		errors.Is(err, service.ErrAlreadyEnrolled),
		errors.Is(err, service.ErrLinkAlreadyAttributed),
		errors.Is(err, service.ErrNotGroupMember),
		errors.Is(err, service.ErrNotGroupEnrollment),
		errors.Is(err, repository.ErrSlugTaken),
		errors.Is(err, repository.ErrAlreadyMember),
		errors.Is(err, repository.ErrNothingToPay):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

func pagination(c *fiber.Ctx) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	return limit, offset
}
