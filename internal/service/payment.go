package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traaaction/backend/internal/events"
	"github.com/traaaction/backend/internal/fees"
	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/reward"
)

type OutcomeStatus string

const (
	OutcomeCreated      OutcomeStatus = "created"
	OutcomeDuplicate    OutcomeStatus = "duplicate"
	OutcomeUnattributed OutcomeStatus = "unattributed"
	OutcomeSkipped      OutcomeStatus = "skipped"
)

// Reasons a qualifying event produces no commission.
const (
	SkipEventDisabled   = "event_type_disabled"
	SkipRecurringWindow = "beyond_recurring_window"
)

type Outcome struct {
	Status     OutcomeStatus     `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Commission *model.Commission `json:"commission,omitempty"`
}

// BuildCommission computes the commission an attributed event earns. It
// returns a skip reason instead when the mission does not pay for the event.
func BuildCommission(ev *model.PaymentEvent, attr *model.Attribution, mission *model.Mission, sched fees.Schedule, defaultHoldDays int, now time.Time) (*model.Commission, string) {
	source, ok := ev.Source()
	if !ok {
		return nil, SkipEventDisabled
	}
	rwd, enabled := mission.RewardFor(source)
	if !enabled {
		return nil, SkipEventDisabled
	}
	if rwd.Kind == "" {
		rwd = reward.NewFixed(0)
	}

	c := &model.Commission{
		ID:                    uuid.New(),
		SellerID:              attr.SellerID,
		AttributedSellerID:    attr.AttributedSellerID,
		MissionID:             mission.ID,
		WorkspaceID:           attr.WorkspaceID,
		LinkID:                attr.LinkID,
		GroupID:               attr.GroupID,
		OrganizationMissionID: attr.OrganizationMissionID,
		SaleID:                stringPtr(ev.EventID),
		CustomerID:            optionalString(ev.CustomerID),
		SubscriptionID:        optionalString(ev.SubscriptionID),
		CommissionRate:        rwd.String(),
		CommissionType:        rwd.Kind,
		Currency:              currency(ev.Currency),
		Status:                model.CommissionStatusPending,
		Source:                source,
		HoldDays:              mission.EffectiveHoldDays(defaultHoldDays),
		CreatedAt:             now,
	}

	switch source {
	case model.CommissionSourceLead:
		// Leads pay the configured amount whatever the sale size.
		c.CommissionAmount = rwd.Amount(0)
		return c, ""
	case model.CommissionSourceRecurring:
		limit := mission.RecurringDurationMonths
		if limit != nil && ev.RecurringMonth > *limit {
			return nil, SkipRecurringWindow
		}
		month := ev.RecurringMonth
		c.RecurringMonth = &month
		c.RecurringMax = limit
	}

	b := sched.Split(ev.GrossAmount)
	c.GrossAmount = b.Gross
	c.TaxAmount = b.Tax
	c.ProcessorFee = b.ProcessorFee
	c.NetAmount = b.Net
	c.PlatformFee = b.PlatformFee
	c.CommissionAmount = rwd.Amount(b.NetOfTax)
	return c, ""
}

// CommissionService turns payment webhooks into commissions.
type CommissionService struct {
	store       Store
	attribution *AttributionService
	settings    *SettingsService
	publisher   Publisher
	now         func() time.Time
	log         *log.Entry
}

func NewCommissionService(store Store, attribution *AttributionService, settings *SettingsService, publisher Publisher) *CommissionService {
	return &CommissionService{
		store:       store,
		attribution: attribution,
		settings:    settings,
		publisher:   publisher,
		now:         time.Now,
		log:         log.WithField("component", "webhook"),
	}
}

// SetClock overrides the time source.
func (s *CommissionService) SetClock(now func() time.Time) {
	s.now = now
}

// HandlePaymentEvent processes one webhook delivery. Unattributable,
// duplicate and disabled events are outcomes, not errors. An error means
// storage failed and the processor should retry.
func (s *CommissionService) HandlePaymentEvent(ctx context.Context, ev *model.PaymentEvent, payload []byte) (*Outcome, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	logger := s.log.WithFields(log.Fields{
		"event_id":    ev.EventID,
		"event_type":  ev.EventType,
		"click_id":    ev.ClickID,
		"customer_id": ev.CustomerID,
	})

	attr, err := s.attribution.Resolve(ctx, ev.WorkspaceID, ev.CustomerID, ev.ClickID)
	if err != nil {
		var unattributed *Unattributed
		if !errors.As(err, &unattributed) {
			return nil, err
		}
		if err := s.recordUnattributed(ctx, ev, payload, unattributed); err != nil {
			return nil, err
		}
		logger.WithField("reason", unattributed.Reason).Info("Event not attributed, no commission created")
		return &Outcome{Status: OutcomeUnattributed, Reason: unattributed.Reason}, nil
	}

	return s.generate(ctx, ev, attr, logger)
}

func (s *CommissionService) generate(ctx context.Context, ev *model.PaymentEvent, attr *model.Attribution, logger *log.Entry) (*Outcome, error) {
	mission, err := s.store.GetMission(ctx, attr.MissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	sched, err := s.settings.FeeSchedule(ctx)
	if err != nil {
		return nil, err
	}
	holdDays, err := s.settings.DefaultHoldDays(ctx)
	if err != nil {
		return nil, err
	}

	commission, skip := BuildCommission(ev, attr, mission, sched, holdDays, s.now())
	if commission == nil {
		logger.WithField("reason", skip).Info("Event skipped")
		return &Outcome{Status: OutcomeSkipped, Reason: skip}, nil
	}

	stored, created, err := s.store.CreateCommission(ctx, commission)
	if err != nil {
		return nil, fmt.Errorf("failed to create commission: %w", err)
	}
	if !created {
		logger.WithField("commission_id", stored.ID).Info("Duplicate event, commission already exists")
		return &Outcome{Status: OutcomeDuplicate, Commission: stored}, nil
	}

	logger.WithFields(log.Fields{
		"commission_id":     stored.ID,
		"seller_id":         stored.SellerID,
		"commission_amount": stored.CommissionAmount,
		"shape":             attr.Shape,
	}).Info("Commission created")
	publish(ctx, s.publisher, events.CommissionCreated, stored.SellerID, stored)

	return &Outcome{Status: OutcomeCreated, Commission: stored}, nil
}

func (s *CommissionService) recordUnattributed(ctx context.Context, ev *model.PaymentEvent, payload []byte, u *Unattributed) error {
	if len(payload) == 0 || !json.Valid(payload) {
		var err error
		if payload, err = json.Marshal(ev); err != nil {
			return err
		}
	}
	err := s.store.RecordUnattributed(ctx, &model.UnattributedEvent{
		EventID:    ev.EventID,
		EventType:  ev.EventType,
		ClickID:    optionalString(ev.ClickID),
		CustomerID: optionalString(ev.CustomerID),
		LinkID:     u.LinkID,
		Reason:     u.Reason,
		Payload:    payload,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record unattributed event: %w", err)
	}
	return nil
}

// Replay re-runs a stored unattributed event through the generator.
// Idempotency keys make repeated replays harmless.
func (s *CommissionService) Replay(ctx context.Context, stored model.UnattributedEvent) (*Outcome, error) {
	var ev model.PaymentEvent
	if err := json.Unmarshal(stored.Payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: stored payload: %v", model.ErrMalformedEvent, err)
	}
	return s.HandlePaymentEvent(ctx, &ev, stored.Payload)
}

// publish sends an event after commit. Failures are logged only.
func publish(ctx context.Context, p Publisher, eventType string, key uuid.UUID, v interface{}) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).WithField("event_type", eventType).Error("Failed to encode event")
		return
	}
	if err := p.Publish(ctx, eventType, payload, key.String()); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"seller_id":  key,
		}).Warn("Failed to publish event")
	}
}

func stringPtr(s string) *string {
	return &s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func currency(c string) string {
	if c == "" {
		return "EUR"
	}
	return strings.ToUpper(c)
}
