package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traaaction/backend/internal/events"
	"github.com/traaaction/backend/internal/model"
)

type PayoutService struct {
	store     Store
	publisher Publisher
	notifier  Notifier
	now       func() time.Time
}

func NewPayoutService(store Store, publisher Publisher) *PayoutService {
	return &PayoutService{store: store, publisher: publisher, now: time.Now}
}

func (s *PayoutService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

func (s *PayoutService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateBatch collects everything the seller is currently due into one batch.
func (s *PayoutService) CreateBatch(ctx context.Context, actor string, sellerID uuid.UUID) (*model.PayoutBatch, error) {
	batch, err := s.store.CreatePayoutBatch(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"batch_id":    batch.ID,
		"seller_id":   sellerID,
		"amount":      batch.Amount,
		"commissions": batch.CommissionCount,
		"actor":       actor,
	}).Info("Payout batch created")
	return batch, nil
}

func (s *PayoutService) GetBatch(ctx context.Context, id uuid.UUID) (*model.PayoutBatch, error) {
	return s.store.GetPayoutBatch(ctx, id)
}

// Confirm settles the selected commissions once the external transfer went
// through. Commissions not in PROCEED are skipped, so a repeated
// confirmation pays nothing twice.
func (s *PayoutService) Confirm(ctx context.Context, actor string, sel model.PayoutConfirmation) (*model.PayoutResult, error) {
	if len(sel.CommissionIDs) == 0 && sel.BatchID == nil {
		return nil, ErrEmptySelection
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	sel.CommissionIDs = sel.UniqueCommissionIDs()

	result, err := s.store.ConfirmPayout(ctx, sel, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payout: %w", err)
	}

	var total int64
	for _, p := range result.Payouts {
		total += p.Amount
		for _, c := range p.Commissions {
			publish(ctx, s.publisher, events.CommissionPaid, p.SellerID, c)
		}
		publish(ctx, s.publisher, events.LedgerEntry, p.SellerID, p.Entry)
		s.notify(ctx, p)
	}

	log.WithFields(log.Fields{
		"sellers": len(result.Payouts),
		"amount":  total,
		"skipped": result.Skipped,
	}).Info("Payout confirmed")

	if err := s.store.LogAdminAction(ctx, actor, model.AdminActionConfirmPayout, batchTarget(sel.BatchID), map[string]interface{}{
		"commission_ids": sel.CommissionIDs,
		"amount":         total,
		"skipped":        result.Skipped,
	}); err != nil {
		log.WithError(err).Warn("Failed to write admin log")
	}
	return result, nil
}

func (s *PayoutService) notify(ctx context.Context, p model.SellerPayout) {
	if s.notifier == nil {
		return
	}
	seller, err := s.store.GetSeller(ctx, p.SellerID)
	if err != nil {
		log.WithError(err).WithField("seller_id", p.SellerID).Warn("Failed to load seller for payout notification")
		return
	}
	if err := s.notifier.PayoutCompleted(ctx, seller, p); err != nil {
		log.WithError(err).WithField("seller_id", p.SellerID).Warn("Failed to send payout notification")
	}
}

func batchTarget(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
