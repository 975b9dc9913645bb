package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traaaction/backend/internal/events"
	"github.com/traaaction/backend/internal/model"
)

type BalanceService struct {
	store     Store
	publisher Publisher
}

func NewBalanceService(store Store, publisher Publisher) *BalanceService {
	return &BalanceService{store: store, publisher: publisher}
}

// GetBalance returns the seller's cached balance
func (s *BalanceService) GetBalance(ctx context.Context, sellerID uuid.UUID) (*model.SellerBalance, error) {
	return s.store.GetSellerBalance(ctx, sellerID)
}

// GetTransactions returns the seller's ledger, newest first
func (s *BalanceService) GetTransactions(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.LedgerEntry, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.ListLedgerEntries(ctx, sellerID, limit, offset)
}

func (s *BalanceService) ListCommissions(ctx context.Context, sellerID uuid.UUID, filter model.CommissionFilter) ([]model.Commission, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *filter.Status)
	}
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)
	return s.store.ListSellerCommissions(ctx, sellerID, filter)
}

func (s *BalanceService) GetCommission(ctx context.Context, id uuid.UUID) (*model.Commission, error) {
	return s.store.GetCommission(ctx, id)
}

// CheckReconciliation compares the cached balance with a fresh derivation
// from commissions and ledger. It writes nothing.
func (s *BalanceService) CheckReconciliation(ctx context.Context, sellerID uuid.UUID) (*model.Reconciliation, error) {
	cached, err := s.store.GetSellerBalance(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	recomputed, err := s.store.ComputeSellerBalance(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.GetLedgerTotals(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return &model.Reconciliation{
		SellerID:      sellerID,
		Cached:        *cached,
		Recomputed:    *recomputed,
		LedgerCredits: totals.Credits,
		LedgerDebits:  totals.Debits,
		Consistent:    cached.SameTotals(*recomputed) && totals.Net() == recomputed.Balance,
	}, nil
}

// ReconcileSeller overwrites the cached balance with the derived one.
func (s *BalanceService) ReconcileSeller(ctx context.Context, actor string, sellerID uuid.UUID) (*model.Reconciliation, error) {
	before, err := s.CheckReconciliation(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.RecomputeSellerBalance(ctx, sellerID); err != nil {
		return nil, fmt.Errorf("failed to recompute balance: %w", err)
	}
	after, err := s.CheckReconciliation(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	if !before.Consistent {
		log.WithFields(log.Fields{
			"seller_id":  sellerID,
			"cached":     before.Cached.Balance,
			"recomputed": before.Recomputed.Balance,
		}).Warn("Seller balance was out of sync, repaired")
	}
	target := sellerID.String()
	s.audit(ctx, actor, model.AdminActionReconcileSeller, &target, map[string]interface{}{
		"was_consistent": before.Consistent,
		"cached":         before.Cached,
		"recomputed":     after.Recomputed,
	})
	return after, nil
}

// ReconcileAll repairs every seller's cached balance and returns the ids of
// those that had drifted.
func (s *BalanceService) ReconcileAll(ctx context.Context, actor string) ([]uuid.UUID, error) {
	ids, err := s.store.ListBalanceSellerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", err)
	}

	diverged := []uuid.UUID{}
	for _, id := range ids {
		check, err := s.CheckReconciliation(ctx, id)
		if err != nil {
			return diverged, err
		}
		if check.Consistent {
			continue
		}
		diverged = append(diverged, id)
		if _, err := s.store.RecomputeSellerBalance(ctx, id); err != nil {
			return diverged, fmt.Errorf("failed to recompute balance for %s: %w", id, err)
		}
	}

	log.WithFields(log.Fields{
		"sellers":  len(ids),
		"diverged": len(diverged),
	}).Info("Balance reconciliation finished")
	s.audit(ctx, actor, model.AdminActionReconcileAll, nil, map[string]interface{}{
		"sellers":  len(ids),
		"diverged": diverged,
	})
	return diverged, nil
}

// AdjustBalance books a manual correction (admin operation)
func (s *BalanceService) AdjustBalance(ctx context.Context, actor string, sellerID uuid.UUID, amount int64, description string) (*model.LedgerEntry, *model.SellerBalance, error) {
	if amount == 0 {
		return nil, nil, fmt.Errorf("%w: adjustment must be non-zero", ErrInvalidAmount)
	}
	if description == "" {
		description = fmt.Sprintf("Manual adjustment by %s", actor)
	}
	entry, balance, err := s.store.AppendAdjustment(ctx, sellerID, amount, description)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to append adjustment: %w", err)
	}

	target := sellerID.String()
	s.audit(ctx, actor, model.AdminActionAdjustBalance, &target, map[string]interface{}{
		"amount":      amount,
		"description": description,
		"entry_id":    entry.ID,
	})
	publish(ctx, s.publisher, events.LedgerEntry, sellerID, entry)
	return entry, balance, nil
}

func (s *BalanceService) audit(ctx context.Context, actor, action string, target *string, details interface{}) {
	if err := s.store.LogAdminAction(ctx, actor, action, target, details); err != nil {
		log.WithError(err).WithField("action", action).Warn("Failed to write admin log")
	}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
