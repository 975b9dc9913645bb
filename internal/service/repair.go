package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/repository"
)

// RepairService fixes attribution after the fact.
type RepairService struct {
	store       Store
	commissions *CommissionService
	now         func() time.Time
}

func NewRepairService(store Store, commissions *CommissionService) *RepairService {
	return &RepairService{store: store, commissions: commissions, now: time.Now}
}

type ReattributeResult struct {
	Link     *model.Link `json:"link"`
	Replayed int         `json:"replayed"`
	Created  int         `json:"created"`
}

// ReattributeLink points a link at a seller and replays the events that
// went unattributed because of it. A link that already pays someone else
// is only reassigned with force; commissions already created are never
// moved.
func (s *RepairService) ReattributeLink(ctx context.Context, actor string, linkID, sellerID uuid.UUID, force bool) (*ReattributeResult, error) {
	if _, err := s.store.GetSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	link, err := s.store.SetLinkAffiliate(ctx, linkID, sellerID, force)
	if err != nil {
		if errors.Is(err, repository.ErrLinkAlreadyAttributed) {
			return nil, ErrLinkAlreadyAttributed
		}
		return nil, err
	}

	target := linkID.String()
	if err := s.store.LogAdminAction(ctx, actor, model.AdminActionReattributeLink, &target, map[string]interface{}{
		"seller_id": sellerID,
		"force":     force,
	}); err != nil {
		log.WithError(err).Warn("Failed to write admin log")
	}

	pending, err := s.store.ListUnattributedByLink(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unattributed events: %w", err)
	}

	result := &ReattributeResult{Link: link}
	for _, ev := range pending {
		outcome, err := s.commissions.Replay(ctx, ev)
		if err != nil {
			return result, fmt.Errorf("failed to replay event %s: %w", ev.EventID, err)
		}
		if outcome.Status == OutcomeUnattributed {
			continue
		}
		if err := s.store.MarkReplayed(ctx, ev.ID, s.now()); err != nil {
			return result, err
		}
		result.Replayed++
		if outcome.Status == OutcomeCreated {
			result.Created++
		}
	}

	log.WithFields(log.Fields{
		"link_id":   linkID,
		"seller_id": sellerID,
		"replayed":  result.Replayed,
		"created":   result.Created,
	}).Info("Link reattributed")
	return result, nil
}

func (s *RepairService) GetAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.GetAdminLogs(ctx, limit, offset)
}
