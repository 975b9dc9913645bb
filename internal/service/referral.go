package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/repository"
)

// Reasons recorded for events no seller could be resolved for.
const (
	ReasonNoAttributionInput = "no_click_or_customer"
	ReasonClickNotFound      = "click_not_found"
	ReasonLinkNotFound       = "link_not_found"
	ReasonNoAffiliate        = "link_without_affiliate"
	ReasonNoMission          = "link_without_mission"
)

// Unattributed is returned by Resolve when no payee can be determined. It
// is an expected outcome, not a failure.
type Unattributed struct {
	Reason string
	LinkID *uuid.UUID
}

func (u *Unattributed) Error() string {
	return "unattributed: " + u.Reason
}

// AttributionService resolves which seller an event pays. Resolution order:
// a customer's frozen binding, then the click's link affiliate, then the
// link's enrollment owner. Group enrollments always pay the group creator.
type AttributionService struct {
	store AttributionStore
	cache ClickCache
}

func NewAttributionService(store AttributionStore, cache ClickCache) *AttributionService {
	return &AttributionService{store: store, cache: cache}
}

func (s *AttributionService) Resolve(ctx context.Context, workspaceID uuid.UUID, customerID, clickID string) (*model.Attribution, error) {
	if customerID != "" {
		customer, err := s.store.GetCustomer(ctx, workspaceID, customerID)
		switch {
		case err == nil && customer.IsAttributed():
			return s.fromCustomer(ctx, customer)
		case err != nil && !errors.Is(err, repository.ErrCustomerNotFound):
			return nil, fmt.Errorf("failed to get customer: %w", err)
		}
	}

	if clickID == "" {
		return nil, &Unattributed{Reason: ReasonNoAttributionInput}
	}

	linkID, err := s.clickLink(ctx, clickID)
	if err != nil {
		return nil, err
	}

	link, err := s.store.GetLink(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, &Unattributed{Reason: ReasonLinkNotFound, LinkID: &linkID}
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	attr, err := s.fromLink(ctx, link)
	if err != nil {
		return nil, err
	}
	if attr.WorkspaceID != workspaceID {
		log.WithFields(log.Fields{
			"click_id":           clickID,
			"link_workspace_id":  attr.WorkspaceID,
			"event_workspace_id": workspaceID,
		}).Warn("Click belongs to another workspace")
		return nil, &Unattributed{Reason: ReasonLinkNotFound, LinkID: &link.ID}
	}

	if customerID != "" {
		if err := s.freeze(ctx, workspaceID, customerID, clickID, attr); err != nil {
			return nil, err
		}
	}
	return attr, nil
}

func (s *AttributionService) clickLink(ctx context.Context, clickID string) (uuid.UUID, error) {
	if s.cache != nil {
		linkID, ok, err := s.cache.GetClickLink(ctx, clickID)
		if err != nil {
			log.WithError(err).WithField("click_id", clickID).Warn("Click cache lookup failed, falling back to database")
		} else if ok {
			return linkID, nil
		}
	}

	click, err := s.store.GetClick(ctx, clickID)
	if err != nil {
		if errors.Is(err, repository.ErrClickNotFound) {
			return uuid.Nil, &Unattributed{Reason: ReasonClickNotFound}
		}
		return uuid.Nil, fmt.Errorf("failed to get click: %w", err)
	}
	return click.LinkID, nil
}

// fromCustomer never re-resolves the payee: the frozen affiliate wins even
// if the link has since been reassigned.
func (s *AttributionService) fromCustomer(ctx context.Context, c *model.Customer) (*model.Attribution, error) {
	link, err := s.store.GetLink(ctx, *c.LinkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer link: %w", err)
	}
	attr, err := s.describe(ctx, link)
	if err != nil {
		return nil, err
	}
	attr.SellerID = *c.AffiliateID
	if attr.AttributedSellerID == uuid.Nil {
		attr.AttributedSellerID = *c.AffiliateID
	}
	attr.Source = model.AttributionCustomer
	return attr, nil
}

func (s *AttributionService) fromLink(ctx context.Context, link *model.Link) (*model.Attribution, error) {
	attr, err := s.describe(ctx, link)
	if err != nil {
		return nil, err
	}
	if attr.SellerID == uuid.Nil {
		return nil, &Unattributed{Reason: ReasonNoAffiliate, LinkID: &link.ID}
	}
	return attr, nil
}

// describe derives mission, split shape and payee from a link and its
// enrollment. SellerID stays nil when nobody can be paid.
func (s *AttributionService) describe(ctx context.Context, link *model.Link) (*model.Attribution, error) {
	attr := &model.Attribution{
		LinkID:      link.ID,
		WorkspaceID: link.WorkspaceID,
		Shape:       model.SplitSolo,
		Source:      model.AttributionLink,
	}
	if link.AffiliateID != nil {
		attr.SellerID = *link.AffiliateID
		attr.AttributedSellerID = *link.AffiliateID
	}

	var enrollment *model.Enrollment
	if link.EnrollmentID != nil {
		e, err := s.store.GetEnrollment(ctx, *link.EnrollmentID)
		if err != nil && !errors.Is(err, repository.ErrEnrollmentNotFound) {
			return nil, fmt.Errorf("failed to get enrollment: %w", err)
		}
		if err == nil {
			enrollment = e
		}
	}

	missionID := link.MissionID
	if missionID == nil && enrollment != nil {
		missionID = &enrollment.MissionID
	}
	if missionID == nil {
		return nil, &Unattributed{Reason: ReasonNoMission, LinkID: &link.ID}
	}
	attr.MissionID = *missionID

	mission, err := s.store.GetMission(ctx, *missionID)
	if err != nil {
		if errors.Is(err, repository.ErrMissionNotFound) {
			return nil, &Unattributed{Reason: ReasonNoMission, LinkID: &link.ID}
		}
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	if mission.IsOrganizationMission() {
		id := mission.ID
		attr.OrganizationMissionID = &id
		attr.Shape = model.SplitOrganization
	}

	if enrollment == nil {
		return attr, nil
	}

	if enrollment.IsGroup() {
		group, err := s.store.GetSellerGroup(ctx, *enrollment.GroupID)
		if err != nil {
			return nil, fmt.Errorf("failed to get seller group: %w", err)
		}
		attr.GroupID = &group.ID
		attr.Shape = model.SplitGroup
		attr.SellerID = group.CreatorID
		if attr.AttributedSellerID == uuid.Nil {
			attr.AttributedSellerID = group.CreatorID
		}
		if link.AffiliateID == nil {
			attr.Source = model.AttributionEnrollment
		}
		return attr, nil
	}

	if attr.SellerID == uuid.Nil && enrollment.SellerID != nil {
		log.WithFields(log.Fields{
			"link_id":       link.ID,
			"enrollment_id": enrollment.ID,
		}).Warn("Link has no affiliate, attributing through its enrollment")
		attr.SellerID = *enrollment.SellerID
		attr.AttributedSellerID = *enrollment.SellerID
		attr.Source = model.AttributionEnrollment
	}
	return attr, nil
}

func (s *AttributionService) freeze(ctx context.Context, workspaceID uuid.UUID, customerID, clickID string, attr *model.Attribution) error {
	linkID, sellerID := attr.LinkID, attr.SellerID
	stored, err := s.store.FreezeCustomer(ctx, &model.Customer{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		ExternalID:  customerID,
		ClickID:     &clickID,
		LinkID:      &linkID,
		AffiliateID: &sellerID,
	})
	if err != nil {
		return fmt.Errorf("failed to freeze customer attribution: %w", err)
	}
	// Someone else froze this customer first; their binding wins.
	if stored.IsAttributed() && (*stored.AffiliateID != sellerID || *stored.LinkID != linkID) {
		frozen, err := s.fromCustomer(ctx, stored)
		if err != nil {
			return err
		}
		*attr = *frozen
	}
	return nil
}
