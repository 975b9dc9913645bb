package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/repository"
	"github.com/traaaction/backend/internal/reward"
)

// CatalogService manages sellers, missions, enrollments and links.
type CatalogService struct {
	store    Store
	cache    ClickCache
	clickTTL time.Duration
}

func NewCatalogService(store Store, cache ClickCache, clickTTL time.Duration) *CatalogService {
	return &CatalogService{store: store, cache: cache, clickTTL: clickTTL}
}

func (s *CatalogService) CreateSeller(ctx context.Context, name string, email *string) (*model.Seller, error) {
	seller := &model.Seller{ID: uuid.New(), Name: strings.TrimSpace(name), Email: email}
	if err := s.store.CreateSeller(ctx, seller); err != nil {
		return nil, fmt.Errorf("failed to create seller: %w", err)
	}
	return seller, nil
}

func (s *CatalogService) GetSeller(ctx context.Context, id uuid.UUID) (*model.Seller, error) {
	return s.store.GetSeller(ctx, id)
}

// CreateSellerGroup creates a group; the creator becomes its first member.
func (s *CatalogService) CreateSellerGroup(ctx context.Context, creatorID uuid.UUID, name string) (*model.SellerGroup, error) {
	if _, err := s.store.GetSeller(ctx, creatorID); err != nil {
		return nil, err
	}
	group := &model.SellerGroup{ID: uuid.New(), CreatorID: creatorID, Name: strings.TrimSpace(name)}
	if err := s.store.CreateSellerGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create seller group: %w", err)
	}
	return group, nil
}

func (s *CatalogService) AddGroupMember(ctx context.Context, groupID, sellerID uuid.UUID) error {
	if _, err := s.store.GetSellerGroup(ctx, groupID); err != nil {
		return err
	}
	if _, err := s.store.GetSeller(ctx, sellerID); err != nil {
		return err
	}
	return s.store.AddGroupMember(ctx, &model.SellerGroupMember{GroupID: groupID, SellerID: sellerID})
}

// CreateMission validates the terms and stores a new mission. An
// organization id marks it as an exclusive organization clone.
func (s *CatalogService) CreateMission(ctx context.Context, workspaceID uuid.UUID, organizationID *uuid.UUID, terms model.MissionTerms) (*model.Mission, error) {
	mission := &model.Mission{ID: uuid.New(), WorkspaceID: workspaceID, OrganizationID: organizationID}
	if err := applyTerms(mission, terms); err != nil {
		return nil, err
	}
	if err := s.store.CreateMission(ctx, mission); err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}
	log.WithFields(log.Fields{
		"mission_id":   mission.ID,
		"workspace_id": workspaceID,
		"sale_reward":  mission.SaleReward.String(),
	}).Info("Mission created")
	return mission, nil
}

func (s *CatalogService) GetMission(ctx context.Context, id uuid.UUID) (*model.Mission, error) {
	return s.store.GetMission(ctx, id)
}

// UpdateMissionTerms edits the reward terms. Terms freeze with the first
// enrollment so sellers are paid what they signed up for.
func (s *CatalogService) UpdateMissionTerms(ctx context.Context, actor string, missionID uuid.UUID, terms model.MissionTerms) (*model.Mission, error) {
	mission, err := s.store.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if err := applyTerms(mission, terms); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMissionTerms(ctx, mission); err != nil {
		if errors.Is(err, repository.ErrMissionHasEnrollments) {
			return nil, ErrMissionTermsLocked
		}
		return nil, fmt.Errorf("failed to update mission: %w", err)
	}

	target := missionID.String()
	if err := s.store.LogAdminAction(ctx, actor, model.AdminActionUpdateTerms, &target, terms); err != nil {
		log.WithError(err).Warn("Failed to write admin log")
	}
	return mission, nil
}

func applyTerms(m *model.Mission, t model.MissionTerms) error {
	sale, err := termsReward(t.SaleRewardAmount, t.SaleRewardStructure, t.SaleEnabled)
	if err != nil {
		return fmt.Errorf("%w: sale: %v", ErrInvalidReward, err)
	}
	recurring, err := termsReward(t.RecurringRewardAmount, t.RecurringRewardStructure, false)
	if err != nil {
		return fmt.Errorf("%w: recurring: %v", ErrInvalidReward, err)
	}
	if t.LeadRewardAmount < 0 {
		return fmt.Errorf("%w: lead reward must not be negative", ErrInvalidReward)
	}
	if t.RecurringDurationMonths != nil && *t.RecurringDurationMonths < 1 {
		return fmt.Errorf("%w: recurring duration must be at least one month", ErrInvalidReward)
	}
	if t.HoldDays != nil && *t.HoldDays < 0 {
		return fmt.Errorf("%w: hold days must not be negative", ErrInvalidReward)
	}

	m.Title = strings.TrimSpace(t.Title)
	m.SaleEnabled = t.SaleEnabled
	m.SaleReward = sale
	m.LeadEnabled = t.LeadEnabled
	m.LeadReward = reward.Reward{}
	if t.LeadEnabled || t.LeadRewardAmount > 0 {
		m.LeadReward = reward.NewFixed(t.LeadRewardAmount)
	}
	m.RecurringEnabled = t.RecurringEnabled
	m.RecurringReward = recurring
	m.RecurringDurationMonths = t.RecurringDurationMonths
	m.HoldDays = t.HoldDays
	return nil
}

// termsReward returns the zero Reward for blank terms unless they are
// required.
func termsReward(amount string, structure reward.Kind, required bool) (reward.Reward, error) {
	if strings.TrimSpace(amount) == "" {
		if required {
			return reward.Reward{}, errors.New("amount is required")
		}
		return reward.Reward{}, nil
	}
	return reward.FromAmount(amount, structure)
}

// Enroll signs a seller or a seller group up for a mission and issues its
// tracking link. A group link is attributed to the group creator.
func (s *CatalogService) Enroll(ctx context.Context, missionID uuid.UUID, sellerID, groupID *uuid.UUID, slug, destination string) (*model.Enrollment, *model.Link, error) {
	if (sellerID == nil) == (groupID == nil) {
		return nil, nil, ErrInvalidEnrollment
	}
	mission, err := s.store.GetMission(ctx, missionID)
	if err != nil {
		return nil, nil, err
	}

	var affiliate uuid.UUID
	if sellerID != nil {
		if _, err := s.store.GetSeller(ctx, *sellerID); err != nil {
			return nil, nil, err
		}
		affiliate = *sellerID
	} else {
		group, err := s.store.GetSellerGroup(ctx, *groupID)
		if err != nil {
			return nil, nil, err
		}
		affiliate = group.CreatorID
	}

	enrollment := &model.Enrollment{
		ID:        uuid.New(),
		MissionID: missionID,
		SellerID:  sellerID,
		GroupID:   groupID,
		Status:    model.EnrollmentStatusActive,
	}
	link := newLink(mission, enrollment.ID, affiliate, slug, destination)

	if err := s.store.CreateEnrollment(ctx, enrollment, link); err != nil {
		if errors.Is(err, repository.ErrAlreadyEnrolled) {
			return nil, nil, ErrAlreadyEnrolled
		}
		return nil, nil, err
	}
	log.WithFields(log.Fields{
		"enrollment_id": enrollment.ID,
		"mission_id":    missionID,
		"link_id":       link.ID,
		"slug":          link.Slug,
	}).Info("Enrollment created")
	return enrollment, link, nil
}

// CreateMemberLink issues a personal link for a member of an enrolled
// group. Sales through it still pay the group creator.
func (s *CatalogService) CreateMemberLink(ctx context.Context, enrollmentID, sellerID uuid.UUID, slug, destination string) (*model.Link, error) {
	enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if !enrollment.IsGroup() {
		return nil, ErrNotGroupEnrollment
	}
	member, err := s.store.IsGroupMember(ctx, *enrollment.GroupID, sellerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotGroupMember
	}
	mission, err := s.store.GetMission(ctx, enrollment.MissionID)
	if err != nil {
		return nil, err
	}

	link := newLink(mission, enrollment.ID, sellerID, slug, destination)
	if err := s.store.CreateLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *CatalogService) GetLink(ctx context.Context, id uuid.UUID) (*model.Link, error) {
	return s.store.GetLink(ctx, id)
}

func newLink(mission *model.Mission, enrollmentID, affiliate uuid.UUID, slug, destination string) *model.Link {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	}
	missionID := mission.ID
	return &model.Link{
		ID:             uuid.New(),
		Slug:           slug,
		DestinationURL: destination,
		WorkspaceID:    mission.WorkspaceID,
		MissionID:      &missionID,
		EnrollmentID:   &enrollmentID,
		AffiliateID:    &affiliate,
	}
}

// TrackClick records a visit through a link and returns where to send the
// visitor and the click id to carry into checkout.
func (s *CatalogService) TrackClick(ctx context.Context, slug string) (string, *model.Click, error) {
	link, err := s.store.GetLinkBySlug(ctx, slug)
	if err != nil {
		return "", nil, err
	}
	click := &model.Click{ID: uuid.NewString(), LinkID: link.ID}
	if err := s.store.CreateClick(ctx, click); err != nil {
		return "", nil, fmt.Errorf("failed to record click: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetClick(ctx, click.ID, link.ID, s.clickTTL); err != nil {
			log.WithError(err).WithField("click_id", click.ID).Warn("Failed to cache click")
		}
	}
	return link.DestinationURL, click, nil
}
