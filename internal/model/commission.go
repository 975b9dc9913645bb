package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/traaaction/backend/internal/reward"
)

type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "PENDING"
	CommissionStatusProceed  CommissionStatus = "PROCEED"
	CommissionStatusComplete CommissionStatus = "COMPLETE"
)

type CommissionSource string

const (
	CommissionSourceSale      CommissionSource = "SALE"
	CommissionSourceLead      CommissionSource = "LEAD"
	CommissionSourceRecurring CommissionSource = "RECURRING"
)

var (
	ErrInvalidTransition = errors.New("invalid commission status transition")
	ErrHoldNotElapsed    = errors.New("hold period has not elapsed")
)

// Statuses only move forward, one step at a time.
var commissionTransitions = map[CommissionStatus]CommissionStatus{
	CommissionStatusPending: CommissionStatusProceed,
	CommissionStatusProceed: CommissionStatusComplete,
}

func (s CommissionStatus) CanTransitionTo(next CommissionStatus) bool {
	to, ok := commissionTransitions[s]
	return ok && to == next
}

func (s CommissionStatus) Valid() bool {
	switch s {
	case CommissionStatusPending, CommissionStatusProceed, CommissionStatusComplete:
		return true
	}
	return false
}

type Commission struct {
	ID                    uuid.UUID        `json:"id" db:"id"`
	SellerID              uuid.UUID        `json:"seller_id" db:"seller_id"`
	AttributedSellerID    uuid.UUID        `json:"attributed_seller_id" db:"attributed_seller_id"`
	MissionID             uuid.UUID        `json:"mission_id" db:"mission_id"`
	WorkspaceID           uuid.UUID        `json:"workspace_id" db:"workspace_id"`
	LinkID                uuid.UUID        `json:"link_id" db:"link_id"`
	GroupID               *uuid.UUID       `json:"group_id,omitempty" db:"group_id"`
	OrganizationMissionID *uuid.UUID       `json:"organization_mission_id,omitempty" db:"organization_mission_id"`
	CustomerID            *string          `json:"customer_id,omitempty" db:"customer_id"`
	SaleID                *string          `json:"sale_id,omitempty" db:"sale_id"`
	SubscriptionID        *string          `json:"subscription_id,omitempty" db:"subscription_id"`
	RecurringMonth        *int             `json:"recurring_month,omitempty" db:"recurring_month"`
	RecurringMax          *int             `json:"recurring_max,omitempty" db:"recurring_max"`
	GrossAmount           int64            `json:"gross_amount" db:"gross_amount"`
	TaxAmount             int64            `json:"tax_amount" db:"tax_amount"`
	ProcessorFee          int64            `json:"processor_fee" db:"processor_fee"`
	NetAmount             int64            `json:"net_amount" db:"net_amount"`
	CommissionAmount      int64            `json:"commission_amount" db:"commission_amount"`
	PlatformFee           int64            `json:"platform_fee" db:"platform_fee"`
	CommissionRate        string           `json:"commission_rate" db:"commission_rate"`
	CommissionType        reward.Kind      `json:"commission_type" db:"commission_type"`
	Currency              string           `json:"currency" db:"currency"`
	Status                CommissionStatus `json:"status" db:"status"`
	Source                CommissionSource `json:"commission_source" db:"commission_source"`
	HoldDays              int              `json:"hold_days" db:"hold_days"`
	PayoutBatchID         *uuid.UUID       `json:"payout_batch_id,omitempty" db:"payout_batch_id"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`
	MaturedAt             *time.Time       `json:"matured_at,omitempty" db:"matured_at"`
	PaidAt                *time.Time       `json:"paid_at,omitempty" db:"paid_at"`
}

// MaturesAt is the earliest instant the commission may move to PROCEED.
func (c *Commission) MaturesAt() time.Time {
	return c.CreatedAt.Add(time.Duration(c.HoldDays) * 24 * time.Hour)
}

func (c *Commission) IsMature(now time.Time) bool {
	return !now.Before(c.MaturesAt())
}

// Mature moves a PENDING commission to PROCEED once its hold period is over.
func (c *Commission) Mature(now time.Time) error {
	if !c.Status.CanTransitionTo(CommissionStatusProceed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, CommissionStatusProceed)
	}
	if !c.IsMature(now) {
		return ErrHoldNotElapsed
	}
	c.Status = CommissionStatusProceed
	c.MaturedAt = &now
	return nil
}

// Complete moves a PROCEED commission to COMPLETE on payout confirmation.
func (c *Commission) Complete(now time.Time) error {
	if !c.Status.CanTransitionTo(CommissionStatusComplete) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, CommissionStatusComplete)
	}
	c.Status = CommissionStatusComplete
	c.PaidAt = &now
	return nil
}

// CommissionFilter narrows seller commission listings.
type CommissionFilter struct {
	Status *CommissionStatus
	Limit  int
	Offset int
}
