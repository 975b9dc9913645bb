package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/traaaction/backend/internal/reward"
)

type Mission struct {
	ID                      uuid.UUID     `json:"id" db:"id"`
	WorkspaceID             uuid.UUID     `json:"workspace_id" db:"workspace_id"`
	OrganizationID          *uuid.UUID    `json:"organization_id,omitempty" db:"organization_id"`
	Title                   string        `json:"title" db:"title"`
	SaleEnabled             bool          `json:"sale_enabled" db:"sale_enabled"`
	SaleReward              reward.Reward `json:"sale_reward" db:"sale_reward"`
	LeadEnabled             bool          `json:"lead_enabled" db:"lead_enabled"`
	LeadReward              reward.Reward `json:"lead_reward" db:"lead_reward"`
	RecurringEnabled        bool          `json:"recurring_enabled" db:"recurring_enabled"`
	RecurringReward         reward.Reward `json:"recurring_reward" db:"recurring_reward"`
	RecurringDurationMonths *int          `json:"recurring_duration_months,omitempty" db:"recurring_duration_months"`
	HoldDays                *int          `json:"hold_days,omitempty" db:"hold_days"`
	CreatedAt               time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at" db:"updated_at"`
}

// IsOrganizationMission reports whether this is an organization-owned
// exclusive clone.
func (m *Mission) IsOrganizationMission() bool {
	return m.OrganizationID != nil
}

// RewardFor returns the reward terms for an event source and whether that
// source is enabled on the mission. Recurring terms fall back to the sale
// terms when none were configured.
func (m *Mission) RewardFor(source CommissionSource) (reward.Reward, bool) {
	switch source {
	case CommissionSourceSale:
		return m.SaleReward, m.SaleEnabled
	case CommissionSourceLead:
		return m.LeadReward, m.LeadEnabled
	case CommissionSourceRecurring:
		if m.RecurringReward.Kind == "" {
			return m.SaleReward, m.RecurringEnabled
		}
		return m.RecurringReward, m.RecurringEnabled
	}
	return reward.Reward{}, false
}

// EffectiveHoldDays returns the mission override or the given default.
func (m *Mission) EffectiveHoldDays(defaultDays int) int {
	if m.HoldDays != nil && *m.HoldDays >= 0 {
		return *m.HoldDays
	}
	return defaultDays
}

// MissionTerms is the editable reward configuration of a mission in the
// split amount/structure form the dashboard submits.
type MissionTerms struct {
	Title                    string      `json:"title"`
	SaleEnabled              bool        `json:"sale_enabled"`
	SaleRewardAmount         string      `json:"sale_reward_amount"`
	SaleRewardStructure      reward.Kind `json:"sale_reward_structure"`
	LeadEnabled              bool        `json:"lead_enabled"`
	LeadRewardAmount         int64       `json:"lead_reward_amount"` // cents
	RecurringEnabled         bool        `json:"recurring_enabled"`
	RecurringRewardAmount    string      `json:"recurring_reward_amount"`
	RecurringRewardStructure reward.Kind `json:"recurring_reward_structure"`
	RecurringDurationMonths  *int        `json:"recurring_duration_months"`
	HoldDays                 *int        `json:"hold_days"`
}
