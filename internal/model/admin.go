package model

import (
	"time"

	"github.com/google/uuid"
)

type AdminLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Actor     string    `json:"actor" db:"actor"`
	Action    string    `json:"action" db:"action"`
	TargetID  *string   `json:"target_id,omitempty" db:"target_id"`
	Details   []byte    `json:"details,omitempty" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Admin action constants
const (
	AdminActionReconcileSeller = "reconcile_seller"
	AdminActionReconcileAll    = "reconcile_all"
	AdminActionAdjustBalance   = "adjust_balance"
	AdminActionReattributeLink = "reattribute_link"
	AdminActionSetSetting      = "set_setting"
	AdminActionConfirmPayout   = "confirm_payout"
	AdminActionUpdateTerms     = "update_mission_terms"
)
