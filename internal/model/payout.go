package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type PayoutBatchStatus string

const (
	PayoutBatchOpen PayoutBatchStatus = "OPEN"
	PayoutBatchPaid PayoutBatchStatus = "PAID"
)

type PayoutBatch struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	SellerID        uuid.UUID         `json:"seller_id" db:"seller_id"`
	Status          PayoutBatchStatus `json:"status" db:"status"`
	Amount          int64             `json:"amount" db:"amount"`
	CommissionCount int               `json:"commission_count" db:"commission_count"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	PaidAt          *time.Time        `json:"paid_at,omitempty" db:"paid_at"`
}

// PayoutConfirmation selects the commissions a payout settles, either by id
// or by batch.
type PayoutConfirmation struct {
	CommissionIDs []uuid.UUID `json:"commission_ids"`
	BatchID       *uuid.UUID  `json:"payment_batch_id"`
}

var ErrMixedPayoutSelection = errors.New("payout confirmation must select either a batch or commission ids, not both")

func (p PayoutConfirmation) Validate() error {
	if p.BatchID != nil && len(p.CommissionIDs) > 0 {
		return ErrMixedPayoutSelection
	}
	return nil
}

// UniqueCommissionIDs returns the selected ids without repeats, in first-seen order.
func (p PayoutConfirmation) UniqueCommissionIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(p.CommissionIDs))
	ids := make([]uuid.UUID, 0, len(p.CommissionIDs))
	for _, id := range p.CommissionIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// SellerPayout is the per-seller result of a confirmation.
type SellerPayout struct {
	SellerID    uuid.UUID    `json:"seller_id"`
	Amount      int64        `json:"amount"`
	Commissions []Commission `json:"commissions"`
	Entry       LedgerEntry  `json:"ledger_entry"`
}

type PayoutResult struct {
	Payouts []SellerPayout `json:"payouts"`
	Skipped int            `json:"skipped"`
}

// MaturationResult is what one sweep moved to PROCEED, with the ledger
// credits booked for it.
type MaturationResult struct {
	Commissions []Commission  `json:"commissions"`
	Entries     []LedgerEntry `json:"ledger_entries"`
}
