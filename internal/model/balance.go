package model

import (
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryTypeCredit EntryType = "CREDIT"
	EntryTypeDebit  EntryType = "DEBIT"
)

type EntryReason string

const (
	EntryReasonMaturation EntryReason = "MATURATION"
	EntryReasonPayout     EntryReason = "PAYOUT"
	EntryReasonAdjustment EntryReason = "ADJUSTMENT"
)

// LedgerEntry is an append-only wallet ledger row. Amount is always
// positive; Type decides the sign.
type LedgerEntry struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	Seq           int64       `json:"seq" db:"seq"`
	SellerID      uuid.UUID   `json:"seller_id" db:"seller_id"`
	Type          EntryType   `json:"entry_type" db:"entry_type"`
	Reason        EntryReason `json:"reason" db:"reason"`
	Amount        int64       `json:"amount" db:"amount"`
	BalanceBefore int64       `json:"balance_before" db:"balance_before"`
	BalanceAfter  int64       `json:"balance_after" db:"balance_after"`
	CommissionID  *uuid.UUID  `json:"commission_id,omitempty" db:"commission_id"`
	PayoutBatchID *uuid.UUID  `json:"payout_batch_id,omitempty" db:"payout_batch_id"`
	Description   *string     `json:"description,omitempty" db:"description"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

func (e *LedgerEntry) Signed() int64 {
	if e.Type == EntryTypeDebit {
		return -e.Amount
	}
	return e.Amount
}

// SellerBalance is the cached aggregate of a seller's commissions. It is
// always recomputable from the commissions and the ledger.
type SellerBalance struct {
	SellerID  uuid.UUID `json:"seller_id" db:"seller_id"`
	Pending   int64     `json:"pending" db:"pending"`
	Due       int64     `json:"due" db:"due"`
	Balance   int64     `json:"balance" db:"balance"`
	PaidTotal int64     `json:"paid_total" db:"paid_total"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SameTotals compares the amounts only.
func (b SellerBalance) SameTotals(o SellerBalance) bool {
	return b.Pending == o.Pending && b.Due == o.Due && b.Balance == o.Balance && b.PaidTotal == o.PaidTotal
}

// StatusTotals sums commission_amount per status for one seller.
type StatusTotals map[CommissionStatus]int64

// ComputeSellerBalance derives the cached row. Balance is the amount due
// plus the net of manual adjustments, which is exactly what the ledger sums
// to: one credit per matured commission, one debit per payout.
func ComputeSellerBalance(sellerID uuid.UUID, totals StatusTotals, adjustmentsNet int64) SellerBalance {
	due := totals[CommissionStatusProceed]
	return SellerBalance{
		SellerID:  sellerID,
		Pending:   totals[CommissionStatusPending],
		Due:       due,
		Balance:   due + adjustmentsNet,
		PaidTotal: totals[CommissionStatusComplete],
	}
}

type LedgerTotals struct {
	Credits int64 `json:"credits" db:"credits"`
	Debits  int64 `json:"debits" db:"debits"`
}

func (t LedgerTotals) Net() int64 {
	return t.Credits - t.Debits
}

// Reconciliation is the read-only report behind the balance repair tools.
type Reconciliation struct {
	SellerID      uuid.UUID     `json:"seller_id"`
	Cached        SellerBalance `json:"cached"`
	Recomputed    SellerBalance `json:"recomputed"`
	LedgerCredits int64         `json:"ledger_credits"`
	LedgerDebits  int64         `json:"ledger_debits"`
	Consistent    bool          `json:"consistent"`
}
