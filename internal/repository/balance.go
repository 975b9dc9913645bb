package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/traaaction/backend/internal/model"
)

// lockSellerBalance creates the cached balance row if needed and locks it
// for the rest of the transaction. Every ledger append goes through here,
// which serialises appends per seller.
func lockSellerBalance(ctx context.Context, tx *sqlx.Tx, sellerID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO seller_balances (seller_id) VALUES ($1)
		ON CONFLICT (seller_id) DO NOTHING`, sellerID); err != nil {
		return fmt.Errorf("failed to create balance row: %w", err)
	}
	var locked uuid.UUID
	if err := tx.GetContext(ctx, &locked,
		"SELECT seller_id FROM seller_balances WHERE seller_id = $1 FOR UPDATE", sellerID); err != nil {
		return fmt.Errorf("failed to lock balance: %w", err)
	}
	return nil
}

// appendLedgerEntry writes the next entry for the seller, chaining
// balance_before from the previous entry's balance_after. The caller must
// hold the seller's balance lock.
func appendLedgerEntry(ctx context.Context, tx *sqlx.Tx, e *model.LedgerEntry) error {
	var last sql.NullInt64
	err := tx.GetContext(ctx, &last, `
		SELECT balance_after FROM wallet_ledger
		WHERE seller_id = $1
		ORDER BY seq DESC LIMIT 1`, e.SellerID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to get last ledger entry: %w", err)
	}

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.BalanceBefore = last.Int64
	e.BalanceAfter = e.BalanceBefore + e.Signed()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO wallet_ledger (id, seller_id, entry_type, reason, amount, balance_before, balance_after, commission_id, payout_batch_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq, created_at`,
		e.ID, e.SellerID, e.Type, e.Reason, e.Amount, e.BalanceBefore, e.BalanceAfter, e.CommissionID, e.PayoutBatchID, e.Description,
	).Scan(&e.Seq, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

func computeSellerBalance(ctx context.Context, q sqlx.QueryerContext, sellerID uuid.UUID) (*model.SellerBalance, error) {
	rows, err := q.QueryxContext(ctx, `
		SELECT status, COALESCE(SUM(commission_amount), 0)
		FROM commissions
		WHERE seller_id = $1
		GROUP BY status`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := model.StatusTotals{}
	for rows.Next() {
		var status model.CommissionStatus
		var sum int64
		if err := rows.Scan(&status, &sum); err != nil {
			return nil, err
		}
		totals[status] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var adjustments int64
	err = sqlx.GetContext(ctx, q, &adjustments, `
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM wallet_ledger
		WHERE seller_id = $1 AND reason = 'ADJUSTMENT'`, sellerID)
	if err != nil {
		return nil, err
	}

	b := model.ComputeSellerBalance(sellerID, totals, adjustments)
	return &b, nil
}

// refreshSellerBalance recomputes and stores the cached row. The caller
// must hold the seller's balance lock.
func refreshSellerBalance(ctx context.Context, tx *sqlx.Tx, sellerID uuid.UUID) (*model.SellerBalance, error) {
	b, err := computeSellerBalance(ctx, tx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}
	err = tx.GetContext(ctx, &b.UpdatedAt, `
		UPDATE seller_balances
		SET pending = $2, due = $3, balance = $4, paid_total = $5, updated_at = NOW()
		WHERE seller_id = $1
		RETURNING updated_at`,
		sellerID, b.Pending, b.Due, b.Balance, b.PaidTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return b, nil
}

// GetSellerBalance returns the cached balance, or zeros for a seller with
// no activity yet.
func (r *Repository) GetSellerBalance(ctx context.Context, sellerID uuid.UUID) (*model.SellerBalance, error) {
	var b model.SellerBalance
	err := r.db.GetContext(ctx, &b, "SELECT * FROM seller_balances WHERE seller_id = $1", sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.SellerBalance{SellerID: sellerID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) ComputeSellerBalance(ctx context.Context, sellerID uuid.UUID) (*model.SellerBalance, error) {
	return computeSellerBalance(ctx, r.db, sellerID)
}

func (r *Repository) RecomputeSellerBalance(ctx context.Context, sellerID uuid.UUID) (*model.SellerBalance, error) {
	var b *model.SellerBalance
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockSellerBalance(ctx, tx, sellerID); err != nil {
			return err
		}
		var err error
		b, err = refreshSellerBalance(ctx, tx, sellerID)
		return err
	})
	return b, err
}

func (r *Repository) GetLedgerTotals(ctx context.Context, sellerID uuid.UUID) (model.LedgerTotals, error) {
	var t model.LedgerTotals
	err := r.db.GetContext(ctx, &t, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'CREDIT'), 0) AS credits,
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'DEBIT'), 0) AS debits
		FROM wallet_ledger
		WHERE seller_id = $1`, sellerID)
	return t, err
}

func (r *Repository) ListLedgerEntries(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM wallet_ledger
		WHERE seller_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3`,
		sellerID, limit, offset)
	return entries, err
}

func (r *Repository) AppendAdjustment(ctx context.Context, sellerID uuid.UUID, amount int64, description string) (*model.LedgerEntry, *model.SellerBalance, error) {
	entry := &model.LedgerEntry{
		SellerID: sellerID,
		Type:     model.EntryTypeCredit,
		Reason:   model.EntryReasonAdjustment,
		Amount:   amount,
	}
	if amount < 0 {
		entry.Type = model.EntryTypeDebit
		entry.Amount = -amount
	}
	if description != "" {
		entry.Description = &description
	}

	var b *model.SellerBalance
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockSellerBalance(ctx, tx, sellerID); err != nil {
			return err
		}
		if err := appendLedgerEntry(ctx, tx, entry); err != nil {
			return err
		}
		var err error
		b, err = refreshSellerBalance(ctx, tx, sellerID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return entry, b, nil
}

// ListBalanceSellerIDs returns every seller that has commissions or ledger
// entries.
func (r *Repository) ListBalanceSellerIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT seller_id FROM commissions
		UNION
		SELECT seller_id FROM wallet_ledger
		ORDER BY seller_id`)
	return ids, err
}
