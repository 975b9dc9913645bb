package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/traaaction/backend/internal/model"
)

func (r *Repository) CreatePayoutBatch(ctx context.Context, sellerID uuid.UUID) (*model.PayoutBatch, error) {
	batch := &model.PayoutBatch{
		ID:       uuid.New(),
		SellerID: sellerID,
		Status:   model.PayoutBatchOpen,
	}

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &batch.CreatedAt, `
			INSERT INTO payout_batches (id, seller_id, status)
			VALUES ($1, $2, $3)
			RETURNING created_at`,
			batch.ID, batch.SellerID, batch.Status); err != nil {
			return fmt.Errorf("failed to create payout batch: %w", err)
		}

		var totals struct {
			Count  int   `db:"count"`
			Amount int64 `db:"amount"`
		}
		if err := tx.GetContext(ctx, &totals, `
			WITH assigned AS (
				UPDATE commissions SET payout_batch_id = $1
				WHERE seller_id = $2 AND status = 'PROCEED' AND payout_batch_id IS NULL
				RETURNING commission_amount
			)
			SELECT COUNT(*) AS count, COALESCE(SUM(commission_amount), 0) AS amount FROM assigned`,
			batch.ID, sellerID); err != nil {
			return fmt.Errorf("failed to assign commissions: %w", err)
		}
		if totals.Count == 0 {
			return ErrNothingToPay
		}

		batch.Amount = totals.Amount
		batch.CommissionCount = totals.Count
		_, err := tx.ExecContext(ctx, `
			UPDATE payout_batches SET amount = $2, commission_count = $3
			WHERE id = $1`,
			batch.ID, batch.Amount, batch.CommissionCount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *Repository) GetPayoutBatch(ctx context.Context, id uuid.UUID) (*model.PayoutBatch, error) {
	var batch model.PayoutBatch
	err := r.db.GetContext(ctx, &batch, "SELECT * FROM payout_batches WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPayoutBatchNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// ConfirmPayout completes the selected commissions that are still PROCEED.
// Rows already COMPLETE are counted as skipped, so replaying a confirmation
// books nothing twice.
func (r *Repository) ConfirmPayout(ctx context.Context, sel model.PayoutConfirmation, now time.Time) (*model.PayoutResult, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	ids := sel.UniqueCommissionIDs()
	result := &model.PayoutResult{}

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var (
			selected int
			paid     []model.Commission
		)

		if sel.BatchID != nil {
			var batchID uuid.UUID
			err := tx.GetContext(ctx, &batchID, "SELECT id FROM payout_batches WHERE id = $1 FOR UPDATE", *sel.BatchID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrPayoutBatchNotFound
				}
				return err
			}
			if err := tx.GetContext(ctx, &selected,
				"SELECT COUNT(*) FROM commissions WHERE payout_batch_id = $1", batchID); err != nil {
				return err
			}
			if err := tx.SelectContext(ctx, &paid, `
				UPDATE commissions SET status = 'COMPLETE', paid_at = $2
				WHERE payout_batch_id = $1 AND status = 'PROCEED'
				RETURNING *`, batchID, now); err != nil {
				return fmt.Errorf("failed to complete commissions: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE payout_batches SET status = 'PAID', paid_at = COALESCE(paid_at, $2)
				WHERE id = $1`, batchID, now); err != nil {
				return fmt.Errorf("failed to mark batch paid: %w", err)
			}
		} else {
			if len(ids) == 0 {
				return nil
			}
			selected = len(ids)
			query, args, err := sqlx.In(`
				UPDATE commissions SET status = 'COMPLETE', paid_at = ?
				WHERE id IN (?) AND status = 'PROCEED'
				RETURNING *`, now, ids)
			if err != nil {
				return err
			}
			if err := tx.SelectContext(ctx, &paid, tx.Rebind(query), args...); err != nil {
				return fmt.Errorf("failed to complete commissions: %w", err)
			}
		}

		result.Skipped = selected - len(paid)
		if len(paid) == 0 {
			return nil
		}

		bySeller := groupBySeller(paid)
		for _, sellerID := range sortedSellerIDs(bySeller) {
			commissions := bySeller[sellerID]
			var amount int64
			for _, c := range commissions {
				amount += c.CommissionAmount
			}

			if err := lockSellerBalance(ctx, tx, sellerID); err != nil {
				return err
			}
			entry := model.LedgerEntry{
				SellerID:      sellerID,
				Type:          model.EntryTypeDebit,
				Reason:        model.EntryReasonPayout,
				Amount:        amount,
				PayoutBatchID: sel.BatchID,
			}
			if err := appendLedgerEntry(ctx, tx, &entry); err != nil {
				return err
			}
			if _, err := refreshSellerBalance(ctx, tx, sellerID); err != nil {
				return err
			}

			result.Payouts = append(result.Payouts, model.SellerPayout{
				SellerID:    sellerID,
				Amount:      amount,
				Commissions: commissions,
				Entry:       entry,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
