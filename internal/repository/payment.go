package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/traaaction/backend/internal/model"
)

// CreateCommission is idempotent on sale_id and on (subscription_id,
// recurring_month). A replayed event returns the stored commission.
func (r *Repository) CreateCommission(ctx context.Context, c *model.Commission) (*model.Commission, bool, error) {
	var stored model.Commission
	created := false

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &stored, `
			INSERT INTO commissions (
				id, seller_id, attributed_seller_id, mission_id, workspace_id, link_id,
				group_id, organization_mission_id, customer_id, sale_id,
				subscription_id, recurring_month, recurring_max,
				gross_amount, tax_amount, processor_fee, net_amount, commission_amount, platform_fee,
				commission_rate, commission_type, currency, status, commission_source, hold_days, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
				$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
			)
			ON CONFLICT DO NOTHING
			RETURNING *`,
			c.ID, c.SellerID, c.AttributedSellerID, c.MissionID, c.WorkspaceID, c.LinkID,
			c.GroupID, c.OrganizationMissionID, c.CustomerID, c.SaleID,
			c.SubscriptionID, c.RecurringMonth, c.RecurringMax,
			c.GrossAmount, c.TaxAmount, c.ProcessorFee, c.NetAmount, c.CommissionAmount, c.PlatformFee,
			c.CommissionRate, c.CommissionType, c.Currency, c.Status, c.Source, c.HoldDays, c.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			existing, err := findDuplicateCommission(ctx, tx, c)
			if err != nil {
				return err
			}
			stored = *existing
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to insert commission: %w", err)
		}
		created = true

		if err := lockSellerBalance(ctx, tx, stored.SellerID); err != nil {
			return err
		}
		_, err = refreshSellerBalance(ctx, tx, stored.SellerID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

func findDuplicateCommission(ctx context.Context, tx *sqlx.Tx, c *model.Commission) (*model.Commission, error) {
	var existing model.Commission
	if c.SaleID != nil {
		err := tx.GetContext(ctx, &existing, "SELECT * FROM commissions WHERE sale_id = $1", *c.SaleID)
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	if c.SubscriptionID != nil && c.RecurringMonth != nil {
		err := tx.GetContext(ctx, &existing, `
			SELECT * FROM commissions
			WHERE subscription_id = $1 AND recurring_month = $2`,
			*c.SubscriptionID, *c.RecurringMonth)
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("commission conflict without a matching idempotency key: %w", ErrCommissionNotFound)
}

func (r *Repository) GetCommission(ctx context.Context, id uuid.UUID) (*model.Commission, error) {
	var c model.Commission
	err := r.db.GetContext(ctx, &c, "SELECT * FROM commissions WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommissionNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListSellerCommissions(ctx context.Context, sellerID uuid.UUID, f model.CommissionFilter) ([]model.Commission, error) {
	var commissions []model.Commission
	err := r.db.SelectContext(ctx, &commissions, `
		SELECT * FROM commissions
		WHERE seller_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		sellerID, f.Status, f.Limit, f.Offset)
	return commissions, err
}

// MatureDue flips eligible commissions with a conditional update, so two
// sweeps running at once can never mature (or credit) the same row twice.
func (r *Repository) MatureDue(ctx context.Context, now time.Time, limit int) (*model.MaturationResult, error) {
	result := &model.MaturationResult{}

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var matured []model.Commission
		err := tx.SelectContext(ctx, &matured, `
			UPDATE commissions SET status = 'PROCEED', matured_at = $1
			WHERE id IN (
				SELECT id FROM commissions
				WHERE status = 'PENDING'
				  AND created_at + hold_days * INTERVAL '24 hours' <= $1
				ORDER BY created_at
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			) AND status = 'PENDING'
			RETURNING *`, now, limit)
		if err != nil {
			return fmt.Errorf("failed to mature commissions: %w", err)
		}
		if len(matured) == 0 {
			return nil
		}

		bySeller := groupBySeller(matured)
		for _, sellerID := range sortedSellerIDs(bySeller) {
			if err := lockSellerBalance(ctx, tx, sellerID); err != nil {
				return err
			}
			for _, c := range bySeller[sellerID] {
				id := c.ID
				entry := model.LedgerEntry{
					SellerID:     sellerID,
					Type:         model.EntryTypeCredit,
					Reason:       model.EntryReasonMaturation,
					Amount:       c.CommissionAmount,
					CommissionID: &id,
				}
				if err := appendLedgerEntry(ctx, tx, &entry); err != nil {
					return err
				}
				result.Entries = append(result.Entries, entry)
			}
			if _, err := refreshSellerBalance(ctx, tx, sellerID); err != nil {
				return err
			}
		}
		result.Commissions = matured
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func groupBySeller(commissions []model.Commission) map[uuid.UUID][]model.Commission {
	out := make(map[uuid.UUID][]model.Commission)
	for _, c := range commissions {
		out[c.SellerID] = append(out[c.SellerID], c)
	}
	return out
}

// sortedSellerIDs gives a stable lock order across transactions.
func sortedSellerIDs(m map[uuid.UUID][]model.Commission) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
