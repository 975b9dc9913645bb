package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/model"
)

func (r *Repository) CreateMission(ctx context.Context, m *model.Mission) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO missions (
			id, workspace_id, organization_id, title,
			sale_enabled, sale_reward, lead_enabled, lead_reward,
			recurring_enabled, recurring_reward, recurring_duration_months, hold_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		m.ID, m.WorkspaceID, m.OrganizationID, m.Title,
		m.SaleEnabled, m.SaleReward, m.LeadEnabled, m.LeadReward,
		m.RecurringEnabled, m.RecurringReward, m.RecurringDurationMonths, m.HoldDays,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *Repository) GetMission(ctx context.Context, id uuid.UUID) (*model.Mission, error) {
	var m model.Mission
	err := r.db.GetContext(ctx, &m, "SELECT * FROM missions WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMissionNotFound
		}
		return nil, err
	}
	return &m, nil
}

// UpdateMissionTerms only succeeds while nobody is enrolled. Enrollment
// takes a share lock on the mission row, so the two cannot interleave.
func (r *Repository) UpdateMissionTerms(ctx context.Context, m *model.Mission) error {
	err := r.db.GetContext(ctx, &m.UpdatedAt, `
		UPDATE missions SET
			title = $2,
			sale_enabled = $3, sale_reward = $4,
			lead_enabled = $5, lead_reward = $6,
			recurring_enabled = $7, recurring_reward = $8,
			recurring_duration_months = $9, hold_days = $10,
			updated_at = NOW()
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM enrollments WHERE mission_id = $1)
		RETURNING updated_at`,
		m.ID, m.Title,
		m.SaleEnabled, m.SaleReward,
		m.LeadEnabled, m.LeadReward,
		m.RecurringEnabled, m.RecurringReward,
		m.RecurringDurationMonths, m.HoldDays)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM missions WHERE id = $1)", m.ID); err != nil {
		return err
	}
	if !exists {
		return ErrMissionNotFound
	}
	return ErrMissionHasEnrollments
}
