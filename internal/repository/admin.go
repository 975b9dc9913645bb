package repository

import (
	"context"
	"encoding/json"

	"github.com/traaaction/backend/internal/model"
)

// CreateAdminLog creates an admin action log entry
func (r *Repository) CreateAdminLog(ctx context.Context, log *model.AdminLog) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO admin_logs (actor, action, target_id, details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		log.Actor, log.Action, log.TargetID, log.Details,
	).Scan(&log.ID, &log.CreatedAt)
}

// LogAdminAction is a helper to create admin log with JSON details
func (r *Repository) LogAdminAction(ctx context.Context, actor, action string, targetID *string, details interface{}) error {
	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}
	return r.CreateAdminLog(ctx, &model.AdminLog{
		Actor:    actor,
		Action:   action,
		TargetID: targetID,
		Details:  detailsJSON,
	})
}

// GetAdminLogs retrieves admin action logs
func (r *Repository) GetAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, error) {
	var logs []model.AdminLog
	err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM admin_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	return logs, err
}
