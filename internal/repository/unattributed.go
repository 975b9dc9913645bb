package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/model"
)

// RecordUnattributed stores (or refreshes) a dropped event for diagnostics.
func (r *Repository) RecordUnattributed(ctx context.Context, e *model.UnattributedEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO unattributed_events (id, event_id, event_type, click_id, customer_id, link_id, reason, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO UPDATE SET
			reason = EXCLUDED.reason,
			link_id = COALESCE(EXCLUDED.link_id, unattributed_events.link_id),
			payload = EXCLUDED.payload,
			replayed_at = NULL
		RETURNING id, created_at`,
		e.ID, e.EventID, e.EventType, e.ClickID, e.CustomerID, e.LinkID, e.Reason, e.Payload,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *Repository) ListUnattributedByLink(ctx context.Context, linkID uuid.UUID) ([]model.UnattributedEvent, error) {
	var events []model.UnattributedEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM unattributed_events
		WHERE link_id = $1 AND replayed_at IS NULL
		ORDER BY created_at`, linkID)
	return events, err
}

func (r *Repository) MarkReplayed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE unattributed_events SET replayed_at = $2
		WHERE id = $1`, id, at)
	return err
}
