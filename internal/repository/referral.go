package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/traaaction/backend/internal/model"
)

const linkSlugConstraint = "links_slug_key"

// CreateEnrollment stores an enrollment and its tracking link in one
// transaction.
func (r *Repository) CreateEnrollment(ctx context.Context, e *model.Enrollment, link *model.Link) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var missionID uuid.UUID
		err := tx.GetContext(ctx, &missionID, "SELECT id FROM missions WHERE id = $1 FOR SHARE", e.MissionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMissionNotFound
			}
			return err
		}

		err = tx.GetContext(ctx, &e.CreatedAt, `
			INSERT INTO enrollments (id, mission_id, seller_id, group_id, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			e.ID, e.MissionID, e.SellerID, e.GroupID, e.Status)
		if err != nil {
			if isUniqueViolation(err, "") {
				return ErrAlreadyEnrolled
			}
			return err
		}

		return insertLink(ctx, tx, link)
	})
}

func (r *Repository) GetEnrollment(ctx context.Context, id uuid.UUID) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.db.GetContext(ctx, &e, "SELECT * FROM enrollments WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *Repository) CreateLink(ctx context.Context, link *model.Link) error {
	return insertLink(ctx, r.db, link)
}

func insertLink(ctx context.Context, q sqlx.QueryerContext, link *model.Link) error {
	err := q.QueryRowxContext(ctx, `
		INSERT INTO links (id, slug, destination_url, workspace_id, mission_id, enrollment_id, affiliate_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		link.ID, link.Slug, link.DestinationURL, link.WorkspaceID, link.MissionID, link.EnrollmentID, link.AffiliateID,
	).Scan(&link.CreatedAt, &link.UpdatedAt)
	if isUniqueViolation(err, linkSlugConstraint) {
		return ErrSlugTaken
	}
	return err
}

func (r *Repository) GetLink(ctx context.Context, id uuid.UUID) (*model.Link, error) {
	var link model.Link
	err := r.db.GetContext(ctx, &link, "SELECT * FROM links WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *Repository) GetLinkBySlug(ctx context.Context, slug string) (*model.Link, error) {
	var link model.Link
	err := r.db.GetContext(ctx, &link, "SELECT * FROM links WHERE slug = $1", slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *Repository) SetLinkAffiliate(ctx context.Context, linkID, sellerID uuid.UUID, force bool) (*model.Link, error) {
	var link model.Link
	err := r.db.GetContext(ctx, &link, `
		UPDATE links SET affiliate_id = $2, updated_at = NOW()
		WHERE id = $1
		  AND (affiliate_id IS NULL OR affiliate_id = $2 OR $3)
		RETURNING *`,
		linkID, sellerID, force)
	if err == nil {
		return &link, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if _, err := r.GetLink(ctx, linkID); err != nil {
		return nil, err
	}
	return nil, ErrLinkAlreadyAttributed
}

func (r *Repository) CreateClick(ctx context.Context, click *model.Click) error {
	return r.db.GetContext(ctx, &click.CreatedAt, `
		INSERT INTO clicks (id, link_id) VALUES ($1, $2)
		RETURNING created_at`,
		click.ID, click.LinkID)
}

func (r *Repository) GetClick(ctx context.Context, id string) (*model.Click, error) {
	var click model.Click
	err := r.db.GetContext(ctx, &click, "SELECT * FROM clicks WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClickNotFound
		}
		return nil, err
	}
	return &click, nil
}

func (r *Repository) GetCustomer(ctx context.Context, workspaceID uuid.UUID, externalID string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT * FROM customers
		WHERE workspace_id = $1 AND external_id = $2`,
		workspaceID, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FreezeCustomer is first-touch: the binding is written only if the
// customer has none yet.
func (r *Repository) FreezeCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	var stored model.Customer
	err := r.db.GetContext(ctx, &stored, `
		INSERT INTO customers (id, workspace_id, external_id, click_id, link_id, affiliate_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workspace_id, external_id) DO UPDATE SET
			click_id = EXCLUDED.click_id,
			link_id = EXCLUDED.link_id,
			affiliate_id = EXCLUDED.affiliate_id
		WHERE customers.affiliate_id IS NULL
		RETURNING *`,
		c.ID, c.WorkspaceID, c.ExternalID, c.ClickID, c.LinkID, c.AffiliateID)
	if errors.Is(err, sql.ErrNoRows) {
		return r.GetCustomer(ctx, c.WorkspaceID, c.ExternalID)
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
