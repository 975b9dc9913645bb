package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/traaaction/backend/internal/model"
)

func (r *Repository) CreateSeller(ctx context.Context, seller *model.Seller) error {
	return r.db.GetContext(ctx, &seller.CreatedAt, `
		INSERT INTO sellers (id, email, name)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		seller.ID, seller.Email, seller.Name)
}

func (r *Repository) GetSeller(ctx context.Context, id uuid.UUID) (*model.Seller, error) {
	var seller model.Seller
	err := r.db.GetContext(ctx, &seller, "SELECT * FROM sellers WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSellerNotFound
		}
		return nil, err
	}
	return &seller, nil
}

func (r *Repository) CreateSellerGroup(ctx context.Context, group *model.SellerGroup) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &group.CreatedAt, `
			INSERT INTO seller_groups (id, creator_id, name)
			VALUES ($1, $2, $3)
			RETURNING created_at`,
			group.ID, group.CreatorID, group.Name); err != nil {
			return err
		}
		// The creator is always a member of their own group.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO seller_group_members (group_id, seller_id)
			VALUES ($1, $2)`,
			group.ID, group.CreatorID)
		return err
	})
}

func (r *Repository) GetSellerGroup(ctx context.Context, id uuid.UUID) (*model.SellerGroup, error) {
	var group model.SellerGroup
	err := r.db.GetContext(ctx, &group, "SELECT * FROM seller_groups WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *Repository) AddGroupMember(ctx context.Context, member *model.SellerGroupMember) error {
	err := r.db.GetContext(ctx, &member.JoinedAt, `
		INSERT INTO seller_group_members (group_id, seller_id)
		VALUES ($1, $2)
		RETURNING joined_at`,
		member.GroupID, member.SellerID)
	if isUniqueViolation(err, "") {
		return ErrAlreadyMember
	}
	return err
}

func (r *Repository) IsGroupMember(ctx context.Context, groupID, sellerID uuid.UUID) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM seller_group_members
		WHERE group_id = $1 AND seller_id = $2`, groupID, sellerID)
	return count > 0, err
}
