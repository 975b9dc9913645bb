package model

import (
	"time"

	"github.com/google/uuid"
)

type Seller struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SellerGroup routes every commission earned through its enrollments to
// CreatorID. Members are never paid directly.
type SellerGroup struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatorID uuid.UUID `json:"creator_id" db:"creator_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SellerGroupMember struct {
	GroupID  uuid.UUID `json:"group_id" db:"group_id"`
	SellerID uuid.UUID `json:"seller_id" db:"seller_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
