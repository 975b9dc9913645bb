package model

import (
	"time"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	EnrollmentStatusActive   EnrollmentStatus = "ACTIVE"
	EnrollmentStatusArchived EnrollmentStatus = "ARCHIVED"
)

// Enrollment binds either a seller or a seller group to a mission.
// Exactly one of SellerID and GroupID is set.
type Enrollment struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	MissionID uuid.UUID        `json:"mission_id" db:"mission_id"`
	SellerID  *uuid.UUID       `json:"seller_id,omitempty" db:"seller_id"`
	GroupID   *uuid.UUID       `json:"group_id,omitempty" db:"group_id"`
	Status    EnrollmentStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

func (e *Enrollment) IsGroup() bool {
	return e.GroupID != nil
}

// Link is a tracking slug. AffiliateID is the attribution key for every
// click routed through it.
type Link struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Slug           string     `json:"slug" db:"slug"`
	DestinationURL string     `json:"destination_url" db:"destination_url"`
	WorkspaceID    uuid.UUID  `json:"workspace_id" db:"workspace_id"`
	MissionID      *uuid.UUID `json:"mission_id,omitempty" db:"mission_id"`
	EnrollmentID   *uuid.UUID `json:"enrollment_id,omitempty" db:"enrollment_id"`
	AffiliateID    *uuid.UUID `json:"affiliate_id,omitempty" db:"affiliate_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

type Click struct {
	ID        string    `json:"click_id" db:"id"`
	LinkID    uuid.UUID `json:"link_id" db:"link_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Customer freezes the first-touch attribution of an external customer.
// Once AffiliateID is set it is never re-evaluated.
type Customer struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id" db:"workspace_id"`
	ExternalID  string     `json:"external_id" db:"external_id"`
	ClickID     *string    `json:"click_id,omitempty" db:"click_id"`
	LinkID      *uuid.UUID `json:"link_id,omitempty" db:"link_id"`
	AffiliateID *uuid.UUID `json:"affiliate_id,omitempty" db:"affiliate_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

func (c *Customer) IsAttributed() bool {
	return c.AffiliateID != nil && c.LinkID != nil
}

type SplitShape string

const (
	SplitSolo         SplitShape = "SOLO"
	SplitGroup        SplitShape = "GROUP"
	SplitOrganization SplitShape = "ORGANIZATION"
)

type AttributionSource string

const (
	AttributionCustomer   AttributionSource = "CUSTOMER"
	AttributionLink       AttributionSource = "LINK"
	AttributionEnrollment AttributionSource = "ENROLLMENT"
)

// Attribution is the resolved payee of an event. SellerID is who gets paid;
// AttributedSellerID is who drove the event. They differ only for groups.
type Attribution struct {
	SellerID              uuid.UUID         `json:"seller_id"`
	AttributedSellerID    uuid.UUID         `json:"attributed_seller_id"`
	LinkID                uuid.UUID         `json:"link_id"`
	WorkspaceID           uuid.UUID         `json:"workspace_id"`
	MissionID             uuid.UUID         `json:"mission_id"`
	GroupID               *uuid.UUID        `json:"group_id,omitempty"`
	OrganizationMissionID *uuid.UUID        `json:"organization_mission_id,omitempty"`
	Shape                 SplitShape        `json:"shape"`
	Source                AttributionSource `json:"source"`
}
