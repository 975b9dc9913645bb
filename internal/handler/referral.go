package handler

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/model"
)

const clickCookie = "trac_click_id"

// Redirect records a click and sends the visitor to the link destination
// with the click id attached for checkout.
func (h *Handler) Redirect(c *fiber.Ctx) error {
	dest, click, err := h.catalogSvc.TrackClick(c.Context(), c.Params("slug"))
	if err != nil {
		return fail(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     clickCookie,
		Value:    click.ID,
		Expires:  time.Now().Add(h.cfg.Commission.ClickTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(withClickID(dest, click.ID), fiber.StatusFound)
}

func withClickID(dest, clickID string) string {
	u, err := url.Parse(dest)
	if err != nil || u.Scheme == "" {
		return dest
	}
	q := u.Query()
	q.Set(clickCookie, clickID)
	u.RawQuery = q.Encode()
	return u.String()
}

type CreateSellerRequest struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

func (h *Handler) CreateSeller(c *fiber.Ctx) error {
	var req CreateSellerRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return badRequest(c, "name is required")
	}
	seller, err := h.catalogSvc.CreateSeller(c.Context(), req.Name, req.Email)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(seller)
}

type CreateGroupRequest struct {
	CreatorID uuid.UUID `json:"creator_id"`
	Name      string    `json:"name"`
}

func (h *Handler) CreateGroup(c *fiber.Ctx) error {
	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil || req.CreatorID == uuid.Nil {
		return badRequest(c, "creator_id is required")
	}
	group, err := h.catalogSvc.CreateSellerGroup(c.Context(), req.CreatorID, req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

type AddMemberRequest struct {
	SellerID uuid.UUID `json:"seller_id"`
}

func (h *Handler) AddGroupMember(c *fiber.Ctx) error {
	groupID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req AddMemberRequest
	if err := c.BodyParser(&req); err != nil || req.SellerID == uuid.Nil {
		return badRequest(c, "seller_id is required")
	}
	if err := h.catalogSvc.AddGroupMember(c.Context(), groupID, req.SellerID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type CreateMissionRequest struct {
	WorkspaceID    uuid.UUID  `json:"workspace_id"`
	OrganizationID *uuid.UUID `json:"organization_id"`
	model.MissionTerms
}

func (h *Handler) CreateMission(c *fiber.Ctx) error {
	var req CreateMissionRequest
	if err := c.BodyParser(&req); err != nil || req.WorkspaceID == uuid.Nil {
		return badRequest(c, "workspace_id is required")
	}
	mission, err := h.catalogSvc.CreateMission(c.Context(), req.WorkspaceID, req.OrganizationID, req.MissionTerms)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(mission)
}

func (h *Handler) GetMission(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	mission, err := h.catalogSvc.GetMission(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(mission)
}

func (h *Handler) UpdateMissionTerms(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var terms model.MissionTerms
	if err := c.BodyParser(&terms); err != nil {
		return badRequest(c, "invalid JSON payload")
	}
	mission, err := h.catalogSvc.UpdateMissionTerms(c.Context(), actor(c), id, terms)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(mission)
}

type EnrollRequest struct {
	SellerID       *uuid.UUID `json:"seller_id"`
	GroupID        *uuid.UUID `json:"group_id"`
	Slug           string     `json:"slug"`
	DestinationURL string     `json:"destination_url"`
}

func (h *Handler) Enroll(c *fiber.Ctx) error {
	missionID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req EnrollRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON payload")
	}
	enrollment, link, err := h.catalogSvc.Enroll(c.Context(), missionID, req.SellerID, req.GroupID, req.Slug, req.DestinationURL)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"enrollment": enrollment,
		"link":       link,
	})
}

type MemberLinkRequest struct {
	SellerID       uuid.UUID `json:"seller_id"`
	Slug           string    `json:"slug"`
	DestinationURL string    `json:"destination_url"`
}

func (h *Handler) CreateMemberLink(c *fiber.Ctx) error {
	enrollmentID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req MemberLinkRequest
	if err := c.BodyParser(&req); err != nil || req.SellerID == uuid.Nil {
		return badRequest(c, "seller_id is required")
	}
	link, err := h.catalogSvc.CreateMemberLink(c.Context(), enrollmentID, req.SellerID, req.Slug, req.DestinationURL)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(link)
}
