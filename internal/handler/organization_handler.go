package handler

import (
	"errors"

	"crm-console/internal/middleware"
	"crm-console/internal/organization"

	"github.com/gofiber/fiber/v2"
)

type OrganizationHandler struct{}

func NewOrganizationHandler() *OrganizationHandler {
	return &OrganizationHandler{}
}

// SelectOrganizationRequest is the body of PUT /organizations/current
type SelectOrganizationRequest struct {
	OrganizationID uint `json:"organization_id" validate:"required,gt=0"`
}

type organizationStateResponse struct {
	Status string `json:"status"`
	organization.Snapshot
}

func stateResponse(snap organization.Snapshot) organizationStateResponse {
	return organizationStateResponse{Status: snap.Status.String(), Snapshot: snap}
}

// List fetches the tenant list into the session store
// GET /api/v1/organizations
func (h *OrganizationHandler) List(c *fiber.Ctx) error {
	sess := middleware.SessionFrom(c)
	store := sess.Organizations()
	if err := store.FetchOrganizations(c.UserContext()); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to fetch organizations"})
	}
	snap := store.Snapshot()
	if snap.Loading {
		return c.Status(fiber.StatusAccepted).JSON(middleware.Skeleton)
	}
	return c.JSON(snap.Organizations)
}

// Current returns the selection state of the session
// GET /api/v1/organizations/current
func (h *OrganizationHandler) Current(c *fiber.Ctx) error {
	sess := middleware.SessionFrom(c)
	return c.JSON(stateResponse(sess.Organizations().Snapshot()))
}

// Select switches the session to another organization
// PUT /api/v1/organizations/current
func (h *OrganizationHandler) Select(c *fiber.Ctx) error {
	var req SelectOrganizationRequest
	if !bind(c, &req) {
		return nil
	}

	store := middleware.SessionFrom(c).Organizations()
	err := store.SelectByID(c.UserContext(), req.OrganizationID)
	switch {
	case errors.Is(err, organization.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, organization.ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	snap := store.Snapshot()
	// A failed save still switches the organization for this session.
	if err != nil && (snap.Current == nil || snap.Current.ID != req.OrganizationID) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to select organization"})
	}
	return c.JSON(stateResponse(snap))
}
