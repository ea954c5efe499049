package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-portal/internal/api/dto"
	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/service"
)

// AdminHandler exposes user administration.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListUsers handles GET /api/admin/users. A search query narrows the listing.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var (
		page service.PageResult[domain.User]
		err  error
	)
	if q := c.Query("search"); q != "" {
		page, err = h.admin.SearchUsers(c.UserContext(), q, pagination(c))
	} else {
		page, err = h.admin.ListUsers(c.UserContext(), pagination(c))
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, pageOf(page, dto.NewUserResponses), nil)
}

// GetUser handles GET /api/admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.admin.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(user), nil)
}

// UpdateStatus handles PUT /api/admin/users/:id/status.
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.admin.UpdateUserStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(user), nil)
}

// UpdateRole handles PUT /api/admin/users/:id/role.
func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	var req dto.UpdateRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.admin.UpdateUserRole(c.UserContext(), c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(user), nil)
}

// Unlock handles POST /api/admin/users/:id/unlock.
func (h *AdminHandler) Unlock(c *fiber.Ctx) error {
	user, err := h.admin.UnlockUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(user), nil)
}

// DeleteUser handles DELETE /api/admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.admin.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
