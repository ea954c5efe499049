package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/spec-kit/community-portal/internal/api/dto"
	"github.com/spec-kit/community-portal/internal/auth"
	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/service"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

// PagesHandler serves the session authenticated pages as JSON view models.
type PagesHandler struct {
	sessions *session.Store
	accounts *service.AccountService
	news     *service.NewsService
	tickets  *service.TicketService
	admin    *service.AdminService
}

// NewPagesHandler constructs handler.
func NewPagesHandler(sessions *session.Store, accounts *service.AccountService, news *service.NewsService, tickets *service.TicketService, admin *service.AdminService) *PagesHandler {
	return &PagesHandler{sessions: sessions, accounts: accounts, news: news, tickets: tickets, admin: admin}
}

// Login handles POST /login and starts a session.
func (h *PagesHandler) Login(c *fiber.Ctx) error {
	var req dto.FormLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.AuthenticateSession(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := sess.Regenerate(); err != nil {
		return apperrors.NewInternalError(err)
	}
	sess.Set(auth.SessionUsernameKey, user.Username)
	if err := sess.Save(); err != nil {
		return apperrors.NewInternalError(err)
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(user), nil)
}

// Register handles POST /register. Accounts created here are active immediately.
func (h *PagesHandler) Register(c *fiber.Ctx) error {
	var req dto.FormRegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.RegisterActive(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewUserResponse(user), nil)
}

// Logout handles GET /logout.
func (h *PagesHandler) Logout(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := sess.Destroy(); err != nil {
		return apperrors.NewInternalError(err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "logged out"}, nil)
}

// Home handles GET /home.
func (h *PagesHandler) Home(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	carousel, err := h.news.GetRecentNewsForCarousel(c.UserContext())
	if err != nil {
		return err
	}
	latest, err := h.news.GetLatestMajorPatchNote(c.UserContext())
	if err != nil {
		return err
	}

	view := fiber.Map{
		"username": id.Username,
		"isStaff":  auth.IsStaff(id.Role),
		"isAdmin":  auth.IsAdmin(id.Role),
		"carousel": dto.NewPostResponses(carousel),
	}
	if latest != nil {
		view["latestMajorPatchNote"] = dto.NewPostResponse(latest)
	}
	return respond(c, fiber.StatusOK, view, nil)
}

// Profile handles GET /profile.
func (h *PagesHandler) Profile(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.GetProfile(c.UserContext(), id.Username)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(user), nil)
}

// EditProfile handles POST /profile/edit.
func (h *PagesHandler) EditProfile(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.ValidateForm(); err != nil {
		return err
	}
	res, err := h.accounts.UpdateProfile(c.UserContext(), id.Username, req.Email)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewUserResponse(res.User), res.Warnings)
}

// ChangePassword handles POST /profile/change-password.
func (h *PagesHandler) ChangePassword(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.ChangePassword(c.UserContext(), id.Username, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "password changed"}, nil)
}

// AdminDashboard handles GET /admin.
func (h *PagesHandler) AdminDashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	first := service.Pagination{Page: 1, PageSize: 10}

	users, err := h.admin.ListUsers(ctx, first)
	if err != nil {
		return err
	}
	posts := fiber.Map{}
	for _, status := range []domain.PostStatus{domain.PostStatusDraft, domain.PostStatusScheduled, domain.PostStatusPublished} {
		page, err := h.news.GetPostsByStatus(ctx, status, service.Pagination{Page: 1, PageSize: 1})
		if err != nil {
			return err
		}
		posts[string(status)] = page.Total
	}

	return respond(c, fiber.StatusOK, fiber.Map{
		"totalUsers":  users.Total,
		"recentUsers": dto.NewUserResponses(users.Items),
		"postCounts":  posts,
	}, nil)
}

// StaffDashboard handles GET /staff.
func (h *PagesHandler) StaffDashboard(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	open, err := h.tickets.ListTicketsByStatus(ctx, domain.TicketStatusOpen, service.Pagination{Page: 1, PageSize: 10})
	if err != nil {
		return err
	}
	assigned, err := h.tickets.ListAssignedTickets(ctx, id.Username, service.Pagination{Page: 1, PageSize: 10})
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, fiber.Map{
		"username":        id.Username,
		"openTickets":     pageOf(open, dto.NewTicketResponses),
		"assignedTickets": pageOf(assigned, dto.NewTicketResponses),
	}, nil)
}
