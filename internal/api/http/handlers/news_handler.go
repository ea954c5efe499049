package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-portal/internal/api/dto"
	"github.com/spec-kit/community-portal/internal/auth"
	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/service"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

// NewsHandler serves news and patch notes.
type NewsHandler struct {
	news *service.NewsService
}

// NewNewsHandler constructs handler.
func NewNewsHandler(news *service.NewsService) *NewsHandler {
	return &NewsHandler{news: news}
}

// ListPublished handles GET /api/news. Optional type and q query parameters.
func (h *NewsHandler) ListPublished(c *fiber.Ctx) error {
	var (
		page service.PageResult[domain.NewsPost]
		err  error
	)
	switch {
	case c.Query("q") != "":
		page, err = h.news.SearchPublishedPosts(c.UserContext(), c.Query("q"), pagination(c))
	default:
		postType := domain.PostType(strings.ToUpper(c.Query("type", string(domain.PostTypeNews))))
		page, err = h.news.GetPublishedPostsByType(c.UserContext(), postType, pagination(c))
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, pageOf(page, dto.NewPostResponses), nil)
}

// Carousel handles GET /api/news/carousel.
func (h *NewsHandler) Carousel(c *fiber.Ctx) error {
	posts, err := h.news.GetRecentNewsForCarousel(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewPostResponses(posts), nil)
}

// LatestMajorPatchNote handles GET /api/news/patch-notes/latest-major.
func (h *NewsHandler) LatestMajorPatchNote(c *fiber.Ctx) error {
	post, err := h.news.GetLatestMajorPatchNote(c.UserContext())
	if err != nil {
		return err
	}
	if post == nil {
		return apperrors.NewNotFound("patch note", nil)
	}
	return respond(c, fiber.StatusOK, dto.NewPostResponse(post), nil)
}

// GetPost handles GET /api/news/:id. Unpublished posts are only shown to admins.
func (h *NewsHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.news.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if post.Status != domain.PostStatusPublished {
		id, ok := auth.IdentityFromContext(c.UserContext())
		if !ok || !auth.IsAdmin(id.Role) {
			return apperrors.NewNotFound("post", nil)
		}
	}
	return respond(c, fiber.StatusOK, dto.NewPostResponse(post), nil)
}

// CreatePost handles POST /api/news.
func (h *NewsHandler) CreatePost(c *fiber.Ctx) error {
	var req dto.PostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.news.CreatePost(c.UserContext(), req.Input())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewPostResponse(post), nil)
}

// UpdatePost handles PUT /api/news/:id.
func (h *NewsHandler) UpdatePost(c *fiber.Ctx) error {
	var req dto.PostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.news.UpdatePost(c.UserContext(), c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewPostResponse(post), nil)
}

// DeletePost handles DELETE /api/news/:id.
func (h *NewsHandler) DeletePost(c *fiber.Ctx) error {
	if err := h.news.DeletePost(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PublishPost handles POST /api/news/:id/publish.
func (h *NewsHandler) PublishPost(c *fiber.Ctx) error {
	res, err := h.news.PublishPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewPostResponse(res.Post), res.Warnings)
}

// SchedulePost handles POST /api/news/:id/schedule.
func (h *NewsHandler) SchedulePost(c *fiber.Ctx) error {
	var req dto.ScheduleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.news.SchedulePost(c.UserContext(), c.Params("id"), *req.ScheduledDate)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewPostResponse(post), nil)
}

// ListByStatus handles GET /api/news/admin/status/:status.
func (h *NewsHandler) ListByStatus(c *fiber.Ctx) error {
	status := domain.PostStatus(strings.ToUpper(c.Params("status")))
	page, err := h.news.GetPostsByStatus(c.UserContext(), status, pagination(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, pageOf(page, dto.NewPostResponses), nil)
}

// PublishScheduled handles POST /api/news/admin/publish-scheduled.
func (h *NewsHandler) PublishScheduled(c *fiber.Ctx) error {
	n, err := h.news.PublishScheduledPosts(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"published": n}, nil)
}
