package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-portal/internal/api/dto"
	"github.com/spec-kit/community-portal/internal/auth"
	"github.com/spec-kit/community-portal/internal/service"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

type validatable interface {
	Validate() error
}

// bind parses the body into req and runs its validation.
func bind(c *fiber.Ctx, req validatable) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return req.Validate()
}

func currentIdentity(c *fiber.Ctx) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(c.UserContext())
	if !ok {
		return auth.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return id, nil
}

func pagination(c *fiber.Ctx) service.Pagination {
	return service.Pagination{Page: c.QueryInt("page", 1), PageSize: c.QueryInt("size", 0)}
}

// respond writes {"data": ...} and adds warnings when a side effect failed.
func respond(c *fiber.Ctx, status int, data any, warnings []string) error {
	body := fiber.Map{"data": data}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	return c.Status(status).JSON(body)
}

func pageOf[T, R any](p service.PageResult[T], mapItems func([]T) []R) dto.PageResponse[R] {
	return dto.PageResponse[R]{
		Items:    mapItems(p.Items),
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    p.Total,
	}
}
