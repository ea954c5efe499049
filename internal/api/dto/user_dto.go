package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/spec-kit/community-portal/internal/domain"
)

// UserResponse is the public view of an account. Credentials and tokens are never exposed.
type UserResponse struct {
	ID                  string               `json:"id"`
	Username            string               `json:"username"`
	Email               string               `json:"email"`
	Role                domain.Role          `json:"role"`
	Status              domain.AccountStatus `json:"status"`
	EmailVerified       bool                 `json:"emailVerified"`
	FailedLoginAttempts int                  `json:"failedLoginAttempts"`
	LockedUntil         *time.Time           `json:"lockedUntil,omitempty"`
	LastLogin           *time.Time           `json:"lastLogin,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		Role:                u.Role,
		Status:              u.Status,
		EmailVerified:       u.EmailVerified,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LockedUntil:         u.LockedUntil,
		LastLogin:           u.LastLogin,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

// NewUserResponses maps a slice of users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

// UpdateStatusRequest payload for PUT /api/admin/users/:id/status.
type UpdateStatusRequest struct {
	Status domain.AccountStatus `json:"status"`
}

func (r UpdateStatusRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.By(validValue[domain.AccountStatus]("must be a known account status"))),
	))
}

// UpdateRoleRequest payload for PUT /api/admin/users/:id/role.
type UpdateRoleRequest struct {
	Role domain.Role `json:"role"`
}

func (r UpdateRoleRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.By(validValue[domain.Role]("must be a known role"))),
	))
}

// PageResponse wraps a listing page.
type PageResponse[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}
