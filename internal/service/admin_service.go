package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/repository"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

// AdminService exposes user administration.
type AdminService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewAdminService constructs the service.
func NewAdminService(store repository.Store, logger *zap.Logger) *AdminService {
	return &AdminService{store: store, logger: loggerOrNop(logger)}
}

// GetUser loads an account by id.
func (s *AdminService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// ListUsers pages through all accounts.
func (s *AdminService) ListUsers(ctx context.Context, page Pagination) (PageResult[domain.User], error) {
	return s.list(ctx, repository.UserFilter{}, page)
}

// SearchUsers matches username or email, case-insensitively.
func (s *AdminService) SearchUsers(ctx context.Context, query string, page Pagination) (PageResult[domain.User], error) {
	filter := repository.UserFilter{}
	if q := strings.TrimSpace(query); q != "" {
		filter.Search = &q
	}
	return s.list(ctx, filter, page)
}

func (s *AdminService) list(ctx context.Context, filter repository.UserFilter, page Pagination) (PageResult[domain.User], error) {
	filter.Limit, filter.Offset = page.limitOffset()
	users, total, err := s.store.Users().ListWithFilter(ctx, filter)
	if err != nil {
		return PageResult[domain.User]{}, err
	}
	return newPage(users, total, page), nil
}

// UpdateUserStatus sets the account status.
func (s *AdminService) UpdateUserStatus(ctx context.Context, id string, status domain.AccountStatus) (*domain.User, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid account status", map[string]any{"status": string(status)})
	}
	return s.mutate(ctx, id, func(u *domain.User) {
		u.Status = status
	})
}

// UpdateUserRole sets the account role.
func (s *AdminService) UpdateUserRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}
	return s.mutate(ctx, id, func(u *domain.User) {
		u.Role = role
	})
}

// UnlockUser clears the lockout and the failed login counter.
func (s *AdminService) UnlockUser(ctx context.Context, id string) (*domain.User, error) {
	return s.mutate(ctx, id, func(u *domain.User) {
		u.LockedUntil = nil
		u.FailedLoginAttempts = 0
	})
}

// DeleteUser removes an account and the tickets it owns.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return notFound(err, "user")
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

func (s *AdminService) mutate(ctx context.Context, id string, fn func(*domain.User)) (*domain.User, error) {
	var user *domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if user, err = tx.Users().GetForUpdate(ctx, id); err != nil {
			return notFound(err, "user")
		}
		fn(user)
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user updated",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("status", string(user.Status)))
	return user, nil
}
