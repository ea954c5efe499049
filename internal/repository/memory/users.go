package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/repository"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

type userRepository struct {
	st *Store
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	return r.st.write(func(d *dataset, now time.Time) error {
		if err := checkUserUnique(d, user); err != nil {
			return err
		}
		user.ID = newID()
		user.CreatedAt = now
		user.UpdatedAt = now
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	return r.st.write(func(d *dataset, now time.Time) error {
		current, ok := d.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkUserUnique(d, user); err != nil {
			return err
		}
		user.CreatedAt = current.CreatedAt
		user.UpdatedAt = now
		d.users[user.ID] = *user
		return nil
	})
}

// Delete cascades to owned tickets and clears assignments, like the SQL schema.
func (r *userRepository) Delete(_ context.Context, id string) error {
	return r.st.write(func(d *dataset, _ time.Time) error {
		if _, ok := d.users[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.users, id)
		for tid, t := range d.tickets {
			switch {
			case t.UserID == id:
				delete(d.tickets, tid)
			case t.AssignedToID != nil && *t.AssignedToID == id:
				t.AssignedToID = nil
				d.tickets[tid] = t
			}
		}
		return nil
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *userRepository) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *userRepository) GetByVerificationToken(_ context.Context, token string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.VerificationToken != nil && *u.VerificationToken == token })
}

func (r *userRepository) GetByResetToken(_ context.Context, token string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ResetToken != nil && *u.ResetToken == token })
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return exists(r.GetByUsername(ctx, username))
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return exists(r.GetByEmail(ctx, email))
}

func (r *userRepository) ListWithFilter(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	var matched []domain.User
	_ = r.st.read(func(d *dataset) error {
		for _, u := range d.users {
			if filter.Search != nil && *filter.Search != "" {
				q := strings.ToLower(*filter.Search)
				if !strings.Contains(strings.ToLower(u.Username), q) && !strings.Contains(strings.ToLower(u.Email), q) {
					continue
				}
			}
			matched = append(matched, u)
		}
		return nil
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Username < matched[j].Username
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *userRepository) find(match func(domain.User) bool) (*domain.User, error) {
	var found *domain.User
	_ = r.st.read(func(d *dataset) error {
		for _, u := range d.users {
			if match(u) {
				u := u
				found = &u
				return nil
			}
		}
		return nil
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func checkUserUnique(d *dataset, user *domain.User) error {
	for _, other := range d.users {
		if other.ID == user.ID {
			continue
		}
		if other.Username == user.Username {
			return apperrors.NewConflict("username already taken", map[string]any{"username": user.Username})
		}
		if other.Email == user.Email {
			return apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
	}
	return nil
}

func exists[T any](v *T, err error) (bool, error) {
	if err == repository.ErrNotFound {
		return false, nil
	}
	return v != nil, err
}
