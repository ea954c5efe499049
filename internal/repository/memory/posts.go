package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/repository"
)

type postRepository struct {
	st *Store
}

func (r *postRepository) Create(_ context.Context, post *domain.NewsPost) error {
	return r.st.write(func(d *dataset, now time.Time) error {
		post.ID = newID()
		post.CreatedAt = now
		post.UpdatedAt = now
		stored := *post
		stored.Tags = append([]string(nil), post.Tags...)
		d.posts[post.ID] = stored
		return nil
	})
}

func (r *postRepository) Update(_ context.Context, post *domain.NewsPost) error {
	return r.st.write(func(d *dataset, now time.Time) error {
		current, ok := d.posts[post.ID]
		if !ok {
			return repository.ErrNotFound
		}
		post.CreatedAt = current.CreatedAt
		post.UpdatedAt = now
		stored := *post
		stored.Tags = append([]string(nil), post.Tags...)
		d.posts[post.ID] = stored
		return nil
	})
}

func (r *postRepository) Delete(_ context.Context, id string) error {
	return r.st.write(func(d *dataset, _ time.Time) error {
		if _, ok := d.posts[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.posts, id)
		return nil
	})
}

func (r *postRepository) GetByID(_ context.Context, id string) (*domain.NewsPost, error) {
	var found *domain.NewsPost
	_ = r.st.read(func(d *dataset) error {
		if p, ok := d.posts[id]; ok {
			p.Tags = append([]string(nil), p.Tags...)
			found = &p
		}
		return nil
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *postRepository) GetForUpdate(ctx context.Context, id string) (*domain.NewsPost, error) {
	return r.GetByID(ctx, id)
}

func (r *postRepository) ListWithFilter(_ context.Context, filter repository.PostFilter) ([]domain.NewsPost, int, error) {
	var matched []domain.NewsPost
	_ = r.st.read(func(d *dataset) error {
		for _, p := range d.posts {
			if postMatches(p, filter) {
				p.Tags = append([]string(nil), p.Tags...)
				matched = append(matched, p)
			}
		}
		return nil
	})

	key := func(p domain.NewsPost) *time.Time {
		switch filter.OrderBy {
		case repository.OrderByPublished:
			return p.PublishedDate
		case repository.OrderByScheduled:
			return p.ScheduledDate
		default:
			return &p.CreatedAt
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := key(matched[i]), key(matched[j])
		switch {
		case a == nil && b == nil:
			return matched[i].ID < matched[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		}
		return matched[i].ID < matched[j].ID
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func postMatches(p domain.NewsPost, f repository.PostFilter) bool {
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.Type != nil && p.Type != *f.Type {
		return false
	}
	if f.MajorOnly && !p.IsMajorRelease {
		return false
	}
	if f.Search != nil && *f.Search != "" {
		q := strings.ToLower(*f.Search)
		if !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Content), q) {
			return false
		}
	}
	if f.ScheduledBefore != nil && (p.ScheduledDate == nil || p.ScheduledDate.After(*f.ScheduledBefore)) {
		return false
	}
	return true
}
