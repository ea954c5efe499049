package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/repository"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

type ticketRepository struct {
	st *Store
}

func (r *ticketRepository) Create(_ context.Context, ticket *domain.SupportTicket) error {
	return r.st.write(func(d *dataset, now time.Time) error {
		if err := checkTicketRefs(d, ticket); err != nil {
			return err
		}
		ticket.ID = newID()
		ticket.CreatedAt = now
		ticket.UpdatedAt = now
		d.tickets[ticket.ID] = *ticket
		return nil
	})
}

// Update keeps the stored owner regardless of the value passed in.
func (r *ticketRepository) Update(_ context.Context, ticket *domain.SupportTicket) error {
	return r.st.write(func(d *dataset, now time.Time) error {
		current, ok := d.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		ticket.UserID = current.UserID
		if err := checkTicketRefs(d, ticket); err != nil {
			return err
		}
		ticket.CreatedAt = current.CreatedAt
		ticket.UpdatedAt = now
		d.tickets[ticket.ID] = *ticket
		return nil
	})
}

func (r *ticketRepository) GetByID(_ context.Context, id string) (*domain.SupportTicket, error) {
	var found *domain.SupportTicket
	_ = r.st.read(func(d *dataset) error {
		if t, ok := d.tickets[id]; ok {
			t = withUsernames(d, t)
			found = &t
		}
		return nil
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.SupportTicket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepository) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.SupportTicket, int, error) {
	var matched []domain.SupportTicket
	_ = r.st.read(func(d *dataset) error {
		for _, t := range d.tickets {
			if filter.UserID != nil && t.UserID != *filter.UserID {
				continue
			}
			if filter.AssigneeID != nil && (t.AssignedToID == nil || *t.AssignedToID != *filter.AssigneeID) {
				continue
			}
			if filter.Status != nil && t.Status != *filter.Status {
				continue
			}
			matched = append(matched, withUsernames(d, t))
		}
		return nil
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func withUsernames(d *dataset, t domain.SupportTicket) domain.SupportTicket {
	if owner, ok := d.users[t.UserID]; ok {
		t.Username = owner.Username
	}
	t.AssignedToUsername = nil
	if t.AssignedToID != nil {
		if assignee, ok := d.users[*t.AssignedToID]; ok {
			name := assignee.Username
			t.AssignedToUsername = &name
		}
	}
	return t
}

func checkTicketRefs(d *dataset, t *domain.SupportTicket) error {
	if _, ok := d.users[t.UserID]; !ok {
		return apperrors.NewNotFound("user", map[string]any{"id": t.UserID})
	}
	if t.AssignedToID != nil {
		if _, ok := d.users[*t.AssignedToID]; !ok {
			return apperrors.NewNotFound("user", map[string]any{"id": *t.AssignedToID})
		}
	}
	return nil
}
