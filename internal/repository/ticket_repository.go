package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/community-portal/internal/domain"
)

type ticketRepository struct {
	db DBTX
}

const ticketSelect = `
        SELECT t.id, t.user_id, u.username, t.subject, t.description, t.status, t.priority, t.category,
               t.assigned_to_id, a.username, t.created_at, t.updated_at, t.resolved_at`

const ticketFrom = `
        FROM support_tickets t
        JOIN users u ON u.id = t.user_id
        LEFT JOIN users a ON a.id = t.assigned_to_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.SupportTicket) error {
	const query = `
        INSERT INTO support_tickets (user_id, subject, description, status, priority, category, assigned_to_id, resolved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.UserID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.AssignedToID,
		ticket.ResolvedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// Update never touches user_id; ownership is fixed at creation.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.SupportTicket) error {
	const query = `
        UPDATE support_tickets SET subject=$1, description=$2, status=$3, priority=$4, category=$5,
            assigned_to_id=$6, resolved_at=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.AssignedToID,
		ticket.ResolvedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.SupportTicket, error) {
	return r.fetchSingle(ctx, ticketSelect+ticketFrom+` WHERE t.id=$1`, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.SupportTicket, error) {
	return r.fetchSingle(ctx, ticketSelect+ticketFrom+` WHERE t.id=$1 FOR UPDATE OF t`, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.SupportTicket, error) {
	var ticket domain.SupportTicket
	if err := r.db.QueryRow(ctx, query, arg).Scan(ticketDest(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.SupportTicket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	idx := 1

	if filter.UserID != nil {
		clauses = append(clauses, fmt.Sprintf("t.user_id = $%d", idx))
		args = append(args, *filter.UserID)
		idx++
	}
	if filter.AssigneeID != nil {
		clauses = append(clauses, fmt.Sprintf("t.assigned_to_id = $%d", idx))
		args = append(args, *filter.AssigneeID)
		idx++
	}
	if filter.Status != nil {
		clauses = append(clauses, fmt.Sprintf("t.status = $%d", idx))
		args = append(args, *filter.Status)
		idx++
	}

	query := ticketSelect + `, COUNT(*) OVER()` + ticketFrom + ` WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY t.created_at DESC, t.id`
	query, args = appendPaging(query, args, idx, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		tickets []domain.SupportTicket
		total   int
	)
	for rows.Next() {
		var ticket domain.SupportTicket
		dest := append(ticketDest(&ticket), &total)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, total, rows.Err()
}

func ticketDest(ticket *domain.SupportTicket) []any {
	return []any{
		&ticket.ID,
		&ticket.UserID,
		&ticket.Username,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.AssignedToID,
		&ticket.AssignedToUsername,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	}
}
