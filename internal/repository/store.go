package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/community-portal/internal/domain"
)

// DBTX is implemented by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Users() UserRepository
	Posts() PostRepository
	Tickets() TicketRepository
	// WithTx runs fn against a transactional view of the store. The work is
	// committed when fn returns nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// UserFilter narrows account listings.
type UserFilter struct {
	Search *string
	Limit  int
	Offset int
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetForUpdate reads the row and holds it until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	GetByResetToken(ctx context.Context, token string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListWithFilter(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
}

// PostOrder selects the sort column for post listings.
type PostOrder int

const (
	OrderByCreated PostOrder = iota
	OrderByPublished
	OrderByScheduled
)

// PostFilter narrows post listings.
type PostFilter struct {
	Status          *domain.PostStatus
	Type            *domain.PostType
	MajorOnly       bool
	Search          *string
	ScheduledBefore *time.Time
	OrderBy         PostOrder
	// Lock holds the matched rows for the surrounding transaction and skips rows
	// another transaction already holds.
	Lock   bool
	Limit  int
	Offset int
}

// PostRepository encapsulates news post persistence.
type PostRepository interface {
	Create(ctx context.Context, post *domain.NewsPost) error
	Update(ctx context.Context, post *domain.NewsPost) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.NewsPost, error)
	GetForUpdate(ctx context.Context, id string) (*domain.NewsPost, error)
	ListWithFilter(ctx context.Context, filter PostFilter) ([]domain.NewsPost, int, error)
}

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	UserID     *string
	AssigneeID *string
	Status     *domain.TicketStatus
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.SupportTicket) error
	Update(ctx context.Context, ticket *domain.SupportTicket) error
	GetByID(ctx context.Context, id string) (*domain.SupportTicket, error)
	GetForUpdate(ctx context.Context, id string) (*domain.SupportTicket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.SupportTicket, int, error)
}

// ErrNotFound is returned when a lookup or write matches no row.
var ErrNotFound = pgx.ErrNoRows
