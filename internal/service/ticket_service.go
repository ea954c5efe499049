package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/events"
	"github.com/spec-kit/community-portal/internal/repository"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

// TicketService coordinates support ticket workflows.
type TicketService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Category    string
	Priority    domain.TicketPriority
}

// TicketPatch is a partial ticket update. Nil fields are left unchanged.
type TicketPatch struct {
	Status             *domain.TicketStatus
	Priority           *domain.TicketPriority
	Category           *string
	AssignedToUsername *string
}

// TicketResult carries a ticket and any notification problems.
type TicketResult struct {
	Ticket   *domain.SupportTicket
	Warnings []string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// CreateTicket opens a ticket owned by username. Priority defaults to MEDIUM.
func (s *TicketService) CreateTicket(ctx context.Context, username string, input TicketCreateInput) (*TicketResult, error) {
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid ticket priority", map[string]any{"priority": string(input.Priority)})
	}

	owner, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "user")
	}

	ticket := &domain.SupportTicket{
		UserID:      owner.ID,
		Username:    owner.Username,
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
	}
	if err := s.store.Tickets().Create(ctx, ticket); err != nil {
		return nil, err
	}

	warnings := publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventTicketCreated, ticket.ID, userActor(username), ticket.CreatedAt,
		events.TicketCreatedPayload{
			OwnerUsername: owner.Username,
			Subject:       ticket.Subject,
			Category:      ticket.Category,
			Priority:      ticket.Priority,
		}))
	return &TicketResult{Ticket: ticket, Warnings: warnings}, nil
}

// GetTicket returns a ticket only to its owner. Other callers see NotFound.
func (s *TicketService) GetTicket(ctx context.Context, id, username string) (*domain.SupportTicket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "ticket")
	}
	if ticket.Username != username {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	return ticket, nil
}

// GetTicketByID loads a ticket without an ownership check. Used by staff views.
func (s *TicketService) GetTicketByID(ctx context.Context, id string) (*domain.SupportTicket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "ticket")
	}
	return ticket, nil
}

// UpdateTicket applies patch. The first move into RESOLVED or CLOSED stamps resolvedAt.
func (s *TicketService) UpdateTicket(ctx context.Context, id, actor string, patch TicketPatch) (*TicketResult, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid ticket status", map[string]any{"status": string(*patch.Status)})
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid ticket priority", map[string]any{"priority": string(*patch.Priority)})
	}

	var (
		ticket   *domain.SupportTicket
		pending  []events.Event
		assignee *domain.User
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if ticket, err = tx.Tickets().GetForUpdate(ctx, id); err != nil {
			return notFound(err, "ticket")
		}
		oldStatus := ticket.Status

		if patch.AssignedToUsername != nil {
			if assignee, err = s.assign(ctx, tx, ticket, *patch.AssignedToUsername); err != nil {
				return err
			}
		}
		if patch.Status != nil {
			s.setStatus(ticket, *patch.Status)
		}
		if patch.Priority != nil {
			ticket.Priority = *patch.Priority
		}
		if patch.Category != nil {
			ticket.Category = strings.TrimSpace(*patch.Category)
		}
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}

		if assignee != nil {
			pending = append(pending, s.assignedEvent(ticket, assignee, actor))
		}
		if ticket.Status != oldStatus {
			owner, err := tx.Users().GetByID(ctx, ticket.UserID)
			if err != nil {
				return err
			}
			pending = append(pending, s.statusEvent(ticket, owner, oldStatus, actor))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &TicketResult{Ticket: ticket, Warnings: s.publishAll(ctx, pending)}, nil
}

// AssignTicket hands a ticket to staffUsername and moves it to IN_PROGRESS.
func (s *TicketService) AssignTicket(ctx context.Context, id, staffUsername, actor string) (*TicketResult, error) {
	var (
		ticket  *domain.SupportTicket
		pending []events.Event
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if ticket, err = tx.Tickets().GetForUpdate(ctx, id); err != nil {
			return notFound(err, "ticket")
		}
		oldStatus := ticket.Status

		assignee, err := s.assign(ctx, tx, ticket, staffUsername)
		if err != nil {
			return err
		}
		s.setStatus(ticket, domain.TicketStatusInProgress)
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}

		pending = append(pending, s.assignedEvent(ticket, assignee, actor))
		if oldStatus != ticket.Status {
			owner, err := tx.Users().GetByID(ctx, ticket.UserID)
			if err != nil {
				return err
			}
			pending = append(pending, s.statusEvent(ticket, owner, oldStatus, actor))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &TicketResult{Ticket: ticket, Warnings: s.publishAll(ctx, pending)}, nil
}

func (s *TicketService) assign(ctx context.Context, tx repository.Store, ticket *domain.SupportTicket, username string) (*domain.User, error) {
	assignee, err := tx.Users().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, notFound(err, "assignee")
	}
	ticket.AssignedToID = &assignee.ID
	ticket.AssignedToUsername = &assignee.Username
	return assignee, nil
}

func (s *TicketService) setStatus(ticket *domain.SupportTicket, status domain.TicketStatus) {
	ticket.Status = status
	if status.Terminal() && ticket.ResolvedAt == nil {
		now := s.now()
		ticket.ResolvedAt = &now
	}
}

func (s *TicketService) assignedEvent(ticket *domain.SupportTicket, assignee *domain.User, actor string) events.Event {
	return events.New(events.EventTicketAssigned, ticket.ID, userActor(actor), s.now(), events.TicketAssignedPayload{
		AssigneeUsername: assignee.Username,
		AssigneeEmail:    assignee.Email,
		Subject:          ticket.Subject,
	})
}

func (s *TicketService) statusEvent(ticket *domain.SupportTicket, owner *domain.User, oldStatus domain.TicketStatus, actor string) events.Event {
	return events.New(events.EventTicketStatusChanged, ticket.ID, userActor(actor), s.now(), events.TicketStatusChangedPayload{
		OwnerUsername: owner.Username,
		OwnerEmail:    owner.Email,
		Subject:       ticket.Subject,
		OldStatus:     oldStatus,
		NewStatus:     ticket.Status,
	})
}

func (s *TicketService) publishAll(ctx context.Context, pending []events.Event) []string {
	var warnings []string
	for _, event := range pending {
		warnings = append(warnings, publishEvent(ctx, s.dispatcher, s.logger, event)...)
	}
	return warnings
}

// ListUserTickets returns the tickets owned by username.
func (s *TicketService) ListUserTickets(ctx context.Context, username string, page Pagination) (PageResult[domain.SupportTicket], error) {
	owner, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		return PageResult[domain.SupportTicket]{}, notFound(err, "user")
	}
	return s.list(ctx, repository.TicketFilter{UserID: &owner.ID}, page)
}

// ListAllTickets returns every ticket, newest first.
func (s *TicketService) ListAllTickets(ctx context.Context, page Pagination) (PageResult[domain.SupportTicket], error) {
	return s.list(ctx, repository.TicketFilter{}, page)
}

// ListTicketsByStatus returns tickets in status.
func (s *TicketService) ListTicketsByStatus(ctx context.Context, status domain.TicketStatus, page Pagination) (PageResult[domain.SupportTicket], error) {
	if !status.Valid() {
		return PageResult[domain.SupportTicket]{}, apperrors.NewValidationError("invalid ticket status", map[string]any{"status": string(status)})
	}
	return s.list(ctx, repository.TicketFilter{Status: &status}, page)
}

// ListAssignedTickets returns tickets assigned to staffUsername.
func (s *TicketService) ListAssignedTickets(ctx context.Context, staffUsername string, page Pagination) (PageResult[domain.SupportTicket], error) {
	staff, err := s.store.Users().GetByUsername(ctx, staffUsername)
	if err != nil {
		return PageResult[domain.SupportTicket]{}, notFound(err, "user")
	}
	return s.list(ctx, repository.TicketFilter{AssigneeID: &staff.ID}, page)
}

func (s *TicketService) list(ctx context.Context, filter repository.TicketFilter, page Pagination) (PageResult[domain.SupportTicket], error) {
	filter.Limit, filter.Offset = page.limitOffset()
	tickets, total, err := s.store.Tickets().ListWithFilter(ctx, filter)
	if err != nil {
		return PageResult[domain.SupportTicket]{}, err
	}
	return newPage(tickets, total, page), nil
}

func userActor(username string) string {
	if username == "" {
		return ""
	}
	return "user:" + username
}
