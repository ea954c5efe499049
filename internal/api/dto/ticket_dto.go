package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority,omitempty"`
}

func (r CreateTicketRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Subject, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Required, validation.Length(1, 5000)),
		validation.Field(&r.Category, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Priority, validation.By(validValue[domain.TicketPriority]("must be LOW, MEDIUM, HIGH or URGENT"))),
	))
}

// Input converts the payload for the ticket service.
func (r CreateTicketRequest) Input() service.TicketCreateInput {
	return service.TicketCreateInput{
		Subject:     r.Subject,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
	}
}

// UpdateTicketRequest is a partial ticket update.
type UpdateTicketRequest struct {
	Status             *domain.TicketStatus   `json:"status"`
	Priority           *domain.TicketPriority `json:"priority"`
	Category           *string                `json:"category"`
	AssignedToUsername *string                `json:"assignedToUsername"`
}

func (r UpdateTicketRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.By(validValue[domain.TicketStatus]("must be a known ticket status"))),
		validation.Field(&r.Priority, validation.By(validValue[domain.TicketPriority]("must be LOW, MEDIUM, HIGH or URGENT"))),
		validation.Field(&r.Category, validation.Length(1, 50)),
	))
}

// Patch converts the payload for the ticket service.
func (r UpdateTicketRequest) Patch() service.TicketPatch {
	return service.TicketPatch{
		Status:             r.Status,
		Priority:           r.Priority,
		Category:           r.Category,
		AssignedToUsername: r.AssignedToUsername,
	}
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	StaffUsername string `json:"staffUsername"`
}

func (r AssignTicketRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.StaffUsername, validation.Required),
	))
}

// TicketResponse is the API view of a ticket.
type TicketResponse struct {
	ID                 string                `json:"id"`
	Username           string                `json:"username"`
	Subject            string                `json:"subject"`
	Description        string                `json:"description"`
	Status             domain.TicketStatus   `json:"status"`
	Priority           domain.TicketPriority `json:"priority"`
	Category           string                `json:"category"`
	AssignedToUsername *string               `json:"assignedToUsername,omitempty"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
	ResolvedAt         *time.Time            `json:"resolvedAt,omitempty"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.SupportTicket) TicketResponse {
	return TicketResponse{
		ID:                 t.ID,
		Username:           t.Username,
		Subject:            t.Subject,
		Description:        t.Description,
		Status:             t.Status,
		Priority:           t.Priority,
		Category:           t.Category,
		AssignedToUsername: t.AssignedToUsername,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		ResolvedAt:         t.ResolvedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.SupportTicket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}
