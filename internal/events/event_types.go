package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/community-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventPostPublished       EventType = "post_published"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, subjectID, actor string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OwnerUsername string                `json:"owner_username"`
	Subject       string                `json:"subject"`
	Category      string                `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OwnerUsername string              `json:"owner_username"`
	OwnerEmail    string              `json:"owner_email"`
	Subject       string              `json:"subject"`
	OldStatus     domain.TicketStatus `json:"old_status"`
	NewStatus     domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeUsername string `json:"assignee_username"`
	AssigneeEmail    string `json:"assignee_email"`
	Subject          string `json:"subject"`
}

// PostPublishedPayload payload.
type PostPublishedPayload struct {
	Title         string          `json:"title"`
	Type          domain.PostType `json:"type"`
	PublishedDate time.Time       `json:"published_date"`
	Scheduled     bool            `json:"scheduled"`
}
