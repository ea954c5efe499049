package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-portal/internal/api/dto"
	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/service"
)

// SupportHandler serves support tickets for customers and staff.
type SupportHandler struct {
	tickets *service.TicketService
}

// NewSupportHandler constructs handler.
func NewSupportHandler(tickets *service.TicketService) *SupportHandler {
	return &SupportHandler{tickets: tickets}
}

// CreateTicket handles POST /api/support/tickets.
func (h *SupportHandler) CreateTicket(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.tickets.CreateTicket(c.UserContext(), id.Username, req.Input())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewTicketResponse(res.Ticket), res.Warnings)
}

// ListMyTickets handles GET /api/support/tickets.
func (h *SupportHandler) ListMyTickets(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	page, err := h.tickets.ListUserTickets(c.UserContext(), id.Username, pagination(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, pageOf(page, dto.NewTicketResponses), nil)
}

// GetTicket handles GET /api/support/tickets/:id for the ticket owner.
func (h *SupportHandler) GetTicket(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"), id.Username)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketResponse(ticket), nil)
}

// UpdateTicket handles PUT /api/support/tickets/:id.
func (h *SupportHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.tickets.UpdateTicket(c.UserContext(), c.Params("id"), id.Username, req.Patch())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketResponse(res.Ticket), res.Warnings)
}

// ListAllTickets handles GET /api/support/staff/tickets. An optional status narrows it.
func (h *SupportHandler) ListAllTickets(c *fiber.Ctx) error {
	var (
		page service.PageResult[domain.SupportTicket]
		err  error
	)
	if status := c.Query("status"); status != "" {
		page, err = h.tickets.ListTicketsByStatus(c.UserContext(), domain.TicketStatus(strings.ToUpper(status)), pagination(c))
	} else {
		page, err = h.tickets.ListAllTickets(c.UserContext(), pagination(c))
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, pageOf(page, dto.NewTicketResponses), nil)
}

// ListAssigned handles GET /api/support/staff/tickets/assigned.
func (h *SupportHandler) ListAssigned(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	page, err := h.tickets.ListAssignedTickets(c.UserContext(), id.Username, pagination(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, pageOf(page, dto.NewTicketResponses), nil)
}

// GetStaffTicket handles GET /api/support/staff/tickets/:id.
func (h *SupportHandler) GetStaffTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicketByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketResponse(ticket), nil)
}

// AssignTicket handles POST /api/support/staff/tickets/:id/assign.
func (h *SupportHandler) AssignTicket(c *fiber.Ctx) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.tickets.AssignTicket(c.UserContext(), c.Params("id"), req.StaffUsername, id.Username)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketResponse(res.Ticket), res.Warnings)
}
