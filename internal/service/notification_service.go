package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/community-portal/internal/config"
	"github.com/spec-kit/community-portal/internal/events"
	"github.com/spec-kit/community-portal/internal/mail"
	"github.com/spec-kit/community-portal/internal/observability"
)

const webhookTimeout = 5 * time.Second

// NotificationService turns domain events into emails and webhook calls.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     mail.Sender
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer mail.Sender, metrics *observability.Metrics, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		metrics:    metrics,
		logger:     loggerOrNop(logger),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventPostPublished, n.handlePostPublished)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.SubjectID), zap.Any("payload", event.Payload))
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.SubjectID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}

	body := fmt.Sprintf("Hello %s,\n\nThe status of your ticket %q changed from %s to %s.\n",
		payload.OwnerUsername, payload.Subject, payload.OldStatus, payload.NewStatus)
	return errors.Join(
		n.sendEmail(ctx, "ticket_status", mail.NotificationMessage(payload.OwnerEmail, "Ticket status updated", body)),
		n.sendWebhook(ctx, event),
	)
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned", zap.String("ticket_id", event.SubjectID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}

	body := fmt.Sprintf("Hello %s,\n\nThe ticket %q has been assigned to you.\n", payload.AssigneeUsername, payload.Subject)
	return errors.Join(
		n.sendEmail(ctx, "ticket_assigned", mail.NotificationMessage(payload.AssigneeEmail, "Ticket assigned to you", body)),
		n.sendWebhook(ctx, event),
	)
}

func (n *NotificationService) handlePostPublished(ctx context.Context, event events.Event) error {
	n.logger.Info("PostPublished", zap.String("post_id", event.SubjectID), zap.Any("payload", event.Payload))
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) sendEmail(ctx context.Context, kind string, msg mail.Message) error {
	if n.mailer == nil || strings.TrimSpace(msg.To) == "" {
		return nil
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.metrics.EmailFailed(kind)
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	return nil
}

func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}

	timeout := webhookTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Post(url).JSON(event).Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook: %w", errors.Join(errs...))
	}
	if code >= http.StatusBadRequest {
		return fmt.Errorf("webhook: unexpected status %d", code)
	}
	n.logger.Debug("webhook delivered", zap.String("event_type", string(event.Type)), zap.Int("status", code))
	return nil
}
