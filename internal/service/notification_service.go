package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/helpdeskpro/helpdesk-service/internal/events"
	"github.com/helpdeskpro/helpdesk-service/internal/notify"
)

// NotificationService turns lifecycle events into outbound
// notifications. Delivery is fire-and-forget: a failed send is logged
// and never surfaces to the operation that triggered it.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier notify.Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	n.dispatcher.Subscribe(events.EventAgentReplied, n.handleAgentReplied)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID))
	n.deliver(ctx, payload.CreatorEmail, payload.CreatorName, notify.KindTicketCreated, notify.Payload{
		TicketID:    event.TicketID,
		TicketTitle: payload.Title,
	})
	return nil
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketClosedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketClosed", zap.String("ticket_id", event.TicketID))
	n.deliver(ctx, payload.CreatorEmail, payload.CreatorName, notify.KindTicketClosed, notify.Payload{
		TicketID:    event.TicketID,
		TicketTitle: payload.Title,
	})
	return nil
}

func (n *NotificationService) handleAgentReplied(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AgentRepliedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("AgentReplied", zap.String("ticket_id", event.TicketID))
	n.deliver(ctx, payload.CreatorEmail, payload.CreatorName, notify.KindTicketResponse, notify.Payload{
		TicketID:    event.TicketID,
		TicketTitle: payload.Title,
		AgentName:   payload.AgentName,
		Message:     payload.Message,
	})
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, email, name string, kind notify.TemplateKind, payload notify.Payload) {
	if n.notifier == nil {
		return
	}
	if !n.notifier.Notify(ctx, email, name, kind, payload) {
		n.logger.Warn("notification delivery failed",
			zap.String("kind", string(kind)),
			zap.String("recipient", email))
	}
}
