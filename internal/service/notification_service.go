package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/events"
)

// Notifier receives events that should reach people outside the request.
type Notifier interface {
	Notify(ctx context.Context, event events.Event) error
}

type channels struct {
	email   bool
	webhook bool
}

var notificationChannels = map[events.EventType]channels{
	events.EventTicketCreated:       {email: true, webhook: true},
	events.EventTicketStatusChanged: {email: true, webhook: true},
	events.EventTicketClaimed:       {webhook: true},
	events.EventTicketAssigned:      {webhook: true},
	events.EventCommentAdded:        {email: true},
	events.EventTicketDeleted:       {webhook: true},
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	outbox     Notifier
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// UseOutbox hands deliveries to outbox instead of sending them inline.
func (n *NotificationService) UseOutbox(outbox Notifier) {
	n.outbox = outbox
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for eventType := range notificationChannels {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info("notification event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	if n.outbox != nil {
		return n.outbox.Notify(ctx, event)
	}
	n.Send(ctx, event)
	return nil
}

// Send delivers event on the channels configured for its type.
func (n *NotificationService) Send(ctx context.Context, event events.Event) {
	ch := notificationChannels[event.Type]
	if ch.email {
		n.sendEmailNotificationStub(ctx, event)
	}
	if ch.webhook {
		n.sendWebhookNotificationStub(ctx, event)
	}
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
