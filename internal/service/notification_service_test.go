package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/events"
)

type recordingOutbox struct {
	events []events.Event
}

func (o *recordingOutbox) Notify(_ context.Context, event events.Event) error {
	o.events = append(o.events, event)
	return nil
}

func TestNotificationService_RoutesToOutbox(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	svc := NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{EmailFrom: "noreply@example.com"})
	outbox := &recordingOutbox{}
	svc.UseOutbox(outbox)
	svc.RegisterHandlers()

	ctx := context.Background()
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: "t1"})
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventTicketUpdated, TicketID: "t1"})
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventCommentAdded, TicketID: "t1"})

	if len(outbox.events) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(outbox.events))
	}
	if outbox.events[0].Type != events.EventTicketCreated || outbox.events[1].Type != events.EventCommentAdded {
		t.Errorf("Unexpected notification order: %v, %v", outbox.events[0].Type, outbox.events[1].Type)
	}
}

func TestNotificationService_SendWithoutChannels(t *testing.T) {
	svc := NewNotificationService(nil, zap.NewNop(), config.NotificationConfig{})
	svc.RegisterHandlers()
	svc.Send(context.Background(), events.Event{Type: events.EventTicketDeleted, TicketID: "t1"})
}
