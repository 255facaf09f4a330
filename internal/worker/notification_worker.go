package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/service"
)

var (
	// ErrQueueFull is returned when the worker cannot accept more events.
	ErrQueueFull = errors.New("notification queue full")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("notification worker stopped")
)

// Sender performs the actual delivery of one event.
type Sender interface {
	Send(ctx context.Context, event events.Event)
}

// NotificationWorker delivers notifications off the request path.
type NotificationWorker struct {
	sender  Sender
	logger  *zap.Logger
	queue   chan events.Event
	timeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewNotificationWorker builds a worker with a bounded queue.
func NewNotificationWorker(sender Sender, logger *zap.Logger, queueSize int) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &NotificationWorker{
		sender:  sender,
		logger:  logger,
		queue:   make(chan events.Event, queueSize),
		timeout: 10 * time.Second,
	}
}

// StartNotificationWorker wires the notification service to the dispatcher
// and starts draining the queue.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger, queueSize int) *NotificationWorker {
	if notificationService == nil {
		return nil
	}
	w := NewNotificationWorker(notificationService, logger, queueSize)
	notificationService.UseOutbox(w)
	notificationService.RegisterHandlers()
	w.Start()
	return w
}

// Notify enqueues the event without blocking the caller.
func (w *NotificationWorker) Notify(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the delivery loop.
func (w *NotificationWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for event := range w.queue {
			w.deliver(event)
		}
	}()
}

// Stop drains pending events and waits for the loop to exit.
func (w *NotificationWorker) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *NotificationWorker) deliver(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("notification delivery panicked",
				zap.String("event_id", event.ID),
				zap.Any("panic", r))
		}
	}()
	w.sender.Send(ctx, event)
}
