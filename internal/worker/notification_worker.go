package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/agriconnect/marketplace-service/internal/events"
	"github.com/agriconnect/marketplace-service/internal/service"
)

const queueSize = 256

// NotificationWorker moves notification delivery off the request path.
// Events are queued at publish time and drained by a single goroutine.
type NotificationWorker struct {
	notifications *service.NotificationService
	logger        *zap.Logger
	queue         chan events.Event
	done          chan struct{}
}

// StartNotificationWorker subscribes to all marketplace events and starts
// the drain goroutine. Stop the returned worker on shutdown.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	w := &NotificationWorker{
		notifications: notifications,
		logger:        logger,
		queue:         make(chan events.Event, queueSize),
		done:          make(chan struct{}),
	}
	for _, eventType := range []events.EventType{
		events.EventProductCreated,
		events.EventProductDeleted,
		events.EventOrderPlaced,
		events.EventOrderStatusChanged,
	} {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
	go w.run()
	return w
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full, event dropped",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
	}
	return nil
}

func (w *NotificationWorker) run() {
	defer close(w.done)
	for event := range w.queue {
		w.notifications.Handle(context.Background(), event)
	}
}

// Stop drains outstanding events and blocks until the worker exits.
func (w *NotificationWorker) Stop() {
	close(w.queue)
	<-w.done
}
