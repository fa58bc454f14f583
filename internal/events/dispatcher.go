package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventHandler consumes one published event.
type EventHandler func(context.Context, Event) error

// Dispatcher decouples ticket lifecycle changes from their observers.
// Publication is fire-and-forget from the dialogue's point of view: a
// failing handler is logged and never fails the turn that produced the
// event.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher invokes handlers synchronously in subscription order.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	logger    *zap.Logger
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
		logger:    logger,
	}
}

// Publish invokes every handler subscribed to the event's type. Handler
// errors are logged and swallowed so one broken observer cannot stall the
// rest.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
