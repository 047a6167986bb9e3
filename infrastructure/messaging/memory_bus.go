package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ckg-backend/domain/events"
	pkgerrors "ckg-backend/pkg/errors"
)

// MemoryEventBus distributes domain events to in-process subscribers.
// Publish runs every subscriber synchronously before returning, which is
// what lets a command handler know its side effects (cache invalidation
// in particular) have completed by the time it returns.
type MemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]func(ctx context.Context, event events.DomainEvent) error
	logger      *zap.Logger
}

// NewMemoryEventBus creates a new in-process event bus
func NewMemoryEventBus(logger *zap.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		subscribers: make(map[string][]func(ctx context.Context, event events.DomainEvent) error),
		logger:      logger,
	}
}

// Subscribe registers a handler for an event type
func (b *MemoryEventBus) Subscribe(eventType string, handler func(ctx context.Context, event events.DomainEvent) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish delivers the event to every subscriber of its type. The first
// subscriber error aborts delivery and is returned to the publisher.
func (b *MemoryEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.mu.RLock()
	handlers := b.subscribers[event.GetEventType()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Error("event subscriber failed",
				zap.String("event_type", event.GetEventType()),
				zap.Error(err),
			)
			return pkgerrors.Wrap(err, "event subscriber failed")
		}
	}

	return nil
}
