package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher invokes in-process handlers synchronously and, when a
// Redis client is configured, mirrors every event as JSON onto a channel so
// external consumers can follow the lifecycle.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler

	redis   *redis.Client
	channel string
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher. redisClient may be nil, in which case
// events stay in-process.
func NewDispatcher(redisClient *redis.Client, channel string, logger *zap.Logger) Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
		redis:     redisClient,
		channel:   channel,
		logger:    logger,
	}
}

// Publish invokes handlers for the given event and mirrors it to Redis.
// Handler and mirror failures never fail the publishing operation.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}

	if d.redis != nil {
		body, err := json.Marshal(event)
		if err != nil {
			d.logger.Warn("event marshal failed", zap.Error(err))
			return nil
		}
		if err := d.redis.Publish(ctx, d.channel, body).Err(); err != nil {
			d.logger.Warn("event publish to redis failed",
				zap.String("channel", d.channel),
				zap.Error(err))
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
