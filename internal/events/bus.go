// Package events implements an in-process publish/subscribe bus with typed topics.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/librisapp/libris-server/internal/id"
)

// defaultBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind starts losing events; delivery is at-most-once.
const defaultBuffer = 16

// Bus is a single-topic publish/subscribe channel carrying values of type T.
//
// Every subscriber receives its own ordered sequence of events published
// after it subscribed. There is no replay and no cross-subscriber ordering
// guarantee. Events are never persisted.
type Bus[T any] struct {
	logger *slog.Logger
	buffer int

	mu     sync.RWMutex
	subs   map[string]chan T
	closed bool
}

// NewBus creates a bus for a single topic.
func NewBus[T any](logger *slog.Logger) *Bus[T] {
	return &Bus[T]{
		logger: logger,
		buffer: defaultBuffer,
		subs:   make(map[string]chan T),
	}
}

// Subscribe registers a new subscriber and returns its event channel.
// The subscription ends when ctx is cancelled or the bus is closed;
// either way the returned channel is closed.
func (b *Bus[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, b.buffer)
	subID := id.MustGenerate("sub")

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	b.subs[subID] = ch
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Debug("subscriber registered", "subscriber_id", subID)
	}

	go func() {
		<-ctx.Done()
		b.unsubscribe(subID)
	}()

	return ch
}

// Publish delivers an event to every current subscriber.
// Slow subscribers with a full buffer miss the event rather than block.
func (b *Bus[T]) Publish(event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for subID, ch := range b.subs {
		select {
		case ch <- event:
		default:
			if b.logger != nil {
				b.logger.Warn("subscriber buffer full, dropping event", "subscriber_id", subID)
			}
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
// Publish and Subscribe become no-ops afterwards.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for subID, ch := range b.subs {
		close(ch)
		delete(b.subs, subID)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// unsubscribe removes a subscriber and closes its channel.
// Holding the write lock here excludes concurrent Publish sends, so the
// close cannot race a send.
func (b *Bus[T]) unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[subID]
	if !ok {
		return
	}
	delete(b.subs, subID)
	close(ch)

	if b.logger != nil {
		b.logger.Debug("subscriber removed", "subscriber_id", subID)
	}
}
