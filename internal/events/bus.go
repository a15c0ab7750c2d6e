// Package events dispatches engine notifications to in-process listeners
// and forwards them to a watermill publisher.
package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Event is anything published on a Bus.
type Event interface {
	Kind() string
}

// Cancellable events can be vetoed by a listener. The publisher checks
// Cancelled after dispatch.
type Cancellable interface {
	Event
	Cancelled() bool
	SetCancelled(bool)
}

// Cancel is embedded by cancellable events.
type Cancel struct {
	cancelled bool
}

func (c *Cancel) Cancelled() bool     { return c.cancelled }
func (c *Cancel) SetCancelled(v bool) { c.cancelled = v }

// Listener receives every event published on a bus.
type Listener func(ctx context.Context, e Event)

type subscription struct {
	id int
	fn Listener
}

// Bus delivers events synchronously, to listeners in subscription order.
// A panicking listener is logged and skipped.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
			b.mu.Unlock()
		})
	}
}

// On subscribes a listener for a single event type.
func On[E Event](b *Bus, fn func(ctx context.Context, e E)) (unsubscribe func()) {
	return b.Subscribe(func(ctx context.Context, e Event) {
		if typed, ok := e.(E); ok {
			fn(ctx, typed)
		}
	})
}

// Publish delivers e to every listener before returning.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(ctx, s, e)
	}
}

func (b *Bus) deliver(ctx context.Context, s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked", "kind", e.Kind(), "panic", r)
		}
	}()
	s.fn(ctx, e)
}
