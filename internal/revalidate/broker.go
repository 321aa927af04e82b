// Package revalidate tracks staleness of cached catalog views.
//
// Every successful mutation bumps the generation of a scope (e.g. the
// product listing) and notifies subscribers, such as the SSE stream the
// editor listens on. Notification never blocks the mutation: a subscriber
// whose buffer is full misses the event and catches up through the
// generation number carried by the next one.
package revalidate

import (
	"context"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Event is a single invalidation signal.
type Event struct {
	Scope      string
	Generation uint64
}

// Subscription receives events for one scope. Close it when done.
type Subscription struct {
	C <-chan Event

	ch     chan Event
	scope  string
	broker *Broker
	once   sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.broker.unsubscribe(s) })
}

// Broker fans invalidation signals out to subscribers.
type Broker struct {
	buffer int

	mu          sync.Mutex
	generations map[string]uint64
	subscribers map[string]map[*Subscription]struct{}
}

// NewBroker creates a Broker whose subscriptions buffer up to buffer events.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{
		buffer:      buffer,
		generations: make(map[string]uint64),
		subscribers: make(map[string]map[*Subscription]struct{}),
	}
}

// Invalidate marks scope stale. It never blocks.
func (b *Broker) Invalidate(ctx context.Context, scope string) {
	b.mu.Lock()
	b.generations[scope]++
	ev := Event{Scope: scope, Generation: b.generations[scope]}

	var dropped int
	for sub := range b.subscribers[scope] {
		select {
		case sub.ch <- ev:
		default:
			dropped++
		}
	}
	delivered := len(b.subscribers[scope]) - dropped
	b.mu.Unlock()

	lg := zctx.From(ctx)
	lg.Debug("Scope invalidated",
		zap.String("scope", scope),
		zap.Uint64("generation", ev.Generation),
		zap.Int("delivered", delivered),
	)
	if dropped > 0 {
		lg.Warn("Slow invalidation subscribers skipped",
			zap.String("scope", scope),
			zap.Int("dropped", dropped),
		)
	}
}

// Generation returns how many times scope has been invalidated.
func (b *Broker) Generation(scope string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generations[scope]
}

// Subscribe registers for events on scope.
func (b *Broker) Subscribe(scope string) *Subscription {
	ch := make(chan Event, b.buffer)
	sub := &Subscription{C: ch, ch: ch, scope: scope, broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[scope] == nil {
		b.subscribers[scope] = make(map[*Subscription]struct{})
	}
	b.subscribers[scope][sub] = struct{}{}
	return sub
}

// Subscribers returns the number of live subscriptions on scope.
func (b *Broker) Subscribers(scope string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[scope])
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sub.scope]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.subscribers, sub.scope)
	}
	close(sub.ch)
}
