package bus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type simpleEvent struct {
	typeStr string
	source  string
	ts      time.Time
	data    any
	meta    map[string]any
}

func (e simpleEvent) Type() string             { return e.typeStr }
func (e simpleEvent) Source() string           { return e.source }
func (e simpleEvent) Timestamp() time.Time     { return e.ts }
func (e simpleEvent) Data() any                { return e.data }
func (e simpleEvent) Metadata() map[string]any { return e.meta }

// NewEvent creates a basic Event.
func NewEvent(typ, src string, data any, metadata map[string]any) Event {
	return simpleEvent{typeStr: typ, source: src, ts: time.Now(), data: data, meta: metadata}
}

type subscription struct {
	id        string
	eventType string
	handler   EventHandler
	bus       *inMemoryBus
	active    bool
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) EventType() string { return s.eventType }

func (s *subscription) IsActive() bool {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	return s.active
}

func (s *subscription) Cancel() error {
	s.bus.remove(s)
	return nil
}

type inMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]*subscription
	metrics  EventBusMetrics
}

// New creates an empty EventBus.
func New() EventBus {
	return &inMemoryBus{
		handlers: make(map[string][]*subscription),
	}
}

func (b *inMemoryBus) Publish(event Event) error {
	if event == nil {
		return errors.New("bus: nil event")
	}

	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.handlers[event.Type()]))
	subs = append(subs, b.handlers[event.Type()]...)
	b.metrics.Published++
	b.mu.Unlock()

	var all error
	delivered := 0
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		delivered++
		if err := s.handler(event); err != nil {
			all = errors.Join(all, fmt.Errorf("%s handler %s: %w", event.Type(), s.id, err))
		}
	}

	b.mu.Lock()
	b.metrics.DeliveredHandlers += uint64(delivered)
	if all != nil {
		b.metrics.Errors++
	}
	b.mu.Unlock()

	return all
}

func (b *inMemoryBus) PublishWithFilters(event Event, filters ...EventFilter) error {
	for _, f := range filters {
		if !f(event) {
			b.mu.Lock()
			b.metrics.DroppedByFilters++
			b.mu.Unlock()
			return nil
		}
	}
	return b.Publish(event)
}

func (b *inMemoryBus) Subscribe(eventType string, handler EventHandler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("bus: nil handler")
	}

	s := &subscription{
		id:        uuid.NewString(),
		eventType: eventType,
		handler:   handler,
		bus:       b,
		active:    true,
	}

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], s)
	b.metrics.SubscribersActive++
	b.mu.Unlock()

	return s, nil
}

func (b *inMemoryBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (b *inMemoryBus) GetMetrics() EventBusMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

func (b *inMemoryBus) remove(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	b.metrics.SubscribersActive--

	subs := b.handlers[s.eventType]
	for i, candidate := range subs {
		if candidate == s {
			b.handlers[s.eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}
