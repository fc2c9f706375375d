package bus

import "time"

// EventBus is a synchronous in-process pub/sub bus.
//
// Handlers subscribe by Event.Type(). Publish calls every active handler of that
// type in the publisher's goroutine, in subscription order, and joins handler
// errors. Handlers run while the publisher may hold the world lock: they must not
// block and must not take that lock themselves.
type EventBus interface {
	// Publish delivers event to every active subscriber of event.Type().
	Publish(event Event) error
	// Subscribe registers handler for eventType.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. Nil is ignored.
	Unsubscribe(sub Subscription) error
	// PublishWithFilters drops the event silently if any filter rejects it.
	PublishWithFilters(event Event, filters ...EventFilter) error
	// GetMetrics returns a snapshot of the bus counters.
	GetMetrics() EventBusMetrics
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
	Metadata() map[string]any
}

type (
	EventHandler func(event Event) error
	EventFilter  func(event Event) bool
)

// Subscription is a registered handler. Cancel is idempotent.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	Cancel() error
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	DroppedByFilters  uint64
	SubscribersActive uint64
}
