package bus

// EventBus is an in-process pub/sub bus for race frames and race events.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type(); the Wildcard type receives everything.
// - Topics: handlers can subscribe within a topic (one race per topic). The default topic is "".
// - Synchronous delivery: Publish runs handlers in the caller goroutine, in subscription order.
// - Error aggregation: handler errors are joined and returned from Publish/PublishBatch.
// - Observability: metrics are always counted; observers get per-delivery callbacks.
//
// All methods are safe for concurrent use. Delivery order is deterministic for a
// fixed sequence of Subscribe calls.
type EventBus interface {
	// Publish delivers the event to every active subscriber of event.Type() and of
	// Wildcard in the default topic.
	Publish(event Event) error
	// Subscribe registers a handler in the default topic.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Nil is a no-op.
	Unsubscribe(Subscription) error

	// SubscribeTopic registers a handler for eventType within a topic.
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// PublishToTopic publishes to a specific topic.
	PublishToTopic(topic string, event Event) error
	// PublishBatch publishes events to a topic in order and aggregates errors.
	PublishBatch(topic string, events ...Event) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	GetMetrics() EventBusMetrics
	// GetTopics returns known topics sorted by name.
	GetTopics() []TopicInfo
}

// Wildcard subscribes to every event type of a topic.
const Wildcard = "*"

// Event is an immutable message transported by the EventBus.
//
// Fields:
// - Type: routing key used to select handlers.
// - Source: identifier of the publisher, usually a race id.
// - Time: simulated seconds at which the event happened.
// - Data: payload for consumers.
type Event interface {
	Type() string
	Source() string
	Time() float64
	Data() any
}

type (
	// EventHandler is invoked per delivered event. A returned error is
	// aggregated into the Publish result; it never stops delivery.
	EventHandler func(event Event) error
)

// Subscription represents a registered handler bound to an event type.
type Subscription interface {
	ID() string
	Topic() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// EventBusObserver is notified about deliveries. Observers should return quickly.
type EventBusObserver interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error)
}

// EventBusMetrics is a snapshot of bus counters.
type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
	Topics            uint64
}

// TopicInfo is a snapshot of one topic.
type TopicInfo struct {
	Name string
	Subs int
}
