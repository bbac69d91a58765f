package bus

import (
	"time"

	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

const (
	ContentTypeJson = "application/json"

	// Default exchange that routes messages to the queue named by the routing key.
	DefaultExchange = ""
)

// Message published to or delivered by a Broker.
type Message struct {
	Id          string
	RoutingKey  string
	ContentType string
	Headers     map[string]any
	Body        []byte
}

type Delivery struct {
	Message
	Queue       string
	Redelivered bool
}

// Handle a delivery.
//
// The delivery is acked when nil is returned, otherwise the broker requeues it.
type DeliveryFunc func(d Delivery) error

// QueueSpec describes a durable queue.
//
// A queue is either bound to Exchange using Bindings, or is a delay queue (MessageTTL > 0)
// whose expired messages are routed to DeadLetterTo through the default exchange.
type QueueSpec struct {
	Name         string
	Exchange     string
	Bindings     []event.Pattern
	MessageTTL   time.Duration
	DeadLetterTo string
}

type ConsumerSpec struct {
	Queue       string
	Concurrency int
	Qos         int
	Handler     DeliveryFunc
}

// Broker is the transport used by EventBus.
//
// Declarations are remembered by the broker and replayed when the connection is re-established,
// they can be made before or after Connect.
type Broker interface {
	// Establish connection.
	Connect(rail core.Rail) error

	// Whether the broker is currently connected, publishing fails fast when it's not.
	Connected() bool

	// Declare durable topic exchange.
	DeclareExchange(rail core.Rail, name string) error

	// Declare durable queue and its bindings.
	DeclareQueue(rail core.Rail, q QueueSpec) error

	// Start consuming the queue.
	Consume(rail core.Rail, c ConsumerSpec) error

	// Publish the message and wait for confirmation, the wait is bounded by rail's context.
	Publish(rail core.Rail, exchange string, msg Message) error

	// Close connection, consumers are stopped.
	Close() error
}
