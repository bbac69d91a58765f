// Package bus is the publish/subscribe core of the event bus.
//
// EventBus publishes encoded events to a topic exchange using the event type as routing key
// and subscribes handlers to durable queues bound by event.Pattern. The transport is
// abstracted by Broker, see rabbitmq.Broker for RabbitMQ and MemBroker for the in-memory one.
//
// Failed deliveries are redelivered through '<queue>.redeliver' with a delay, and moved to
// '<queue>.dead-letter' once the retry budget is exhausted.
package bus
