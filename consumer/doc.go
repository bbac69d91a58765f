// Package consumer implements the consumer groups of the event bus.
//
// Each group owns a durable queue bound to the topic exchange and talks to the outside world
// through the ports declared in ports.go.
package consumer
