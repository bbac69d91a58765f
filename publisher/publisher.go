// Package publisher provides the domain facing side of the event bus.
//
// Each domain has its own publisher with one method per event kind. Methods never fail
// the caller's business operation, they only report whether the broker accepted the event.
package publisher

import (
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

// EventPublisher is implemented by *bus.EventBus.
type EventPublisher interface {
	PublishErr(rail core.Rail, e *event.Event) error
}

type severity int

const (
	normal severity = iota
	high
)

type base struct {
	pub EventPublisher
}

func (b base) publish(rail core.Rail, e *event.Event, s severity) bool {
	if b.pub == nil {
		rail.Errorf("Event publisher is not configured, event %v (%v) discarded", e.Id(), e.Type())
		return false
	}
	if err := b.pub.PublishErr(rail, e); err != nil {
		rail.Errorf("Failed to publish event %v (%v), org: %v, correlationId: %v, %v",
			e.Id(), e.Type(), e.OrganizationId(), e.CorrelationId(), err)
		return false
	}
	if s == high {
		rail.Warnf("Published event %v (%v), org: %v, correlationId: %v", e.Id(), e.Type(), e.OrganizationId(), e.CorrelationId())
	} else {
		rail.Infof("Published event %v (%v), org: %v, correlationId: %v", e.Id(), e.Type(), e.OrganizationId(), e.CorrelationId())
	}
	return true
}
