package publisher

import (
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

// ServiceDesk publishes ticket events.
type ServiceDesk struct {
	base
}

func NewServiceDesk(pub EventPublisher) *ServiceDesk {
	return &ServiceDesk{base{pub: pub}}
}

func (s *ServiceDesk) TicketCreated(rail core.Rail, data event.TicketCreatedEvent, ctx event.Context) bool {
	return s.publish(rail, event.TicketCreated(data, ctx), normal)
}

func (s *ServiceDesk) TicketAssigned(rail core.Rail, data event.TicketAssignedEvent, ctx event.Context) bool {
	return s.publish(rail, event.TicketAssigned(data, ctx), normal)
}

func (s *ServiceDesk) TicketTransitioned(rail core.Rail, data event.TicketTransitionedEvent, ctx event.Context) bool {
	return s.publish(rail, event.TicketTransitioned(data, ctx), normal)
}

func (s *ServiceDesk) TicketEscalated(rail core.Rail, data event.TicketEscalatedEvent, ctx event.Context) bool {
	return s.publish(rail, event.TicketEscalated(data, ctx), high)
}

func (s *ServiceDesk) TicketResolved(rail core.Rail, data event.TicketResolvedEvent, ctx event.Context) bool {
	return s.publish(rail, event.TicketResolved(data, ctx), normal)
}
