package consumer

import (
	"github.com/opsdesk/eventbus/bus"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

// Queue names, other deployments must use the same names.
const (
	QueueNotifications      = "notifications"
	QueueAnalytics          = "analytics"
	QueueSlaMonitor         = "sla-monitor"
	QueueWebSocketBroadcast = "websocket-broadcast"
)

// Group is a consumer group with its own durable queue.
type Group interface {
	Subscription() bus.Subscription
}

type Subscriber interface {
	Subscribe(rail core.Rail, s bus.Subscription) error
}

// Subscribe the consumer groups.
func Register(rail core.Rail, s Subscriber, groups ...Group) error {
	for _, g := range groups {
		if err := s.Subscribe(rail, g.Subscription()); err != nil {
			return err
		}
	}
	return nil
}

// Id of the entity that the event is about.
func entityId(p event.Payload) string {
	switch d := p.(type) {
	case event.WorkOrderCreatedEvent:
		return d.WorkOrderId
	case event.WorkOrderAssignedEvent:
		return d.WorkOrderId
	case event.WorkOrderStartedEvent:
		return d.WorkOrderId
	case event.WorkOrderCompletedEvent:
		return d.WorkOrderId
	case event.WorkOrderOverdueEvent:
		return d.WorkOrderId
	case event.WorkOrderEscalatedEvent:
		return d.WorkOrderId
	case event.WorkOrderCancelledEvent:
		return d.WorkOrderId
	case event.WorkItemCreatedEvent:
		return d.WorkItemId
	case event.WorkItemAssignedEvent:
		return d.WorkItemId
	case event.WorkItemTransitionedEvent:
		return d.WorkItemId
	case event.SprintCreatedEvent:
		return d.SprintId
	case event.SprintStartedEvent:
		return d.SprintId
	case event.SprintCompletedEvent:
		return d.SprintId
	case event.TicketCreatedEvent:
		return d.TicketId
	case event.TicketAssignedEvent:
		return d.TicketId
	case event.TicketTransitionedEvent:
		return d.TicketId
	case event.TicketEscalatedEvent:
		return d.TicketId
	case event.TicketResolvedEvent:
		return d.TicketId
	}
	return ""
}
