package event

import (
	"sort"
	"strings"
)

// Type of a domain event, '<domain>.<entity>.<verb>', it's also the routing key.
type Type string

const (
	DomainOps         = "ops"
	DomainPM          = "pm"
	DomainServiceDesk = "sd"
)

// ops
const (
	TypeWorkOrderCreated   Type = "ops.work_order.created"
	TypeWorkOrderAssigned  Type = "ops.work_order.assigned"
	TypeWorkOrderStarted   Type = "ops.work_order.started"
	TypeWorkOrderCompleted Type = "ops.work_order.completed"
	TypeWorkOrderOverdue   Type = "ops.work_order.overdue"
	TypeWorkOrderEscalated Type = "ops.work_order.escalated"
	TypeWorkOrderCancelled Type = "ops.work_order.cancelled"
)

// pm
const (
	TypeWorkItemCreated      Type = "pm.work_item.created"
	TypeWorkItemAssigned     Type = "pm.work_item.assigned"
	TypeWorkItemTransitioned Type = "pm.work_item.transitioned"
	TypeSprintCreated        Type = "pm.sprint.created"
	TypeSprintStarted        Type = "pm.sprint.started"
	TypeSprintCompleted      Type = "pm.sprint.completed"
)

// sd
const (
	TypeTicketCreated      Type = "sd.ticket.created"
	TypeTicketAssigned     Type = "sd.ticket.assigned"
	TypeTicketTransitioned Type = "sd.ticket.transitioned"
	TypeTicketEscalated    Type = "sd.ticket.escalated"
	TypeTicketResolved     Type = "sd.ticket.resolved"
)

type payloadDecoder func(data []byte) (Payload, error)

// closed registry, a type that is not declared here can neither be published nor decoded.
var registry = map[Type]payloadDecoder{
	TypeWorkOrderCreated:   decoder[WorkOrderCreatedEvent](),
	TypeWorkOrderAssigned:  decoder[WorkOrderAssignedEvent](),
	TypeWorkOrderStarted:   decoder[WorkOrderStartedEvent](),
	TypeWorkOrderCompleted: decoder[WorkOrderCompletedEvent](),
	TypeWorkOrderOverdue:   decoder[WorkOrderOverdueEvent](),
	TypeWorkOrderEscalated: decoder[WorkOrderEscalatedEvent](),
	TypeWorkOrderCancelled: decoder[WorkOrderCancelledEvent](),

	TypeWorkItemCreated:      decoder[WorkItemCreatedEvent](),
	TypeWorkItemAssigned:     decoder[WorkItemAssignedEvent](),
	TypeWorkItemTransitioned: decoder[WorkItemTransitionedEvent](),
	TypeSprintCreated:        decoder[SprintCreatedEvent](),
	TypeSprintStarted:        decoder[SprintStartedEvent](),
	TypeSprintCompleted:      decoder[SprintCompletedEvent](),

	TypeTicketCreated:      decoder[TicketCreatedEvent](),
	TypeTicketAssigned:     decoder[TicketAssignedEvent](),
	TypeTicketTransitioned: decoder[TicketTransitionedEvent](),
	TypeTicketEscalated:    decoder[TicketEscalatedEvent](),
	TypeTicketResolved:     decoder[TicketResolvedEvent](),
}

// Check whether the type is declared in the registry.
func (t Type) Registered() bool {
	_, ok := registry[t]
	return ok
}

// Domain segment of the type, e.g., 'ops'.
func (t Type) Domain() string {
	s := string(t)
	if i := strings.IndexByte(s, '.'); i > -1 {
		return s[:i]
	}
	return s
}

// Verb segment of the type, e.g., 'created'.
func (t Type) Verb() string {
	s := string(t)
	return s[strings.LastIndexByte(s, '.')+1:]
}

func (t Type) String() string {
	return string(t)
}

// All declared types, sorted.
func Types() []Type {
	l := make([]Type, 0, len(registry))
	for t := range registry {
		l = append(l, t)
	}
	sort.Slice(l, func(i, j int) bool { return l[i] < l[j] })
	return l
}
