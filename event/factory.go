package event

import (
	"time"

	"github.com/opsdesk/eventbus/util/idutil"
)

// Stamp the payload into a fully populated envelope.
//
// Only id and timestamp are generated, no I/O is performed.
func New[P Payload](data P, ctx Context) *Event {
	correlationId := ctx.CorrelationId
	if correlationId == "" {
		correlationId = idutil.New()
	}
	userId := ctx.UserId
	if userId == "" {
		userId = SystemUserId
	}
	return &Event{
		id:             idutil.New(),
		typ:            data.EventType(),
		timestamp:      time.Now().UTC(),
		organizationId: ctx.OrganizationId,
		userId:         userId,
		correlationId:  correlationId,
		data:           data,
	}
}

func WorkOrderCreated(data WorkOrderCreatedEvent, ctx Context) *Event     { return New(data, ctx) }
func WorkOrderAssigned(data WorkOrderAssignedEvent, ctx Context) *Event   { return New(data, ctx) }
func WorkOrderStarted(data WorkOrderStartedEvent, ctx Context) *Event     { return New(data, ctx) }
func WorkOrderCompleted(data WorkOrderCompletedEvent, ctx Context) *Event { return New(data, ctx) }
func WorkOrderOverdue(data WorkOrderOverdueEvent, ctx Context) *Event     { return New(data, ctx) }
func WorkOrderEscalated(data WorkOrderEscalatedEvent, ctx Context) *Event { return New(data, ctx) }
func WorkOrderCancelled(data WorkOrderCancelledEvent, ctx Context) *Event { return New(data, ctx) }

func WorkItemCreated(data WorkItemCreatedEvent, ctx Context) *Event           { return New(data, ctx) }
func WorkItemAssigned(data WorkItemAssignedEvent, ctx Context) *Event         { return New(data, ctx) }
func WorkItemTransitioned(data WorkItemTransitionedEvent, ctx Context) *Event { return New(data, ctx) }
func SprintCreated(data SprintCreatedEvent, ctx Context) *Event               { return New(data, ctx) }
func SprintStarted(data SprintStartedEvent, ctx Context) *Event               { return New(data, ctx) }
func SprintCompleted(data SprintCompletedEvent, ctx Context) *Event           { return New(data, ctx) }

func TicketCreated(data TicketCreatedEvent, ctx Context) *Event           { return New(data, ctx) }
func TicketAssigned(data TicketAssignedEvent, ctx Context) *Event         { return New(data, ctx) }
func TicketTransitioned(data TicketTransitionedEvent, ctx Context) *Event { return New(data, ctx) }
func TicketEscalated(data TicketEscalatedEvent, ctx Context) *Event       { return New(data, ctx) }
func TicketResolved(data TicketResolvedEvent, ctx Context) *Event         { return New(data, ctx) }
