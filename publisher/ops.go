package publisher

import (
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

// Ops publishes work order events.
type Ops struct {
	base
}

func NewOps(pub EventPublisher) *Ops {
	return &Ops{base{pub: pub}}
}

func (o *Ops) WorkOrderCreated(rail core.Rail, data event.WorkOrderCreatedEvent, ctx event.Context) bool {
	return o.publish(rail, event.WorkOrderCreated(data, ctx), normal)
}

func (o *Ops) WorkOrderAssigned(rail core.Rail, data event.WorkOrderAssignedEvent, ctx event.Context) bool {
	return o.publish(rail, event.WorkOrderAssigned(data, ctx), normal)
}

func (o *Ops) WorkOrderStarted(rail core.Rail, data event.WorkOrderStartedEvent, ctx event.Context) bool {
	return o.publish(rail, event.WorkOrderStarted(data, ctx), normal)
}

func (o *Ops) WorkOrderCompleted(rail core.Rail, data event.WorkOrderCompletedEvent, ctx event.Context) bool {
	return o.publish(rail, event.WorkOrderCompleted(data, ctx), normal)
}

func (o *Ops) WorkOrderOverdue(rail core.Rail, data event.WorkOrderOverdueEvent, ctx event.Context) bool {
	return o.publish(rail, event.WorkOrderOverdue(data, ctx), high)
}

func (o *Ops) WorkOrderEscalated(rail core.Rail, data event.WorkOrderEscalatedEvent, ctx event.Context) bool {
	return o.publish(rail, event.WorkOrderEscalated(data, ctx), high)
}

func (o *Ops) WorkOrderCancelled(rail core.Rail, data event.WorkOrderCancelledEvent, ctx event.Context) bool {
	return o.publish(rail, event.WorkOrderCancelled(data, ctx), normal)
}
