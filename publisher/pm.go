package publisher

import (
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

// PM publishes project management events.
type PM struct {
	base
}

func NewPM(pub EventPublisher) *PM {
	return &PM{base{pub: pub}}
}

func (p *PM) WorkItemCreated(rail core.Rail, data event.WorkItemCreatedEvent, ctx event.Context) bool {
	return p.publish(rail, event.WorkItemCreated(data, ctx), normal)
}

func (p *PM) WorkItemAssigned(rail core.Rail, data event.WorkItemAssignedEvent, ctx event.Context) bool {
	return p.publish(rail, event.WorkItemAssigned(data, ctx), normal)
}

func (p *PM) WorkItemTransitioned(rail core.Rail, data event.WorkItemTransitionedEvent, ctx event.Context) bool {
	return p.publish(rail, event.WorkItemTransitioned(data, ctx), normal)
}

func (p *PM) SprintCreated(rail core.Rail, data event.SprintCreatedEvent, ctx event.Context) bool {
	return p.publish(rail, event.SprintCreated(data, ctx), normal)
}

func (p *PM) SprintStarted(rail core.Rail, data event.SprintStartedEvent, ctx event.Context) bool {
	return p.publish(rail, event.SprintStarted(data, ctx), normal)
}

func (p *PM) SprintCompleted(rail core.Rail, data event.SprintCompletedEvent, ctx event.Context) bool {
	return p.publish(rail, event.SprintCompleted(data, ctx), normal)
}
