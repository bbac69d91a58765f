package consumer

import (
	"math"
	"time"

	"github.com/opsdesk/eventbus/bus"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

// AnalyticsConsumer records every event, and aggregates work order performance and sprint velocity.
type AnalyticsConsumer struct {
	store AnalyticsStore
}

func NewAnalyticsConsumer(store AnalyticsStore) *AnalyticsConsumer {
	return &AnalyticsConsumer{store: store}
}

func (c *AnalyticsConsumer) Subscription() bus.Subscription {
	return bus.Subscription{Queue: QueueAnalytics, Patterns: []event.Pattern{event.AllEvents}, Handler: c.Handle}
}

func (c *AnalyticsConsumer) Handle(rail core.Rail, e *event.Event) error {
	err := c.store.Track(rail, TrackedEvent{
		EventId:        e.Id(),
		EventType:      e.Type().String(),
		OrganizationId: e.OrganizationId(),
		UserId:         e.UserId(),
		CorrelationId:  e.CorrelationId(),
		EntityId:       entityId(e.Data()),
		ProjectId:      e.ProjectId(),
		Timestamp:      e.Timestamp(),
	})
	if err != nil {
		return core.WrapErrf(err, "failed to track event %v", e.Id())
	}

	switch d := e.Data().(type) {
	case event.WorkOrderCompletedEvent:
		p := WorkOrderPerformance{
			EventId:          e.Id(),
			OrganizationId:   e.OrganizationId(),
			WorkOrderId:      d.WorkOrderId,
			AssigneeId:       d.AssigneeId,
			Duration:         d.Duration(),
			EstimatedMinutes: d.EstimatedMinutes,
			Score:            PerformanceScore(d),
			CompletedAt:      d.CompletedAt,
		}
		if err := c.store.RecordPerformance(rail, p); err != nil {
			return core.WrapErrf(err, "failed to record performance of work order %v", d.WorkOrderId)
		}
		rail.Infof("Recorded performance of work order %v, duration: %v, score: %.1f", d.WorkOrderId, p.Duration, p.Score)

	case event.SprintCompletedEvent:
		v := SprintVelocity{
			EventId:         e.Id(),
			OrganizationId:  e.OrganizationId(),
			ProjectId:       d.ProjectId,
			SprintId:        d.SprintId,
			Velocity:        d.Velocity,
			CompletedItems:  d.CompletedItems,
			IncompleteItems: d.IncompleteItems,
			CompletionRate:  completionRate(d.CompletedItems, d.IncompleteItems),
		}
		if err := c.store.RecordVelocity(rail, v); err != nil {
			return core.WrapErrf(err, "failed to record velocity of sprint %v", d.SprintId)
		}
		rail.Infof("Recorded velocity of sprint %v, velocity: %d", d.SprintId, d.Velocity)
	}
	return nil
}

/*
Score of a completed work order, in [0, 100].

60% of the score is time efficiency (estimated / actual duration, capped at 1), the remaining 40% is
output (produced / planned quantity, capped at 1). A missing estimate or plan counts as fully met.
*/
func PerformanceScore(d event.WorkOrderCompletedEvent) float64 {
	timeScore := 1.0
	if dur := d.Duration(); d.EstimatedMinutes > 0 && dur > 0 {
		timeScore = math.Min(1, float64(d.EstimatedMinutes)*float64(time.Minute)/float64(dur))
	}
	outputScore := 1.0
	if d.QuantityPlanned > 0 {
		outputScore = math.Min(1, float64(d.QuantityProduced)/float64(d.QuantityPlanned))
	}
	return math.Round((0.6*timeScore+0.4*outputScore)*1000) / 10
}

func completionRate(completed int, incomplete int) float64 {
	total := completed + incomplete
	if total < 1 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 1000
}
