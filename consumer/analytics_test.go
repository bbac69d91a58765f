package consumer

import (
	"testing"
	"time"

	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

func TestAnalyticsSprintVelocity(t *testing.T) {
	rail := core.EmptyRail()
	store := &fakeAnalytics{}
	c := NewAnalyticsConsumer(store)

	e := event.SprintCompleted(event.SprintCompletedEvent{SprintId: "S1", ProjectId: "P1", Velocity: 23, CompletedItems: 8, IncompleteItems: 1}, testCtx)
	if err := c.Handle(rail, e); err != nil {
		t.Fatal(err)
	}

	if len(store.tracked) != 1 {
		t.Fatal(len(store.tracked))
	}
	tr := store.tracked[0]
	if tr.EventType != "pm.sprint.completed" || tr.EventId != e.Id() || tr.EntityId != "S1" || tr.ProjectId != "P1" {
		t.Fatalf("%+v", tr)
	}

	if len(store.velocity) != 1 {
		t.Fatal(len(store.velocity))
	}
	v := store.velocity[0]
	if v.Velocity != 23 || v.CompletedItems != 8 || v.IncompleteItems != 1 || v.SprintId != "S1" {
		t.Fatalf("%+v", v)
	}
	if v.CompletionRate != 0.889 {
		t.Fatal(v.CompletionRate)
	}
	if len(store.performance) != 0 {
		t.Fatal("unexpected performance record")
	}
}

func TestAnalyticsWorkOrderPerformance(t *testing.T) {
	rail := core.EmptyRail()
	store := &fakeAnalytics{}
	c := NewAnalyticsConsumer(store)

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	e := event.WorkOrderCompleted(event.WorkOrderCompletedEvent{
		WorkOrderId:      "WO-1",
		AssigneeId:       "u-1",
		StartedAt:        start,
		CompletedAt:      start.Add(2 * time.Hour),
		EstimatedMinutes: 90,
		QuantityPlanned:  100,
		QuantityProduced: 100,
	}, testCtx)
	if err := c.Handle(rail, e); err != nil {
		t.Fatal(err)
	}
	if len(store.performance) != 1 {
		t.Fatal(len(store.performance))
	}
	p := store.performance[0]
	if p.Duration != 2*time.Hour {
		t.Fatal(p.Duration)
	}
	// 0.6 * 0.75 + 0.4 * 1
	if p.Score != 85 {
		t.Fatal(p.Score)
	}
}

func TestPerformanceScore(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		d     event.WorkOrderCompletedEvent
		score float64
	}{
		{event.WorkOrderCompletedEvent{}, 100},
		{event.WorkOrderCompletedEvent{StartedAt: start, CompletedAt: start.Add(30 * time.Minute), EstimatedMinutes: 60}, 100},
		{event.WorkOrderCompletedEvent{StartedAt: start, CompletedAt: start.Add(4 * time.Hour), EstimatedMinutes: 60, QuantityPlanned: 10, QuantityProduced: 5}, 35},
		{event.WorkOrderCompletedEvent{QuantityPlanned: 10, QuantityProduced: 0}, 60},
	}
	for _, c := range cases {
		if v := PerformanceScore(c.d); v != c.score {
			t.Errorf("%+v, expected: %v, actual: %v", c.d, c.score, v)
		}
	}
}
