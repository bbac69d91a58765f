package publisher

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opsdesk/eventbus/bus"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

type stubPublisher struct {
	mu     sync.Mutex
	err    error
	events []*event.Event
}

func (s *stubPublisher) PublishErr(rail core.Rail, e *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

var ctx = event.Context{OrganizationId: "org-1", UserId: "u-1", CorrelationId: "req-1"}

func TestPublishersBuildEnvelopes(t *testing.T) {
	rail := core.EmptyRail()
	stub := &stubPublisher{}
	ops, pm, sd := NewOps(stub), NewPM(stub), NewServiceDesk(stub)

	ok := ops.WorkOrderOverdue(rail, event.WorkOrderOverdueEvent{WorkOrderId: "WO-1", OverdueMinutes: 30}, ctx) &&
		pm.SprintCompleted(rail, event.SprintCompletedEvent{SprintId: "S1", ProjectId: "P1", Velocity: 23}, ctx) &&
		sd.TicketResolved(rail, event.TicketResolvedEvent{TicketId: "T1"}, ctx)
	if !ok {
		t.Fatal("not published")
	}

	expected := []event.Type{event.TypeWorkOrderOverdue, event.TypeSprintCompleted, event.TypeTicketResolved}
	if len(stub.events) != len(expected) {
		t.Fatal(len(stub.events))
	}
	for i, e := range stub.events {
		if e.Type() != expected[i] {
			t.Errorf("expected: %v, actual: %v", expected[i], e.Type())
		}
		if e.CorrelationId() != "req-1" || e.OrganizationId() != "org-1" {
			t.Errorf("context not propagated, %+v", e.Context())
		}
	}
}

func TestPublishFailureReturnsFalse(t *testing.T) {
	stub := &stubPublisher{err: core.ErrBrokerUnavailable.New("not connected")}
	if NewPM(stub).WorkItemTransitioned(core.EmptyRail(), event.WorkItemTransitionedEvent{WorkItemId: "W1"}, ctx) {
		t.Fatal("should return false")
	}

	stub.err = errors.New("boom")
	if NewOps(stub).WorkOrderCreated(core.EmptyRail(), event.WorkOrderCreatedEvent{WorkOrderId: "WO-1"}, ctx) {
		t.Fatal("should return false")
	}

	if NewServiceDesk(nil).TicketCreated(core.EmptyRail(), event.TicketCreatedEvent{TicketId: "T1"}, ctx) {
		t.Fatal("should return false without publisher")
	}
}

func TestPublishThroughEventBus(t *testing.T) {
	rail := core.EmptyRail()
	broker := bus.NewMemBroker()
	eb := bus.New(broker, bus.Config{Exchange: "itsm.events", ConfirmTimeout: time.Second})

	got := make(chan *event.Event, 1)
	_ = eb.Subscribe(rail, bus.Subscription{
		Queue:    "notifications",
		Patterns: []event.Pattern{event.Exact(event.TypeWorkOrderEscalated)},
		Handler: func(rail core.Rail, e *event.Event) error {
			got <- e
			return nil
		},
	})
	if err := eb.Init(rail); err != nil {
		t.Fatal(err)
	}
	defer eb.Shutdown(rail)

	ops := NewOps(eb)
	if !ops.WorkOrderEscalated(rail, event.WorkOrderEscalatedEvent{WorkOrderId: "WO-7", EscalatedToId: "sup-1", Level: 2}, ctx) {
		t.Fatal("not published")
	}
	select {
	case e := <-got:
		d, ok := e.Data().(event.WorkOrderEscalatedEvent)
		if !ok || d.EscalatedToId != "sup-1" || d.Level != 2 {
			t.Fatalf("%#v", e.Data())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}

	broker.SetConnected(false)
	if ops.WorkOrderCancelled(rail, event.WorkOrderCancelledEvent{WorkOrderId: "WO-7"}, ctx) {
		t.Fatal("should fail fast while disconnected")
	}
}
