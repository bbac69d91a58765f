package event

import (
	"testing"
	"time"
)

var testCtx = Context{OrganizationId: "org-1", UserId: "u-1"}

func TestFactoryStampsEnvelope(t *testing.T) {
	before := time.Now().UTC()
	e := WorkOrderCreated(WorkOrderCreatedEvent{WorkOrderId: "WO-1", ProductName: "Widget", Priority: PriorityHigh}, testCtx)

	if e.Type() != TypeWorkOrderCreated {
		t.Fatal(e.Type())
	}
	if !e.Type().Registered() {
		t.Fatalf("type %v is not registered", e.Type())
	}
	if e.Id() == "" || e.CorrelationId() == "" {
		t.Fatalf("id: %v, correlationId: %v", e.Id(), e.CorrelationId())
	}
	if e.Timestamp().Before(before) {
		t.Fatal(e.Timestamp())
	}
	if e.OrganizationId() != "org-1" || e.UserId() != "u-1" {
		t.Fatalf("%+v", e.Context())
	}
	if d, ok := e.Data().(WorkOrderCreatedEvent); !ok || d.WorkOrderId != "WO-1" {
		t.Fatalf("%#v", e.Data())
	}
}

func TestFactoryIdsUnique(t *testing.T) {
	data := SprintStartedEvent{SprintId: "S1", ProjectId: "P1"}
	seen := map[string]struct{}{}
	for i := 0; i < 500; i++ {
		e := SprintStarted(data, testCtx)
		if _, ok := seen[e.Id()]; ok {
			t.Fatalf("duplicated id %v", e.Id())
		}
		seen[e.Id()] = struct{}{}
	}
}

func TestFactoryPropagatesCorrelationId(t *testing.T) {
	ctx := Context{OrganizationId: "org-1", CorrelationId: "req-42"}
	e := TicketCreated(TicketCreatedEvent{TicketId: "T-1"}, ctx)
	if e.CorrelationId() != "req-42" {
		t.Fatal(e.CorrelationId())
	}
	if e.UserId() != SystemUserId {
		t.Fatal(e.UserId())
	}

	// follow-up event in the same causal chain
	f := TicketResolved(TicketResolvedEvent{TicketId: "T-1"}, e.Context())
	if f.CorrelationId() != "req-42" {
		t.Fatal(f.CorrelationId())
	}
}

func TestEveryPayloadRegistered(t *testing.T) {
	payloads := []Payload{
		WorkOrderCreatedEvent{}, WorkOrderAssignedEvent{}, WorkOrderStartedEvent{}, WorkOrderCompletedEvent{},
		WorkOrderOverdueEvent{}, WorkOrderEscalatedEvent{}, WorkOrderCancelledEvent{},
		WorkItemCreatedEvent{}, WorkItemAssignedEvent{}, WorkItemTransitionedEvent{},
		SprintCreatedEvent{}, SprintStartedEvent{}, SprintCompletedEvent{},
		TicketCreatedEvent{}, TicketAssignedEvent{}, TicketTransitionedEvent{}, TicketEscalatedEvent{}, TicketResolvedEvent{},
	}
	if len(payloads) != len(Types()) {
		t.Fatalf("payloads: %d, registered types: %d", len(payloads), len(Types()))
	}
	for _, p := range payloads {
		if !p.EventType().Registered() {
			t.Errorf("%T -> %v not registered", p, p.EventType())
		}
	}
	if Type("ops.work_order.exploded").Registered() {
		t.Fatal("undeclared type should not be registered")
	}
}

func TestTypeSegments(t *testing.T) {
	if v := TypeWorkItemTransitioned.Domain(); v != DomainPM {
		t.Fatal(v)
	}
	if v := TypeWorkItemTransitioned.Verb(); v != "transitioned" {
		t.Fatal(v)
	}
}

func TestWorkOrderDuration(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	c := WorkOrderCompletedEvent{StartedAt: start, CompletedAt: start.Add(95 * time.Minute)}
	if c.Duration() != 95*time.Minute {
		t.Fatal(c.Duration())
	}
	if (WorkOrderCompletedEvent{CompletedAt: start}).Duration() != 0 {
		t.Fatal("unknown start should yield zero duration")
	}
}
