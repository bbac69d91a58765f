package consumer

import (
	"errors"
	"testing"
	"time"

	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

func TestSlaMet(t *testing.T) {
	rail := core.EmptyRail()
	store := NewMemTimerStore()
	alerter := &fakeAlerter{}
	m := NewSlaMonitor(store, alerter, DefaultSlaPolicy())

	created := event.WorkOrderCreated(event.WorkOrderCreatedEvent{WorkOrderId: "WO-1", Priority: event.PriorityHigh}, testCtx)
	if err := m.Handle(rail, created); err != nil {
		t.Fatal(err)
	}
	timer, ok, _ := store.Get(rail, KindWorkOrder, "WO-1")
	if !ok || timer.Status != TimerRunning {
		t.Fatalf("%+v", timer)
	}
	if timer.DueAt.Sub(timer.StartedAt) != 8*time.Hour {
		t.Fatal(timer.DueAt.Sub(timer.StartedAt))
	}

	completed := event.WorkOrderCompleted(event.WorkOrderCompletedEvent{WorkOrderId: "WO-1", CompletedAt: created.Timestamp().Add(time.Hour)}, testCtx)
	if err := m.Handle(rail, completed); err != nil {
		t.Fatal(err)
	}
	timer, _, _ = store.Get(rail, KindWorkOrder, "WO-1")
	if timer.Status != TimerMet {
		t.Fatal(timer.Status)
	}
	if alerter.count() != 0 {
		t.Fatal("should not alert")
	}
}

func TestSlaBreachedOnLateCompletion(t *testing.T) {
	rail := core.EmptyRail()
	store := NewMemTimerStore()
	alerter := &fakeAlerter{}
	m := NewSlaMonitor(store, alerter, DefaultSlaPolicy())

	created := event.TicketCreated(event.TicketCreatedEvent{TicketId: "T-1", Priority: event.PriorityCritical}, testCtx)
	_ = m.Handle(rail, created)
	resolved := event.TicketResolved(event.TicketResolvedEvent{TicketId: "T-1", ResolvedAt: created.Timestamp().Add(5 * time.Hour)}, testCtx)
	if err := m.Handle(rail, resolved); err != nil {
		t.Fatal(err)
	}

	timer, _, _ := store.Get(rail, KindTicket, "T-1")
	if timer.Status != TimerBreached || !timer.Alerted {
		t.Fatalf("%+v", timer)
	}
	if alerter.count() != 1 {
		t.Fatal(alerter.count())
	}

	// redelivered completion
	_ = m.Handle(rail, resolved)
	if alerter.count() != 1 {
		t.Fatal(alerter.count())
	}
}

func TestSlaCompletionBeforeCreation(t *testing.T) {
	rail := core.EmptyRail()
	store := NewMemTimerStore()
	alerter := &fakeAlerter{}
	m := NewSlaMonitor(store, alerter, DefaultSlaPolicy())

	created := event.WorkOrderCreated(event.WorkOrderCreatedEvent{WorkOrderId: "WO-2", Priority: event.PriorityLow}, testCtx)
	completed := event.WorkOrderCompleted(event.WorkOrderCompletedEvent{WorkOrderId: "WO-2", CompletedAt: created.Timestamp().Add(2 * time.Hour)}, testCtx)

	if err := m.Handle(rail, completed); err != nil {
		t.Fatal(err)
	}
	timer, ok, _ := store.Get(rail, KindWorkOrder, "WO-2")
	if !ok || timer.Status != TimerAwaitingStart {
		t.Fatalf("%+v", timer)
	}

	if err := m.Handle(rail, created); err != nil {
		t.Fatal(err)
	}
	timer, _, _ = store.Get(rail, KindWorkOrder, "WO-2")
	if timer.Status != TimerMet || timer.StartedAt.IsZero() || timer.CompletedAt.IsZero() {
		t.Fatalf("%+v", timer)
	}

	// duplicated creation does not restart the timer
	if err := m.Handle(rail, created); err != nil {
		t.Fatal(err)
	}
	if again, _, _ := store.Get(rail, KindWorkOrder, "WO-2"); again.Status != TimerMet {
		t.Fatal(again.Status)
	}
}

func TestSlaScanBreaches(t *testing.T) {
	rail := core.EmptyRail()
	store := NewMemTimerStore()
	alerter := &fakeAlerter{}
	m := NewSlaMonitor(store, alerter, DefaultSlaPolicy())

	_ = m.Handle(rail, event.WorkOrderCreated(event.WorkOrderCreatedEvent{WorkOrderId: "WO-1", Priority: event.PriorityCritical}, testCtx))
	_ = m.Handle(rail, event.WorkOrderCreated(event.WorkOrderCreatedEvent{WorkOrderId: "WO-2", Priority: event.PriorityLow}, testCtx))

	now := time.Now()
	if n, err := m.ScanBreaches(rail, now, 10); err != nil || n != 0 {
		t.Fatal(n, err)
	}

	later := now.Add(5 * time.Hour)
	n, err := m.ScanBreaches(rail, later, 10)
	if err != nil || n != 1 {
		t.Fatal(n, err)
	}
	if alerter.alerts[0].EntityId != "WO-1" {
		t.Fatal(alerter.alerts[0].EntityId)
	}

	// alerted once only
	if n, _ := m.ScanBreaches(rail, later, 10); n != 0 {
		t.Fatal(n)
	}

	// completion after the alert is still evaluated, without another alert
	_ = m.Handle(rail, event.WorkOrderCompleted(event.WorkOrderCompletedEvent{WorkOrderId: "WO-1", CompletedAt: later}, testCtx))
	timer, _, _ := store.Get(rail, KindWorkOrder, "WO-1")
	if timer.Status != TimerBreached || alerter.count() != 1 {
		t.Fatalf("%+v, alerts: %v", timer, alerter.count())
	}
}

type flakyTimerStore struct {
	*MemTimerStore
	failSaves int
}

func (f *flakyTimerStore) Save(rail core.Rail, t SlaTimer) error {
	if f.failSaves > 0 {
		f.failSaves--
		return errors.New("database is locked")
	}
	return f.MemTimerStore.Save(rail, t)
}

func TestSlaAlertOnceWhenSaveFails(t *testing.T) {
	rail := core.EmptyRail()
	store := &flakyTimerStore{MemTimerStore: NewMemTimerStore()}
	alerter := &fakeAlerter{}
	m := NewSlaMonitor(store, alerter, DefaultSlaPolicy())

	created := event.WorkOrderCreated(event.WorkOrderCreatedEvent{WorkOrderId: "WO-3", Priority: event.PriorityCritical}, testCtx)
	if err := m.Handle(rail, created); err != nil {
		t.Fatal(err)
	}
	completed := event.WorkOrderCompleted(event.WorkOrderCompletedEvent{WorkOrderId: "WO-3", CompletedAt: created.Timestamp().Add(6 * time.Hour)}, testCtx)

	store.failSaves = 1
	if err := m.Handle(rail, completed); err == nil {
		t.Fatal("should fail")
	}
	if alerter.count() != 0 {
		t.Fatal("should not alert before the timer is saved")
	}

	// redelivered
	if err := m.Handle(rail, completed); err != nil {
		t.Fatal(err)
	}
	if err := m.Handle(rail, completed); err != nil {
		t.Fatal(err)
	}
	if alerter.count() != 1 {
		t.Fatal(alerter.count())
	}
	timer, _, _ := store.Get(rail, KindWorkOrder, "WO-3")
	if timer.Status != TimerBreached || !timer.Alerted {
		t.Fatalf("%+v", timer)
	}
}

func TestSlaAlertRetriedWhenAlerterFails(t *testing.T) {
	rail := core.EmptyRail()
	store := NewMemTimerStore()
	alerter := &fakeAlerter{fail: 1}
	m := NewSlaMonitor(store, alerter, DefaultSlaPolicy())

	created := event.TicketCreated(event.TicketCreatedEvent{TicketId: "T-9", Priority: event.PriorityCritical}, testCtx)
	_ = m.Handle(rail, created)
	resolved := event.TicketResolved(event.TicketResolvedEvent{TicketId: "T-9", ResolvedAt: created.Timestamp().Add(5 * time.Hour)}, testCtx)

	if err := m.Handle(rail, resolved); err == nil {
		t.Fatal("should fail")
	}
	timer, _, _ := store.Get(rail, KindTicket, "T-9")
	if timer.Status != TimerBreached || timer.Alerted {
		t.Fatalf("%+v", timer)
	}

	if err := m.Handle(rail, resolved); err != nil {
		t.Fatal(err)
	}
	if err := m.Handle(rail, resolved); err != nil {
		t.Fatal(err)
	}
	if alerter.count() != 1 {
		t.Fatal(alerter.count())
	}
}

func TestSlaPolicy(t *testing.T) {
	c := core.NewAppConfig()
	_ = c.LoadConfigFromStr(`
sla:
  policy:
    critical-minutes: 60
    default-minutes: 120
`)
	p := LoadSlaPolicy(c)
	if p.Deadline(event.PriorityCritical) != time.Hour {
		t.Fatal(p.Deadline(event.PriorityCritical))
	}
	if p.Deadline(event.PriorityHigh) != 2*time.Hour {
		t.Fatal(p.Deadline(event.PriorityHigh))
	}
	if (SlaPolicy{}).Deadline("") != 24*time.Hour {
		t.Fatal("unexpected fallback")
	}
}
