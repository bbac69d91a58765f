package consumer

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/opsdesk/eventbus/bus"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
	"github.com/opsdesk/eventbus/metrics"
)

var slaPatterns = []event.Pattern{
	event.Exact(event.TypeWorkOrderCreated),
	event.Exact(event.TypeWorkOrderCompleted),
	event.Exact(event.TypeTicketCreated),
	event.Exact(event.TypeTicketResolved),
}

// SlaMonitor starts a timer when a work order or ticket is created, and evaluates compliance when it's completed.
//
// Timer state is always loaded from TimerStore by entity id, so a completion delivered before its creation
// is recorded and reconciled once the creation arrives.
type SlaMonitor struct {
	store   TimerStore
	alerter Alerter
	policy  SlaPolicy
	locks   [64]sync.Mutex
}

func NewSlaMonitor(store TimerStore, alerter Alerter, policy SlaPolicy) *SlaMonitor {
	return &SlaMonitor{store: store, alerter: alerter, policy: policy}
}

func (m *SlaMonitor) Subscription() bus.Subscription {
	return bus.Subscription{Queue: QueueSlaMonitor, Patterns: slaPatterns, Handler: m.Handle}
}

func (m *SlaMonitor) Handle(rail core.Rail, e *event.Event) error {
	switch d := e.Data().(type) {
	case event.WorkOrderCreatedEvent:
		return m.start(rail, KindWorkOrder, d.WorkOrderId, e.OrganizationId(), d.Priority, e.Timestamp())
	case event.WorkOrderCompletedEvent:
		return m.complete(rail, KindWorkOrder, d.WorkOrderId, e.OrganizationId(), orElse(d.CompletedAt, e.Timestamp()))
	case event.TicketCreatedEvent:
		return m.start(rail, KindTicket, d.TicketId, e.OrganizationId(), d.Priority, e.Timestamp())
	case event.TicketResolvedEvent:
		return m.complete(rail, KindTicket, d.TicketId, e.OrganizationId(), orElse(d.ResolvedAt, e.Timestamp()))
	}
	rail.Debugf("Ignored event %v (%v)", e.Id(), e.Type())
	return nil
}

func (m *SlaMonitor) start(rail core.Rail, kind string, id string, orgId string, pr event.Priority, at time.Time) error {
	mu := m.lock(kind, id)
	mu.Lock()
	defer mu.Unlock()

	prev, ok, err := m.store.Get(rail, kind, id)
	if err != nil {
		return core.WrapErrf(err, "failed to load timer of %v %v", kind, id)
	}
	if ok && pendingAlert(prev) {
		return m.save(rail, &prev, true)
	}
	if ok && prev.Status != TimerAwaitingStart {
		rail.Infof("Timer of %v %v already started, duplicated creation ignored", kind, id)
		return nil
	}

	t := SlaTimer{
		Kind:           kind,
		EntityId:       id,
		OrganizationId: orgId,
		Priority:       pr,
		Status:         TimerRunning,
		StartedAt:      at,
		DueAt:          at.Add(m.policy.Deadline(pr)),
	}
	if ok {
		t.CompletedAt = prev.CompletedAt
		t.Status = evaluate(t)
		rail.Infof("Reconciled %v %v with its earlier completion, status: %v", kind, id, t.Status)
	}
	if err := m.save(rail, &t, pendingAlert(t)); err != nil {
		return err
	}
	rail.Infof("Started SLA timer of %v %v, priority: %v, due at: %v", kind, id, pr, t.DueAt)
	return nil
}

func (m *SlaMonitor) complete(rail core.Rail, kind string, id string, orgId string, at time.Time) error {
	mu := m.lock(kind, id)
	mu.Lock()
	defer mu.Unlock()

	t, ok, err := m.store.Get(rail, kind, id)
	if err != nil {
		return core.WrapErrf(err, "failed to load timer of %v %v", kind, id)
	}

	if !ok {
		t = SlaTimer{Kind: kind, EntityId: id, OrganizationId: orgId, Status: TimerAwaitingStart, CompletedAt: at}
		if err := m.store.Save(rail, t); err != nil {
			return core.WrapErrf(err, "failed to save timer of %v %v", kind, id)
		}
		rail.Warnf("Completion of %v %v received before its creation, evaluation deferred", kind, id)
		return nil
	}

	if pendingAlert(t) {
		return m.save(rail, &t, true)
	}
	if t.Status != TimerRunning {
		rail.Infof("Timer of %v %v is %v, duplicated completion ignored", kind, id, t.Status)
		return nil
	}

	t.CompletedAt = at
	t.Status = evaluate(t)
	if err := m.save(rail, &t, pendingAlert(t)); err != nil {
		return err
	}
	rail.Infof("SLA of %v %v evaluated, status: %v", kind, id, t.Status)
	return nil
}

// Flag running timers that are past due, returns the number of alerted timers.
func (m *SlaMonitor) ScanBreaches(rail core.Rail, now time.Time, limit int) (int, error) {
	overdue, err := m.store.ListOverdue(rail, now, limit)
	if err != nil {
		return 0, core.WrapErrf(err, "failed to list overdue timers")
	}

	n := 0
	for _, o := range overdue {
		alerted, err := m.alertOverdue(rail, o.Kind, o.EntityId, now)
		if err != nil {
			return n, err
		}
		if alerted {
			n++
		}
	}
	if n > 0 {
		rail.Warnf("Found %d SLA breaches", n)
	}
	return n, nil
}

func (m *SlaMonitor) alertOverdue(rail core.Rail, kind string, id string, now time.Time) (bool, error) {
	mu := m.lock(kind, id)
	mu.Lock()
	defer mu.Unlock()

	// may have been completed since it was listed
	t, ok, err := m.store.Get(rail, kind, id)
	if err != nil {
		return false, core.WrapErrf(err, "failed to load timer of %v %v", kind, id)
	}
	if !ok || !t.Overdue(now) || t.Alerted {
		return false, nil
	}
	if err := m.save(rail, &t, true); err != nil {
		return false, err
	}
	return true, nil
}

/*
Save the timer, and alert the breach if alert is true.

The timer is saved as alerted before the alert is sent, and reset if the alert fails, so that
the breach is alerted at most once, and alerted again by the redelivery only if it failed.
*/
func (m *SlaMonitor) save(rail core.Rail, t *SlaTimer, alert bool) error {
	if alert {
		t.Alerted = true
	}
	if err := m.store.Save(rail, *t); err != nil {
		return core.WrapErrf(err, "failed to save timer of %v %v", t.Kind, t.EntityId)
	}
	if !alert {
		return nil
	}

	if m.alerter != nil {
		if err := m.alerter.SlaBreached(rail, *t); err != nil {
			t.Alerted = false
			if serr := m.store.Save(rail, *t); serr != nil {
				rail.Errorf("Failed to reset alerted flag of %v %v, breach alert is lost, %v", t.Kind, t.EntityId, serr)
			}
			return core.WrapErrf(err, "failed to alert SLA breach of %v %v", t.Kind, t.EntityId)
		}
	}
	metrics.IncSlaBreached(t.Kind)
	rail.Warnf("SLA of %v %v breached, due at: %v", t.Kind, t.EntityId, t.DueAt)
	return nil
}

func (m *SlaMonitor) lock(kind string, id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(kind + ":" + id))
	return &m.locks[h.Sum32()%uint32(len(m.locks))]
}

// Breached, but the alert is not sent yet.
func pendingAlert(t SlaTimer) bool {
	return t.Status == TimerBreached && !t.Alerted
}

func evaluate(t SlaTimer) TimerStatus {
	if t.CompletedAt.After(t.DueAt) {
		return TimerBreached
	}
	return TimerMet
}

func orElse(t time.Time, def time.Time) time.Time {
	if t.IsZero() {
		return def
	}
	return t
}
