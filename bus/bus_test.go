package bus

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

var testCtx = event.Context{OrganizationId: "org-1", UserId: "u-1"}

func testConf() Config {
	return Config{
		Exchange:       "test.events",
		ConfirmTimeout: time.Second,
		Retry:          RetryPolicy{MaxRetry: 3, Delay: 10 * time.Millisecond, DeadLetter: true},
		Concurrency:    2,
		Qos:            10,
		HandlerTimeout: time.Second,
	}
}

func newTestBus(t *testing.T, broker *MemBroker, conf Config) *EventBus {
	t.Helper()
	b := New(broker, conf)
	if err := b.Init(core.EmptyRail()); err != nil {
		t.Fatal(err)
	}
	return b
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []*event.Event
}

func (r *recorder) handle(rail core.Rail, e *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestPublishRoutesByPattern(t *testing.T) {
	rail := core.EmptyRail()
	broker := NewMemBroker()
	b := newTestBus(t, broker, testConf())
	defer b.Shutdown(rail)

	subs := map[event.Pattern]*recorder{
		event.AllCreated:      {},
		event.OpsWorkOrderAll: {},
		event.AllEvents:       {},
		event.AllTransitions:  {},
	}
	for p, r := range subs {
		err := b.Subscribe(rail, Subscription{Queue: "q-" + p.String(), Patterns: []event.Pattern{p}, Handler: r.handle})
		if err != nil {
			t.Fatal(err)
		}
	}

	e := event.WorkOrderCreated(event.WorkOrderCreatedEvent{WorkOrderId: "WO-1", Priority: event.PriorityHigh}, testCtx)
	if !b.Publish(rail, e) {
		t.Fatal("not published")
	}

	for _, p := range []event.Pattern{event.AllCreated, event.OpsWorkOrderAll, event.AllEvents} {
		r := subs[p]
		waitFor(t, time.Second, func() bool { return r.len() == 1 })
		if got := r.events[0]; got.Id() != e.Id() || got.Type() != event.TypeWorkOrderCreated {
			t.Fatalf("%v received %v", p, got.Type())
		}
	}

	time.Sleep(50 * time.Millisecond)
	if n := subs[event.AllTransitions].len(); n != 0 {
		t.Fatalf("AllTransitions received %d events", n)
	}
}

func TestSubscribeBeforeInit(t *testing.T) {
	rail := core.EmptyRail()
	b := New(NewMemBroker(), testConf())
	r := &recorder{}
	if err := b.Subscribe(rail, Subscription{Queue: "analytics", Patterns: []event.Pattern{event.AllEvents}, Handler: r.handle}); err != nil {
		t.Fatal(err)
	}

	if b.Publish(rail, event.SprintCreated(event.SprintCreatedEvent{SprintId: "S1"}, testCtx)) {
		t.Fatal("should not publish before Init")
	}

	if err := b.Init(rail); err != nil {
		t.Fatal(err)
	}
	defer b.Shutdown(rail)

	if !b.Publish(rail, event.SprintCreated(event.SprintCreatedEvent{SprintId: "S1"}, testCtx)) {
		t.Fatal("not published")
	}
	waitFor(t, time.Second, func() bool { return r.len() == 1 })
}

func TestCompetingConsumers(t *testing.T) {
	rail := core.EmptyRail()
	broker := NewMemBroker()
	b1 := newTestBus(t, broker, testConf())
	b2 := newTestBus(t, broker, testConf())
	defer broker.Close()

	var mu sync.Mutex
	seen := map[string]int{}
	var h1, h2 atomic.Int32
	handler := func(c *atomic.Int32) Handler {
		return func(rail core.Rail, e *event.Event) error {
			c.Add(1)
			mu.Lock()
			defer mu.Unlock()
			seen[e.Id()]++
			return nil
		}
	}
	for _, s := range []struct {
		b *EventBus
		c *atomic.Int32
	}{{b1, &h1}, {b2, &h2}} {
		err := s.b.Subscribe(rail, Subscription{Queue: "notifications", Patterns: []event.Pattern{event.AllEvents}, Handler: handler(s.c)})
		if err != nil {
			t.Fatal(err)
		}
	}

	const n = 40
	for i := 0; i < n; i++ {
		if !b1.Publish(rail, event.TicketCreated(event.TicketCreatedEvent{TicketId: "T"}, testCtx)) {
			t.Fatal("not published")
		}
	}

	waitFor(t, time.Second, func() bool { return h1.Load()+h2.Load() == n })
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != n {
		t.Fatalf("expected %d distinct events, actual: %d", n, len(seen))
	}
	for id, c := range seen {
		if c != 1 {
			t.Fatalf("event %v delivered %d times", id, c)
		}
	}
}

func TestBoundedRetryThenDeadLetter(t *testing.T) {
	rail := core.EmptyRail()
	broker := NewMemBroker()
	b := newTestBus(t, broker, testConf())
	defer b.Shutdown(rail)

	var calls atomic.Int32
	err := b.Subscribe(rail, Subscription{
		Queue:    "sla-monitor",
		Patterns: []event.Pattern{event.Exact(event.TypeWorkOrderCreated)},
		Handler: func(rail core.Rail, e *event.Event) error {
			calls.Add(1)
			return errors.New("store unavailable")
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	e := event.WorkOrderCreated(event.WorkOrderCreatedEvent{WorkOrderId: "WO-1"}, testCtx)
	if !b.Publish(rail, e) {
		t.Fatal("not published")
	}

	dlq := DeadLetterQueue("sla-monitor")
	waitFor(t, 2*time.Second, func() bool { return len(broker.Peek(dlq)) == 1 })
	time.Sleep(50 * time.Millisecond)

	if n := calls.Load(); n != 4 {
		t.Fatalf("expected 4 invocations, actual: %d", n)
	}
	m := broker.Peek(dlq)[0]
	if m.Id != e.Id() {
		t.Fatal(m.Id)
	}
	if RetryCount(m.Headers) != 3 {
		t.Fatalf("%+v", m.Headers)
	}
	if m.Headers[HeaderOriginQueue] != "sla-monitor" || m.Headers[HeaderError] != "store unavailable" {
		t.Fatalf("%+v", m.Headers)
	}

	d, err := event.Decode(m.Body)
	if err != nil || d.Id() != e.Id() {
		t.Fatalf("dead-lettered body should be the original envelope, %v", err)
	}
}

func TestZeroRedeliverDelay(t *testing.T) {
	rail := core.EmptyRail()
	conf := testConf()
	conf.Retry = RetryPolicy{MaxRetry: 2, Delay: 0, DeadLetter: true}
	broker := NewMemBroker()
	b := newTestBus(t, broker, conf)
	defer b.Shutdown(rail)

	var calls atomic.Int32
	_ = b.Subscribe(rail, Subscription{
		Queue:    "notifications",
		Patterns: []event.Pattern{event.AllCreated},
		Handler: func(rail core.Rail, e *event.Event) error {
			calls.Add(1)
			return errors.New("smtp down")
		},
	})
	b.Publish(rail, event.TicketCreated(event.TicketCreatedEvent{TicketId: "T-1"}, testCtx))

	dlq := DeadLetterQueue("notifications")
	waitFor(t, 2*time.Second, func() bool { return len(broker.Peek(dlq)) == 1 })
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected 3 invocations, actual: %d", n)
	}
	if n := len(broker.Peek(RedeliverQueue("notifications"))); n != 0 {
		t.Fatalf("redeliver queue should be drained, actual: %d", n)
	}
}

func TestHandlerTimeout(t *testing.T) {
	rail := core.EmptyRail()
	conf := testConf()
	conf.HandlerTimeout = 50 * time.Millisecond
	conf.Retry = RetryPolicy{MaxRetry: 1, Delay: 5 * time.Millisecond, DeadLetter: true}
	broker := NewMemBroker()
	b := newTestBus(t, broker, conf)
	defer b.Shutdown(rail)

	var (
		calls   atomic.Int32
		mu      sync.Mutex
		elapsed []time.Duration
	)
	_ = b.Subscribe(rail, Subscription{
		Queue:       "analytics",
		Patterns:    []event.Pattern{event.AllEvents},
		Concurrency: 1,
		Handler: func(rail core.Rail, e *event.Event) error {
			calls.Add(1)
			start := time.Now()
			select {
			case <-rail.Done():
			case <-time.After(5 * time.Second):
			}
			mu.Lock()
			elapsed = append(elapsed, time.Since(start))
			mu.Unlock()
			return rail.Context().Err()
		},
	})
	b.Publish(rail, event.SprintStarted(event.SprintStartedEvent{SprintId: "S1"}, testCtx))

	dlq := DeadLetterQueue("analytics")
	waitFor(t, 2*time.Second, func() bool { return len(broker.Peek(dlq)) == 1 })
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected 2 invocations, actual: %d", n)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, d := range elapsed {
		if d > time.Second {
			t.Fatalf("handler should be cancelled after %v, took: %v", conf.HandlerTimeout, d)
		}
	}
	if m := broker.Peek(dlq)[0]; m.Headers[HeaderError] == "" {
		t.Fatalf("%+v", m.Headers)
	}
}

func TestRetryWithoutDeadLetter(t *testing.T) {
	rail := core.EmptyRail()
	conf := testConf()
	conf.Retry = RetryPolicy{MaxRetry: 1, Delay: 5 * time.Millisecond, DeadLetter: false}
	broker := NewMemBroker()
	b := newTestBus(t, broker, conf)
	defer b.Shutdown(rail)

	var calls atomic.Int32
	_ = b.Subscribe(rail, Subscription{
		Queue:    "analytics",
		Patterns: []event.Pattern{event.AllEvents},
		Handler: func(rail core.Rail, e *event.Event) error {
			calls.Add(1)
			return errors.New("sink down")
		},
	})
	b.Publish(rail, event.SprintStarted(event.SprintStartedEvent{SprintId: "S1"}, testCtx))

	waitFor(t, time.Second, func() bool { return calls.Load() == 2 })
	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected 2 invocations, actual: %d", n)
	}
	if broker.Peek(DeadLetterQueue("analytics")) != nil {
		t.Fatal("dead-letter queue should not be declared")
	}
}

func TestPanicRecovered(t *testing.T) {
	rail := core.EmptyRail()
	broker := NewMemBroker()
	b := newTestBus(t, broker, testConf())
	defer b.Shutdown(rail)

	var calls atomic.Int32
	_ = b.Subscribe(rail, Subscription{
		Queue:    "notifications",
		Patterns: []event.Pattern{event.AllAssigned},
		Handler: func(rail core.Rail, e *event.Event) error {
			if calls.Add(1) == 1 {
				panic("nil recipient")
			}
			return nil
		},
	})
	b.Publish(rail, event.TicketAssigned(event.TicketAssignedEvent{TicketId: "T-1", AssigneeId: "u-2"}, testCtx))

	waitFor(t, time.Second, func() bool { return calls.Load() == 2 })
	time.Sleep(30 * time.Millisecond)
	if len(broker.Peek(DeadLetterQueue("notifications"))) != 0 {
		t.Fatal("should not be dead-lettered")
	}
}

func TestMalformedDropped(t *testing.T) {
	rail := core.EmptyRail()
	broker := NewMemBroker()
	b := newTestBus(t, broker, testConf())
	defer b.Shutdown(rail)

	r := &recorder{}
	_ = b.Subscribe(rail, Subscription{Queue: "analytics", Patterns: []event.Pattern{event.AllEvents}, Handler: r.handle})

	for _, body := range []string{`{oops`, `{"id":"1","type":"ops.work_order.exploded","data":{}}`} {
		err := broker.Publish(rail, b.Exchange(), Message{Id: "m", RoutingKey: "ops.work_order.exploded", Body: []byte(body)})
		if err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(100 * time.Millisecond)
	if r.len() != 0 {
		t.Fatal("handler should not be invoked")
	}
	if len(broker.Peek(DeadLetterQueue("analytics"))) != 0 || len(broker.Peek("analytics")) != 0 {
		t.Fatal("malformed message should be dropped")
	}
}

func TestPublishFailFastWhenDisconnected(t *testing.T) {
	rail := core.EmptyRail()
	broker := NewMemBroker()
	b := newTestBus(t, broker, testConf())
	defer b.Shutdown(rail)

	broker.SetConnected(false)
	e := event.WorkOrderOverdue(event.WorkOrderOverdueEvent{WorkOrderId: "WO-1"}, testCtx)
	if b.Publish(rail, e) {
		t.Fatal("should not be published")
	}
	if err := b.PublishErr(rail, e); !errors.Is(err, core.ErrBrokerUnavailable) {
		t.Fatal(err)
	}

	broker.SetConnected(true)
	if !b.Publish(rail, e) {
		t.Fatal("should be published after reconnect")
	}
}

func TestPublishAfterShutdown(t *testing.T) {
	rail := core.EmptyRail()
	b := newTestBus(t, NewMemBroker(), testConf())
	b.Shutdown(rail)
	if b.Publish(rail, event.SprintCreated(event.SprintCreatedEvent{SprintId: "S1"}, testCtx)) {
		t.Fatal("should not be published")
	}
}

func TestTracePropagated(t *testing.T) {
	rail := core.EmptyRail()
	b := newTestBus(t, NewMemBroker(), testConf())
	defer b.Shutdown(rail)

	traces := make(chan core.Rail, 1)
	_ = b.Subscribe(rail, Subscription{
		Queue:    "websocket-broadcast",
		Patterns: []event.Pattern{event.PMAll},
		Handler: func(r core.Rail, e *event.Event) error {
			traces <- r
			return nil
		},
	})
	b.Publish(rail, event.WorkItemCreated(event.WorkItemCreatedEvent{WorkItemId: "W1", ProjectId: "P1"}, testCtx))

	select {
	case r := <-traces:
		if r.TraceId() != rail.TraceId() {
			t.Fatalf("expected: %v, actual: %v", rail.TraceId(), r.TraceId())
		}
		if r.SpanId() == "" || r.SpanId() == rail.SpanId() {
			t.Fatalf("consumer should start a new span, %v", r.SpanId())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestSubscribeValidation(t *testing.T) {
	b := New(NewMemBroker(), testConf())
	if err := b.Subscribe(core.EmptyRail(), Subscription{Queue: "", Handler: (&recorder{}).handle}); err == nil {
		t.Fatal("empty queue should be rejected")
	}
	if err := b.Subscribe(core.EmptyRail(), Subscription{Queue: "q"}); err == nil {
		t.Fatal("nil handler should be rejected")
	}
}
