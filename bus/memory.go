package bus

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

const memRequeueDelay = 50 * time.Millisecond

var _ Broker = (*MemBroker)(nil)

// MemBroker is an in-process Broker with topic exchange semantics.
//
// Queues are shared by every consumer of the same MemBroker, so subscribing the same queue
// twice results in competing consumers. Delay queues are emulated with timers. Qos is ignored.
type MemBroker struct {
	mu        sync.RWMutex
	connected bool
	closed    bool
	exchanges map[string]struct{}
	queues    map[string]*memQueue

	tmu    sync.Mutex
	timers map[*time.Timer]struct{}
}

func NewMemBroker() *MemBroker {
	return &MemBroker{
		exchanges: map[string]struct{}{},
		queues:    map[string]*memQueue{},
		timers:    map[*time.Timer]struct{}{},
	}
}

func (m *MemBroker) Connect(rail core.Rail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrBrokerUnavailable.New("broker is closed")
	}
	m.connected = true
	return nil
}

func (m *MemBroker) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Simulate connection loss or recovery.
func (m *MemBroker) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected && !m.closed
}

func (m *MemBroker) DeclareExchange(rail core.Rail, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges[name] = struct{}{}
	return nil
}

func (m *MemBroker) DeclareQueue(rail core.Rail, q QueueSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.queues[q.Name]; ok {
		prev.bind(q.Bindings)
		return nil
	}
	m.queues[q.Name] = newMemQueue(q)
	rail.Debugf("Declared in-memory queue '%v', bindings: %v", q.Name, q.Bindings)
	return nil
}

func (m *MemBroker) Consume(rail core.Rail, c ConsumerSpec) error {
	m.mu.RLock()
	q, ok := m.queues[c.Queue]
	m.mu.RUnlock()
	if !ok {
		return core.NewErrf("queue '%v' not found", c.Queue)
	}

	n := c.Concurrency
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		go m.consume(q, c.Handler)
	}
	return nil
}

func (m *MemBroker) consume(q *memQueue, fn DeliveryFunc) {
	for {
		mm, ok := q.pop()
		if !ok {
			return
		}
		d := Delivery{Message: mm.msg, Queue: q.spec.Name, Redelivered: mm.redelivered}
		if err := safeDeliver(fn, d); err != nil {
			mm.redelivered = true
			m.schedule(memRequeueDelay, func() { q.push(mm) })
		}
	}
}

func safeDeliver(fn DeliveryFunc, d Delivery) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = core.NewErrf("delivery panic recovered, %v", v)
		}
	}()
	return fn(d)
}

func (m *MemBroker) Publish(rail core.Rail, exchange string, msg Message) error {
	if err := rail.Context().Err(); err != nil {
		return core.ErrPublishNotConfirmed.Wrapf(err, "confirmation not received")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return core.ErrBrokerUnavailable.New("not connected")
	}

	if exchange == DefaultExchange {
		if q, ok := m.queues[msg.RoutingKey]; ok {
			m.enqueue(q, msg)
		}
		return nil
	}

	if _, ok := m.exchanges[exchange]; !ok {
		return core.ErrPublishNotConfirmed.New("exchange '%v' not found", exchange)
	}
	for _, q := range m.queues {
		if q.spec.Exchange == exchange && q.matches(msg.RoutingKey) {
			m.enqueue(q, msg)
		}
	}
	return nil
}

// caller must hold the read lock.
func (m *MemBroker) enqueue(q *memQueue, msg Message) {
	msg.Headers = maps.Clone(msg.Headers)
	if q.spec.MessageTTL > 0 && q.spec.DeadLetterTo != "" {
		to := q.spec.DeadLetterTo
		msg.RoutingKey = to
		m.scheduleLocked(q.spec.MessageTTL, func() {
			m.mu.RLock()
			defer m.mu.RUnlock()
			if target, ok := m.queues[to]; ok && !m.closed {
				m.enqueue(target, msg)
			}
		})
		return
	}
	q.push(memMsg{msg: msg})
}

func (m *MemBroker) schedule(delay time.Duration, f func()) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.scheduleLocked(delay, f)
}

func (m *MemBroker) scheduleLocked(delay time.Duration, f func()) {
	if m.closed {
		return
	}
	m.tmu.Lock()
	defer m.tmu.Unlock()
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		m.tmu.Lock()
		delete(m.timers, t)
		m.tmu.Unlock()
		f()
	})
	m.timers[t] = struct{}{}
}

// Messages currently held by the queue, e.g., the dead-letter queue.
func (m *MemBroker) Peek(queue string) []Message {
	m.mu.RLock()
	q, ok := m.queues[queue]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return q.snapshot()
}

func (m *MemBroker) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false

	m.tmu.Lock()
	for t := range m.timers {
		t.Stop()
	}
	clear(m.timers)
	m.tmu.Unlock()

	for _, q := range m.queues {
		q.close()
	}
	return nil
}

type memMsg struct {
	msg         Message
	redelivered bool
}

type memQueue struct {
	spec QueueSpec

	mu     sync.Mutex
	cond   *sync.Cond
	msgs   []memMsg
	closed bool
}

func newMemQueue(spec QueueSpec) *memQueue {
	q := &memQueue{spec: spec}
	q.spec.Bindings = slices.Clone(spec.Bindings)
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *memQueue) bind(patterns []event.Pattern) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range patterns {
		if !slices.Contains(q.spec.Bindings, p) {
			q.spec.Bindings = append(q.spec.Bindings, p)
		}
	}
}

func (q *memQueue) matches(routingKey string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range q.spec.Bindings {
		if p.Matches(routingKey) {
			return true
		}
	}
	return false
}

func (q *memQueue) push(m memMsg) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.msgs = append(q.msgs, m)
	q.cond.Signal()
}

// Block until a message is available, false is returned once the queue is closed.
func (q *memQueue) pop() (memMsg, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.msgs) < 1 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return memMsg{}, false
	}
	m := q.msgs[0]
	q.msgs = q.msgs[1:]
	return m, true
}

func (q *memQueue) snapshot() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	l := make([]Message, 0, len(q.msgs))
	for _, m := range q.msgs {
		l = append(l, m.msg)
	}
	return l
}

func (q *memQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
