package consumer

import (
	"errors"
	"sync"

	"github.com/opsdesk/eventbus/core"
)

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []Notification
}

func (f *fakeNotifier) Send(rail core.Rail, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var l []string
	for _, n := range f.sent {
		l = append(l, n.RecipientId)
	}
	return l
}

type fakeAnalytics struct {
	mu          sync.Mutex
	tracked     []TrackedEvent
	performance []WorkOrderPerformance
	velocity    []SprintVelocity
}

func (f *fakeAnalytics) Track(rail core.Rail, e TrackedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, e)
	return nil
}

func (f *fakeAnalytics) RecordPerformance(rail core.Rail, p WorkOrderPerformance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.performance = append(f.performance, p)
	return nil
}

func (f *fakeAnalytics) RecordVelocity(rail core.Rail, v SprintVelocity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.velocity = append(f.velocity, v)
	return nil
}

func (f *fakeAnalytics) trackedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tracked)
}

type fakeAlerter struct {
	mu     sync.Mutex
	fail   int // number of calls to fail
	alerts []SlaTimer
}

func (f *fakeAlerter) SlaBreached(rail core.Rail, t SlaTimer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail > 0 {
		f.fail--
		return errors.New("pager unavailable")
	}
	f.alerts = append(f.alerts, t)
	return nil
}

func (f *fakeAlerter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type emitted struct {
	room    string
	name    string
	payload any
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	emits []emitted
}

func (f *fakeBroadcaster) Emit(rail core.Rail, room string, name string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, emitted{room, name, payload})
	return nil
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emits)
}
