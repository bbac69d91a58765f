package consumer

import (
	"sort"
	"sync"
	"time"

	"github.com/opsdesk/eventbus/core"
)

var (
	_ Deduper        = (*MemDeduper)(nil)
	_ TimerStore     = (*MemTimerStore)(nil)
	_ Notifier       = LogNotifier{}
	_ Alerter        = LogAlerter{}
	_ AnalyticsStore = LogAnalyticsStore{}
)

// In-memory Deduper, keys expire after ttl, zero ttl means never.
type MemDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	keys map[string]time.Time
}

func NewMemDeduper(ttl time.Duration) *MemDeduper {
	return &MemDeduper{ttl: ttl, keys: map[string]time.Time{}}
}

func (d *MemDeduper) Acquire(rail core.Rail, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	if exp, ok := d.keys[key]; ok && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}
	var exp time.Time
	if d.ttl > 0 {
		exp = now.Add(d.ttl)
		if len(d.keys) > 4096 {
			d.purge(now)
		}
	}
	d.keys[key] = exp
	return true, nil
}

func (d *MemDeduper) Release(rail core.Rail, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	return nil
}

func (d *MemDeduper) purge(now time.Time) {
	for k, exp := range d.keys {
		if !exp.IsZero() && !now.Before(exp) {
			delete(d.keys, k)
		}
	}
}

// In-memory TimerStore.
type MemTimerStore struct {
	mu     sync.RWMutex
	timers map[string]SlaTimer
}

func NewMemTimerStore() *MemTimerStore {
	return &MemTimerStore{timers: map[string]SlaTimer{}}
}

func (s *MemTimerStore) Get(rail core.Rail, kind string, entityId string) (SlaTimer, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.timers[kind+":"+entityId]
	return t, ok, nil
}

func (s *MemTimerStore) Save(rail core.Rail, t SlaTimer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[t.Kind+":"+t.EntityId] = t
	return nil
}

func (s *MemTimerStore) ListOverdue(rail core.Rail, now time.Time, limit int) ([]SlaTimer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var l []SlaTimer
	for _, t := range s.timers {
		if t.Overdue(now) && !t.Alerted {
			l = append(l, t)
		}
	}
	sort.Slice(l, func(i, j int) bool { return l[i].DueAt.Before(l[j].DueAt) })
	if limit > 0 && len(l) > limit {
		l = l[:limit]
	}
	return l, nil
}

// Notifier that only logs the notification.
type LogNotifier struct{}

func (LogNotifier) Send(rail core.Rail, n Notification) error {
	rail.Infof("Notify %v (org: %v): %v, %v", n.RecipientId, n.OrganizationId, n.Title, n.Body)
	return nil
}

// Alerter that only logs the breach.
type LogAlerter struct{}

func (LogAlerter) SlaBreached(rail core.Rail, t SlaTimer) error {
	rail.Errorf("SLA breached, %v: %v, org: %v, priority: %v, due at: %v", t.Kind, t.EntityId, t.OrganizationId, t.Priority, t.DueAt)
	return nil
}

// AnalyticsStore that only logs the records.
type LogAnalyticsStore struct{}

func (LogAnalyticsStore) Track(rail core.Rail, e TrackedEvent) error {
	rail.Debugf("Track event %v (%v), org: %v, entity: %v", e.EventId, e.EventType, e.OrganizationId, e.EntityId)
	return nil
}

func (LogAnalyticsStore) RecordPerformance(rail core.Rail, p WorkOrderPerformance) error {
	rail.Infof("Work order %v performance, duration: %v, score: %.1f", p.WorkOrderId, p.Duration, p.Score)
	return nil
}

func (LogAnalyticsStore) RecordVelocity(rail core.Rail, v SprintVelocity) error {
	rail.Infof("Sprint %v velocity: %d, completed: %d, incomplete: %d", v.SprintId, v.Velocity, v.CompletedItems, v.IncompleteItems)
	return nil
}
