package sqlite

import (
	"strings"
	"time"

	"github.com/opsdesk/eventbus/consumer"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
	"github.com/opsdesk/eventbus/util/retry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	busyRetry   = 3
	busyBackoff = 20 * time.Millisecond
)

var _ consumer.TimerStore = (*TimerStore)(nil)

// Row of table sla_timer, times are stored as unix milliseconds, 0 means absent.
type slaTimer struct {
	Kind           string `gorm:"primaryKey;size:32"`
	EntityId       string `gorm:"primaryKey;size:64"`
	OrganizationId string `gorm:"size:64"`
	Priority       string `gorm:"size:16"`
	Status         string `gorm:"size:16;index:idx_sla_timer_due,priority:1"`
	StartedAt      int64
	DueAt          int64 `gorm:"index:idx_sla_timer_due,priority:2"`
	CompletedAt    int64
	Alerted        bool
}

func (slaTimer) TableName() string {
	return "sla_timer"
}

// TimerStore persists SLA timers in SQLite.
type TimerStore struct {
	db *gorm.DB
}

// Create TimerStore, table sla_timer is migrated if necessary.
func NewTimerStore(rail core.Rail, db *gorm.DB) (*TimerStore, error) {
	if err := db.AutoMigrate(&slaTimer{}); err != nil {
		return nil, core.WrapErrf(err, "failed to migrate table sla_timer")
	}
	rail.Debug("Migrated table sla_timer")
	return &TimerStore{db: db}, nil
}

func (s *TimerStore) Get(rail core.Rail, kind string, entityId string) (consumer.SlaTimer, bool, error) {
	var rows []slaTimer
	err := s.withRetry(func() error {
		return s.db.WithContext(rail.Context()).
			Where("kind = ? AND entity_id = ?", kind, entityId).
			Limit(1).
			Find(&rows).Error
	})
	if err != nil {
		return consumer.SlaTimer{}, false, core.WrapErrf(err, "failed to query sla_timer")
	}
	if len(rows) < 1 {
		return consumer.SlaTimer{}, false, nil
	}
	return toTimer(rows[0]), true, nil
}

func (s *TimerStore) Save(rail core.Rail, t consumer.SlaTimer) error {
	row := toRow(t)
	err := s.withRetry(func() error {
		return s.db.WithContext(rail.Context()).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&row).Error
	})
	if err != nil {
		return core.WrapErrf(err, "failed to save sla_timer")
	}
	return nil
}

func (s *TimerStore) ListOverdue(rail core.Rail, now time.Time, limit int) ([]consumer.SlaTimer, error) {
	var rows []slaTimer
	err := s.withRetry(func() error {
		q := s.db.WithContext(rail.Context()).
			Where("status = ? AND alerted = ? AND due_at > 0 AND due_at < ?", string(consumer.TimerRunning), false, now.UnixMilli()).
			Order("due_at ASC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&rows).Error
	})
	if err != nil {
		return nil, core.WrapErrf(err, "failed to list overdue sla_timer")
	}
	l := make([]consumer.SlaTimer, 0, len(rows))
	for _, r := range rows {
		l = append(l, toTimer(r))
	}
	return l, nil
}

func (s *TimerStore) withRetry(f func() error) error {
	return retry.Call(f, busyRetry, retry.NewBackoff(busyBackoff, 8*busyBackoff), isBusy)
}

// SQLITE_BUSY or SQLITE_LOCKED.
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

func toRow(t consumer.SlaTimer) slaTimer {
	return slaTimer{
		Kind:           t.Kind,
		EntityId:       t.EntityId,
		OrganizationId: t.OrganizationId,
		Priority:       string(t.Priority),
		Status:         string(t.Status),
		StartedAt:      toMillis(t.StartedAt),
		DueAt:          toMillis(t.DueAt),
		CompletedAt:    toMillis(t.CompletedAt),
		Alerted:        t.Alerted,
	}
}

func toTimer(r slaTimer) consumer.SlaTimer {
	return consumer.SlaTimer{
		Kind:           r.Kind,
		EntityId:       r.EntityId,
		OrganizationId: r.OrganizationId,
		Priority:       event.Priority(r.Priority),
		Status:         consumer.TimerStatus(r.Status),
		StartedAt:      fromMillis(r.StartedAt),
		DueAt:          fromMillis(r.DueAt),
		CompletedAt:    fromMillis(r.CompletedAt),
		Alerted:        r.Alerted,
	}
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
