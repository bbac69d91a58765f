package consumer

import (
	"time"

	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

type Notification struct {
	EventId        string
	EventType      event.Type
	OrganizationId string
	RecipientId    string
	CorrelationId  string
	Title          string
	Body           string
}

// Notifier sends notification to a user through push, email or SMS.
type Notifier interface {
	Send(rail core.Rail, n Notification) error
}

// Deduper guards side effects that must happen at most once per key.
type Deduper interface {
	// Acquire the key, false is returned if the key has been acquired before.
	Acquire(rail core.Rail, key string) (bool, error)

	// Release the key so that it can be acquired again, e.g., when the side effect failed.
	Release(rail core.Rail, key string) error
}

type TrackedEvent struct {
	EventId        string    `json:"eventId"`
	EventType      string    `json:"eventType"`
	OrganizationId string    `json:"organizationId"`
	UserId         string    `json:"userId"`
	CorrelationId  string    `json:"correlationId"`
	EntityId       string    `json:"entityId"`
	ProjectId      string    `json:"projectId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type WorkOrderPerformance struct {
	EventId          string        `json:"eventId"`
	OrganizationId   string        `json:"organizationId"`
	WorkOrderId      string        `json:"workOrderId"`
	AssigneeId       string        `json:"assigneeId"`
	Duration         time.Duration `json:"duration"`
	EstimatedMinutes int           `json:"estimatedMinutes"`
	Score            float64       `json:"score"`
	CompletedAt      time.Time     `json:"completedAt"`
}

type SprintVelocity struct {
	EventId         string  `json:"eventId"`
	OrganizationId  string  `json:"organizationId"`
	ProjectId       string  `json:"projectId"`
	SprintId        string  `json:"sprintId"`
	Velocity        int     `json:"velocity"`
	CompletedItems  int     `json:"completedItems"`
	IncompleteItems int     `json:"incompleteItems"`
	CompletionRate  float64 `json:"completionRate"`
}

// AnalyticsStore is the time-series or analytics sink.
type AnalyticsStore interface {
	Track(rail core.Rail, e TrackedEvent) error
	RecordPerformance(rail core.Rail, p WorkOrderPerformance) error
	RecordVelocity(rail core.Rail, v SprintVelocity) error
}

type TimerStatus string

const (
	TimerAwaitingStart TimerStatus = "awaiting_start" // completion received before creation
	TimerRunning       TimerStatus = "running"
	TimerMet           TimerStatus = "met"
	TimerBreached      TimerStatus = "breached"
)

const (
	KindWorkOrder = "work_order"
	KindTicket    = "ticket"
)

// SLA timer of an entity, identified by (Kind, EntityId).
type SlaTimer struct {
	Kind           string
	EntityId       string
	OrganizationId string
	Priority       event.Priority
	Status         TimerStatus
	StartedAt      time.Time
	DueAt          time.Time
	CompletedAt    time.Time
	Alerted        bool
}

// Whether the timer is past due at the given time and the entity is not completed yet.
func (t SlaTimer) Overdue(now time.Time) bool {
	return t.Status == TimerRunning && !t.DueAt.IsZero() && now.After(t.DueAt)
}

// TimerStore persists SLA timers.
type TimerStore interface {
	// Find timer, false is returned if the timer doesn't exist.
	Get(rail core.Rail, kind string, entityId string) (SlaTimer, bool, error)

	// Create or update timer.
	Save(rail core.Rail, t SlaTimer) error

	// List running timers that are due before the given time and not alerted yet.
	ListOverdue(rail core.Rail, now time.Time, limit int) ([]SlaTimer, error)
}

// Alerter is notified when a SLA is breached.
type Alerter interface {
	SlaBreached(rail core.Rail, t SlaTimer) error
}

// RoomBroadcaster emits the payload to every realtime client in the room.
type RoomBroadcaster interface {
	Emit(rail core.Rail, room string, name string, payload any) error
}
