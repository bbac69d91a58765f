package event

import "time"

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type WorkOrderCreatedEvent struct {
	WorkOrderId string    `json:"workOrderId"`
	AssigneeId  string    `json:"assigneeId,omitempty"`
	ProductName string    `json:"productName"`
	Priority    Priority  `json:"priority"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

type WorkOrderAssignedEvent struct {
	WorkOrderId        string `json:"workOrderId"`
	AssigneeId         string `json:"assigneeId"`
	PreviousAssigneeId string `json:"previousAssigneeId,omitempty"`
}

type WorkOrderStartedEvent struct {
	WorkOrderId string    `json:"workOrderId"`
	AssigneeId  string    `json:"assigneeId"`
	StartedAt   time.Time `json:"startedAt"`
}

type WorkOrderCompletedEvent struct {
	WorkOrderId      string    `json:"workOrderId"`
	AssigneeId       string    `json:"assigneeId"`
	ProductName      string    `json:"productName"`
	StartedAt        time.Time `json:"startedAt"`
	CompletedAt      time.Time `json:"completedAt"`
	EstimatedMinutes int       `json:"estimatedMinutes"`
	QuantityPlanned  int       `json:"quantityPlanned"`
	QuantityProduced int       `json:"quantityProduced"`
}

// Actual duration between start and completion, zero if either is unknown.
func (w WorkOrderCompletedEvent) Duration() time.Duration {
	if w.StartedAt.IsZero() || w.CompletedAt.Before(w.StartedAt) {
		return 0
	}
	return w.CompletedAt.Sub(w.StartedAt)
}

type WorkOrderOverdueEvent struct {
	WorkOrderId    string    `json:"workOrderId"`
	AssigneeId     string    `json:"assigneeId,omitempty"`
	SupervisorId   string    `json:"supervisorId,omitempty"`
	DueAt          time.Time `json:"dueAt"`
	OverdueMinutes int       `json:"overdueMinutes"`
}

type WorkOrderEscalatedEvent struct {
	WorkOrderId   string `json:"workOrderId"`
	EscalatedToId string `json:"escalatedToId"`
	Level         int    `json:"level"`
	Reason        string `json:"reason,omitempty"`
}

type WorkOrderCancelledEvent struct {
	WorkOrderId string `json:"workOrderId"`
	AssigneeId  string `json:"assigneeId,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (WorkOrderCreatedEvent) EventType() Type   { return TypeWorkOrderCreated }
func (WorkOrderAssignedEvent) EventType() Type  { return TypeWorkOrderAssigned }
func (WorkOrderStartedEvent) EventType() Type   { return TypeWorkOrderStarted }
func (WorkOrderCompletedEvent) EventType() Type { return TypeWorkOrderCompleted }
func (WorkOrderOverdueEvent) EventType() Type   { return TypeWorkOrderOverdue }
func (WorkOrderEscalatedEvent) EventType() Type { return TypeWorkOrderEscalated }
func (WorkOrderCancelledEvent) EventType() Type { return TypeWorkOrderCancelled }

func (WorkOrderCreatedEvent) sealed()   {}
func (WorkOrderAssignedEvent) sealed()  {}
func (WorkOrderStartedEvent) sealed()   {}
func (WorkOrderCompletedEvent) sealed() {}
func (WorkOrderOverdueEvent) sealed()   {}
func (WorkOrderEscalatedEvent) sealed() {}
func (WorkOrderCancelledEvent) sealed() {}
