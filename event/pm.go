package event

import "time"

type WorkItemCreatedEvent struct {
	WorkItemId string `json:"workItemId"`
	ProjectId  string `json:"projectId"`
	Title      string `json:"title"`
	ItemType   string `json:"itemType"`
	AssigneeId string `json:"assigneeId,omitempty"`
	ReporterId string `json:"reporterId,omitempty"`
}

type WorkItemAssignedEvent struct {
	WorkItemId         string `json:"workItemId"`
	ProjectId          string `json:"projectId"`
	AssigneeId         string `json:"assigneeId"`
	PreviousAssigneeId string `json:"previousAssigneeId,omitempty"`
}

type WorkItemTransitionedEvent struct {
	WorkItemId string `json:"workItemId"`
	ProjectId  string `json:"projectId"`
	FromStatus string `json:"fromStatus"`
	ToStatus   string `json:"toStatus"`
	AssigneeId string `json:"assigneeId,omitempty"`
	ReporterId string `json:"reporterId,omitempty"`
}

type SprintCreatedEvent struct {
	SprintId  string    `json:"sprintId"`
	ProjectId string    `json:"projectId"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

type SprintStartedEvent struct {
	SprintId      string   `json:"sprintId"`
	ProjectId     string   `json:"projectId"`
	Name          string   `json:"name"`
	PlannedPoints int      `json:"plannedPoints"`
	MemberIds     []string `json:"memberIds,omitempty"`
}

type SprintCompletedEvent struct {
	SprintId        string   `json:"sprintId"`
	ProjectId       string   `json:"projectId"`
	Velocity        int      `json:"velocity"`
	CompletedItems  int      `json:"completedItems"`
	IncompleteItems int      `json:"incompleteItems"`
	MemberIds       []string `json:"memberIds,omitempty"`
}

func (WorkItemCreatedEvent) EventType() Type      { return TypeWorkItemCreated }
func (WorkItemAssignedEvent) EventType() Type     { return TypeWorkItemAssigned }
func (WorkItemTransitionedEvent) EventType() Type { return TypeWorkItemTransitioned }
func (SprintCreatedEvent) EventType() Type        { return TypeSprintCreated }
func (SprintStartedEvent) EventType() Type        { return TypeSprintStarted }
func (SprintCompletedEvent) EventType() Type      { return TypeSprintCompleted }

func (e WorkItemCreatedEvent) ProjectRef() string      { return e.ProjectId }
func (e WorkItemAssignedEvent) ProjectRef() string     { return e.ProjectId }
func (e WorkItemTransitionedEvent) ProjectRef() string { return e.ProjectId }
func (e SprintCreatedEvent) ProjectRef() string        { return e.ProjectId }
func (e SprintStartedEvent) ProjectRef() string        { return e.ProjectId }
func (e SprintCompletedEvent) ProjectRef() string      { return e.ProjectId }

func (WorkItemCreatedEvent) sealed()      {}
func (WorkItemAssignedEvent) sealed()     {}
func (WorkItemTransitionedEvent) sealed() {}
func (SprintCreatedEvent) sealed()        {}
func (SprintStartedEvent) sealed()        {}
func (SprintCompletedEvent) sealed()      {}
