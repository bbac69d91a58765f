package event

import "time"

type TicketCreatedEvent struct {
	TicketId    string   `json:"ticketId"`
	Subject     string   `json:"subject"`
	Category    string   `json:"category,omitempty"`
	Priority    Priority `json:"priority"`
	RequesterId string   `json:"requesterId"`
	AssigneeId  string   `json:"assigneeId,omitempty"`
}

type TicketAssignedEvent struct {
	TicketId   string `json:"ticketId"`
	AssigneeId string `json:"assigneeId"`
	GroupId    string `json:"groupId,omitempty"`
}

type TicketTransitionedEvent struct {
	TicketId    string `json:"ticketId"`
	FromStatus  string `json:"fromStatus"`
	ToStatus    string `json:"toStatus"`
	RequesterId string `json:"requesterId,omitempty"`
	AssigneeId  string `json:"assigneeId,omitempty"`
}

type TicketEscalatedEvent struct {
	TicketId      string `json:"ticketId"`
	EscalatedToId string `json:"escalatedToId"`
	Level         int    `json:"level"`
	Reason        string `json:"reason,omitempty"`
}

type TicketResolvedEvent struct {
	TicketId    string    `json:"ticketId"`
	RequesterId string    `json:"requesterId,omitempty"`
	AssigneeId  string    `json:"assigneeId,omitempty"`
	Resolution  string    `json:"resolution,omitempty"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

func (TicketCreatedEvent) EventType() Type      { return TypeTicketCreated }
func (TicketAssignedEvent) EventType() Type     { return TypeTicketAssigned }
func (TicketTransitionedEvent) EventType() Type { return TypeTicketTransitioned }
func (TicketEscalatedEvent) EventType() Type    { return TypeTicketEscalated }
func (TicketResolvedEvent) EventType() Type     { return TypeTicketResolved }

func (TicketCreatedEvent) sealed()      {}
func (TicketAssignedEvent) sealed()     {}
func (TicketTransitionedEvent) sealed() {}
func (TicketEscalatedEvent) sealed()    {}
func (TicketResolvedEvent) sealed()     {}
