package consumer

import (
	"errors"
	"fmt"

	"github.com/opsdesk/eventbus/bus"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

var notificationPatterns = []event.Pattern{
	event.AllCreated,
	event.AllTransitions,
	event.AllAssigned,
	event.Exact(event.TypeWorkOrderOverdue),
	event.Exact(event.TypeWorkOrderEscalated),
	event.Exact(event.TypeSprintStarted),
	event.Exact(event.TypeSprintCompleted),
	event.Exact(event.TypeTicketEscalated),
}

// NotificationConsumer notifies the users affected by an event.
//
// Each (event, recipient) pair is sent at most once, duplicated deliveries are skipped using Deduper.
type NotificationConsumer struct {
	notifier Notifier
	deduper  Deduper
}

func NewNotificationConsumer(notifier Notifier, deduper Deduper) *NotificationConsumer {
	if deduper == nil {
		deduper = NewMemDeduper(0)
	}
	return &NotificationConsumer{notifier: notifier, deduper: deduper}
}

func (c *NotificationConsumer) Subscription() bus.Subscription {
	return bus.Subscription{Queue: QueueNotifications, Patterns: notificationPatterns, Handler: c.Handle}
}

func (c *NotificationConsumer) Handle(rail core.Rail, e *event.Event) error {
	drafts := notificationsOf(e)
	if len(drafts) < 1 {
		rail.Debugf("No recipient for event %v (%v)", e.Id(), e.Type())
		return nil
	}

	var errs []error
	for _, n := range drafts {
		if err := c.send(rail, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *NotificationConsumer) send(rail core.Rail, n Notification) error {
	key := dedupKey(n.EventId, n.RecipientId)
	ok, err := c.deduper.Acquire(rail, key)
	if err != nil {
		return core.WrapErrf(err, "failed to check duplicate notification, key: %v", key)
	}
	if !ok {
		rail.Infof("Notification for event %v to %v has been sent, skipped", n.EventId, n.RecipientId)
		return nil
	}

	if err := c.notifier.Send(rail, n); err != nil {
		if rerr := c.deduper.Release(rail, key); rerr != nil {
			rail.Warnf("Failed to release dedup key %v, %v", key, rerr)
		}
		return core.WrapErrf(err, "failed to notify %v of event %v", n.RecipientId, n.EventId)
	}
	rail.Infof("Notified %v of event %v (%v)", n.RecipientId, n.EventId, n.EventType)
	return nil
}

func dedupKey(eventId string, recipientId string) string {
	return "notification:" + eventId + ":" + recipientId
}

// Build notifications of the event, the actor is never notified of the event it triggered.
func notificationsOf(e *event.Event) []Notification {
	var (
		recipients []string
		title      string
		body       string
	)

	switch d := e.Data().(type) {
	case event.WorkOrderCreatedEvent:
		recipients = []string{d.AssigneeId}
		title = fmt.Sprintf("Work order %v created", d.WorkOrderId)
		body = fmt.Sprintf("Work order %v for %v (%v priority) has been assigned to you.", d.WorkOrderId, d.ProductName, d.Priority)
	case event.WorkOrderAssignedEvent:
		recipients = []string{d.AssigneeId, d.PreviousAssigneeId}
		title = fmt.Sprintf("Work order %v assigned", d.WorkOrderId)
		body = fmt.Sprintf("Work order %v is now assigned to %v.", d.WorkOrderId, d.AssigneeId)
	case event.WorkOrderOverdueEvent:
		recipients = []string{d.AssigneeId, d.SupervisorId}
		title = fmt.Sprintf("Work order %v is overdue", d.WorkOrderId)
		body = fmt.Sprintf("Work order %v is %d minutes overdue.", d.WorkOrderId, d.OverdueMinutes)
	case event.WorkOrderEscalatedEvent:
		recipients = []string{d.EscalatedToId}
		title = fmt.Sprintf("Work order %v escalated", d.WorkOrderId)
		body = fmt.Sprintf("Work order %v has been escalated to you (level %d). %v", d.WorkOrderId, d.Level, d.Reason)
	case event.WorkItemCreatedEvent:
		recipients = []string{d.AssigneeId}
		title = fmt.Sprintf("New %v: %v", d.ItemType, d.Title)
		body = fmt.Sprintf("Work item %v has been created and assigned to you.", d.WorkItemId)
	case event.WorkItemAssignedEvent:
		recipients = []string{d.AssigneeId}
		title = fmt.Sprintf("Work item %v assigned", d.WorkItemId)
		body = fmt.Sprintf("Work item %v has been assigned to you.", d.WorkItemId)
	case event.WorkItemTransitionedEvent:
		recipients = []string{d.AssigneeId, d.ReporterId}
		title = fmt.Sprintf("Work item %v moved to %v", d.WorkItemId, d.ToStatus)
		body = fmt.Sprintf("Work item %v moved from %v to %v.", d.WorkItemId, d.FromStatus, d.ToStatus)
	case event.SprintStartedEvent:
		recipients = d.MemberIds
		title = fmt.Sprintf("Sprint %v started", d.Name)
		body = fmt.Sprintf("Sprint %v started with %d planned points.", d.Name, d.PlannedPoints)
	case event.SprintCompletedEvent:
		recipients = d.MemberIds
		title = fmt.Sprintf("Sprint %v completed", d.SprintId)
		body = fmt.Sprintf("Sprint %v completed, velocity: %d, completed: %d, incomplete: %d.", d.SprintId, d.Velocity, d.CompletedItems, d.IncompleteItems)
	case event.TicketCreatedEvent:
		recipients = []string{d.RequesterId, d.AssigneeId}
		title = fmt.Sprintf("Ticket %v created", d.TicketId)
		body = fmt.Sprintf("Ticket %v '%v' has been created.", d.TicketId, d.Subject)
	case event.TicketAssignedEvent:
		recipients = []string{d.AssigneeId}
		title = fmt.Sprintf("Ticket %v assigned", d.TicketId)
		body = fmt.Sprintf("Ticket %v has been assigned to you.", d.TicketId)
	case event.TicketTransitionedEvent:
		recipients = []string{d.RequesterId, d.AssigneeId}
		title = fmt.Sprintf("Ticket %v is %v", d.TicketId, d.ToStatus)
		body = fmt.Sprintf("Ticket %v moved from %v to %v.", d.TicketId, d.FromStatus, d.ToStatus)
	case event.TicketEscalatedEvent:
		recipients = []string{d.EscalatedToId}
		title = fmt.Sprintf("Ticket %v escalated", d.TicketId)
		body = fmt.Sprintf("Ticket %v has been escalated to you (level %d). %v", d.TicketId, d.Level, d.Reason)
	default:
		return nil
	}

	var l []Notification
	seen := map[string]struct{}{}
	for _, r := range recipients {
		if r == "" || r == e.UserId() {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		l = append(l, Notification{
			EventId:        e.Id(),
			EventType:      e.Type(),
			OrganizationId: e.OrganizationId(),
			RecipientId:    r,
			CorrelationId:  e.CorrelationId(),
			Title:          title,
			Body:           body,
		})
	}
	return l
}
