package consumer

import (
	"sync/atomic"

	"github.com/opsdesk/eventbus/bus"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

// WebSocketBroadcaster re-emits ops and pm events to the realtime room of the organization or project.
//
// The RoomBroadcaster is usually bound after the consumer is subscribed, see SetBroadcaster.
type WebSocketBroadcaster struct {
	broadcaster atomic.Pointer[roomBroadcasterRef]
}

type roomBroadcasterRef struct {
	RoomBroadcaster
}

func NewWebSocketBroadcaster(b RoomBroadcaster) *WebSocketBroadcaster {
	w := &WebSocketBroadcaster{}
	w.SetBroadcaster(b)
	return w
}

// Bind the RoomBroadcaster, nil unbinds the current one.
func (w *WebSocketBroadcaster) SetBroadcaster(b RoomBroadcaster) {
	if b == nil {
		w.broadcaster.Store(nil)
		return
	}
	w.broadcaster.Store(&roomBroadcasterRef{b})
}

func (w *WebSocketBroadcaster) Subscription() bus.Subscription {
	return bus.Subscription{
		Queue:    QueueWebSocketBroadcast,
		Patterns: []event.Pattern{event.OpsWorkOrderAll, event.PMAll},
		Handler:  w.Handle,
	}
}

func (w *WebSocketBroadcaster) Handle(rail core.Rail, e *event.Event) error {
	ref := w.broadcaster.Load()
	if ref == nil {
		rail.Warnf("Realtime broadcaster is not bound, event %v (%v) not broadcasted", e.Id(), e.Type())
		return nil
	}

	room := RoomOf(e)
	if err := ref.Emit(rail, room, e.Type().String(), e); err != nil {
		return core.WrapErrf(err, "failed to broadcast event %v to room '%v'", e.Id(), room)
	}
	rail.Debugf("Broadcasted event %v (%v) to room '%v'", e.Id(), e.Type(), room)
	return nil
}

// Room of the event, 'org:<organizationId>' or 'org:<organizationId>:project:<projectId>'.
func RoomOf(e *event.Event) string {
	return Room(e.OrganizationId(), e.ProjectId())
}

func Room(orgId string, projectId string) string {
	if projectId == "" {
		return "org:" + orgId
	}
	return "org:" + orgId + ":project:" + projectId
}
