package realtime

import (
	"strings"
	"sync"
	"time"

	"github.com/opsdesk/eventbus/consumer"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/encoding/json"
)

var _ consumer.RoomBroadcaster = (*Hub)(nil)

// Hub tracks the rooms joined by each client.
type Hub struct {
	conf Config

	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
}

func NewHub(conf Config) *Hub {
	return &Hub{
		conf:    conf.withDefaults(),
		rooms:   map[string]map[*Client]struct{}{},
		clients: map[*Client]struct{}{},
	}
}

// Emit message to every client in the room, clients that can't keep up are disconnected.
func (h *Hub) Emit(rail core.Rail, room string, name string, payload any) error {
	data, err := json.WriteJson(Message{Room: room, Name: name, Data: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		return core.WrapErrf(err, "failed to marshal realtime message")
	}

	h.mu.RLock()
	members := h.rooms[room]
	clients := make([]*Client, 0, len(members))
	for c := range members {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(data) {
			rail.Warnf("Realtime client %v is too slow, disconnected", c)
			go h.Detach(c)
		}
	}
	rail.Debugf("Emitted '%v' to room '%v', clients: %d", name, room, len(clients))
	return nil
}

// Number of clients in the room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register client and join the rooms.
func (h *Hub) Attach(c *Client, rooms ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	for _, r := range rooms {
		if strings.TrimSpace(r) != "" {
			h.joinLocked(c, r)
		}
	}
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.joinLocked(c, room)
	}
}

func (h *Hub) joinLocked(c *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = map[*Client]struct{}{}
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Remove client from every room and close it.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for r := range c.rooms {
		h.leaveLocked(c, r)
	}
	delete(h.clients, c)
	c.close()
}

// Disconnect every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Detach(c)
	}
}
