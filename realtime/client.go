package realtime

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/opsdesk/eventbus/consumer"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/encoding/json"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 1 << 16
)

// Client is a websocket connection of a user in an organization.
//
// rooms is guarded by the Hub's lock.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	orgId     string
	userId    string
	rooms     map[string]struct{}
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, orgId string, userId string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.conf.SendBuffer),
		orgId:  orgId,
		userId: userId,
		rooms:  map[string]struct{}{},
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("%v@%v", c.userId, c.orgId)
}

func (c *Client) enqueue(data []byte) (ok bool) {
	defer func() {
		// send is closed
		if recover() != nil {
			ok = true
		}
	}()
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// Client may only join rooms of its own organization.
func (c *Client) canJoin(room string) bool {
	base := consumer.Room(c.orgId, "")
	return room == base || strings.HasPrefix(room, base+":")
}

func (c *Client) WritePump() {
	rail := core.EmptyRail()
	ping := time.NewTicker(c.hub.conf.PingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				rail.Debugf("Websocket write failed, client: %v, %v", c, err)
				c.hub.Detach(c)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				rail.Debugf("Websocket ping failed, client: %v, %v", c, err)
				c.hub.Detach(c)
				return
			}
		}
	}
}

func (c *Client) ReadPump() {
	rail := core.EmptyRail()
	defer c.hub.Detach(c)

	readWait := 2 * c.hub.conf.PingInterval
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		var cmd command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				rail.Debugf("Websocket read failed, client: %v, %v", c, err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
		c.handleCommand(rail, cmd)
	}
}

func (c *Client) handleCommand(rail core.Rail, cmd command) {
	switch strings.ToLower(cmd.Action) {
	case "join":
		if !c.canJoin(cmd.Room) {
			c.reply(NameError, map[string]string{"error": "room not allowed", "room": cmd.Room})
			return
		}
		c.hub.join(c, cmd.Room)
		rail.Debugf("Client %v joined room '%v'", c, cmd.Room)
	case "leave":
		c.hub.leave(c, cmd.Room)
	case "ping":
		c.reply(NamePong, nil)
	default:
		c.reply(NameError, map[string]string{"error": "unknown action", "action": cmd.Action})
	}
}

func (c *Client) reply(name string, data any) {
	byt, err := json.WriteJson(Message{Name: name, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		return
	}
	c.enqueue(byt)
}
