package realtime

import "time"

const (
	NameConnected = "system.connected"
	NamePong      = "system.pong"
	NameError     = "system.error"
)

// Message pushed to clients.
type Message struct {
	Room      string    `json:"room,omitempty"`
	Name      string    `json:"name"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Command sent by clients.
type command struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}
