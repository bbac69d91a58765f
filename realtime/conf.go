package realtime

import (
	"time"

	"github.com/opsdesk/eventbus/core"
)

const (
	// enable websocket endpoint
	PropRealtimeEnabled = "realtime.enabled"

	// size of the per-client send buffer, clients are disconnected when it's full
	PropRealtimeSendBuffer = "realtime.send-buffer"

	// interval of ping frames, in seconds
	PropRealtimePingInterval = "realtime.ping-interval-sec"
)

func init() {
	core.SetDefProp(PropRealtimeEnabled, true)
	core.SetDefProp(PropRealtimeSendBuffer, 32)
	core.SetDefProp(PropRealtimePingInterval, 30)
}

type Config struct {
	SendBuffer   int
	PingInterval time.Duration
}

func LoadConfig(c *core.AppConfig) Config {
	return Config{
		SendBuffer:   c.GetPropInt(PropRealtimeSendBuffer),
		PingInterval: c.GetPropDur(PropRealtimePingInterval, time.Second),
	}
}

func (c Config) withDefaults() Config {
	if c.SendBuffer < 1 {
		c.SendBuffer = 32
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	return c
}
