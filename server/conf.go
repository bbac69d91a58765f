package server

import (
	"time"

	"github.com/opsdesk/eventbus/core"
)

const (
	// http server host
	PropServerHost = "server.host"

	// http server port
	PropServerPort = "server.port"

	// time allowed for in-flight requests on shutdown, in seconds
	PropServerGracefulShutdownTimeSec = "server.graceful-shutdown-time-sec"

	// route of health check endpoint
	PropServerHealthRoute = "server.health.route"

	// route of the websocket endpoint
	PropServerWebSocketRoute = "server.websocket.route"

	// log every request and how long it takes
	PropServerPerfEnabled = "server.perf.enabled"
)

func init() {
	core.SetDefProp(PropServerHost, "0.0.0.0")
	core.SetDefProp(PropServerPort, 8080)
	core.SetDefProp(PropServerGracefulShutdownTimeSec, 5)
	core.SetDefProp(PropServerHealthRoute, "/health")
	core.SetDefProp(PropServerWebSocketRoute, "/ws")
	core.SetDefProp(PropServerPerfEnabled, false)
}

type Config struct {
	Host             string
	Port             string
	GracefulShutdown time.Duration
	HealthRoute      string
	Perf             bool
	Production       bool
}

func LoadConfig(c *core.AppConfig) Config {
	return Config{
		Host:             c.GetPropStr(PropServerHost),
		Port:             c.GetPropStr(PropServerPort),
		GracefulShutdown: c.GetPropDur(PropServerGracefulShutdownTimeSec, time.Second),
		HealthRoute:      c.GetPropStr(PropServerHealthRoute),
		Perf:             c.GetPropBool(PropServerPerfEnabled),
		Production:       c.GetPropBool(core.PropProdMode),
	}
}
