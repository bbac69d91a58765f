package rabbitmq

import (
	"time"

	"github.com/opsdesk/eventbus/core"
)

const (
	// RabbitMQ server host
	PropRabbitMqHost = "rabbitmq.host"

	// RabbitMQ server port
	PropRabbitMqPort = "rabbitmq.port"

	// username used to connect to server
	PropRabbitMqUsername = "rabbitmq.username"

	// password used to connect to server
	PropRabbitMqPassword = "rabbitmq.password"

	// virtual host
	PropRabbitMqVhost = "rabbitmq.vhost"

	// initial delay before reconnecting, in milliseconds
	PropRabbitMqReconnectInitialBackoff = "rabbitmq.reconnect.initial-backoff-ms"

	// max delay between reconnect attempts, in milliseconds
	PropRabbitMqReconnectMaxBackoff = "rabbitmq.reconnect.max-backoff-ms"
)

func init() {
	core.SetDefProp(PropRabbitMqHost, "localhost")
	core.SetDefProp(PropRabbitMqPort, 5672)
	core.SetDefProp(PropRabbitMqUsername, "guest")
	core.SetDefProp(PropRabbitMqPassword, "guest")
	core.SetDefProp(PropRabbitMqVhost, "")
	core.SetDefProp(PropRabbitMqReconnectInitialBackoff, 1000)
	core.SetDefProp(PropRabbitMqReconnectMaxBackoff, 30000)
}

type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Vhost          string
	ConnectionName string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func LoadConfig(c *core.AppConfig) Config {
	return Config{
		Host:           c.GetPropStr(PropRabbitMqHost),
		Port:           c.GetPropInt(PropRabbitMqPort),
		Username:       c.GetPropStr(PropRabbitMqUsername),
		Password:       c.GetPropStr(PropRabbitMqPassword),
		Vhost:          c.GetPropStr(PropRabbitMqVhost),
		ConnectionName: c.GetPropStr(core.PropAppName),
		InitialBackoff: c.GetPropDur(PropRabbitMqReconnectInitialBackoff, time.Millisecond),
		MaxBackoff:     c.GetPropDur(PropRabbitMqReconnectMaxBackoff, time.Millisecond),
	}
}
