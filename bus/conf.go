package bus

import (
	"time"

	"github.com/opsdesk/eventbus/core"
)

const (
	// broker implementation: rabbitmq, memory
	PropEventBusBroker = "eventbus.broker"

	// name of the topic exchange
	PropEventBusExchange = "eventbus.exchange"

	// max time to wait for broker confirmation, in milliseconds
	PropPublishConfirmTimeout = "eventbus.publish.confirm-timeout-ms"

	// max number of redeliveries for a failed delivery
	PropConsumerMaxRetry = "eventbus.consumer.max-retry"

	// delay before a failed delivery is redelivered, in milliseconds
	PropConsumerRedeliverDelay = "eventbus.consumer.redeliver-delay-ms"

	// default number of goroutines per subscription
	PropConsumerConcurrency = "eventbus.consumer.concurrency"

	// default prefetch count per subscription
	PropConsumerQos = "eventbus.consumer.qos"

	// max time a handler can take, in milliseconds, 0 means no limit
	PropConsumerHandlerTimeout = "eventbus.consumer.handler-timeout-ms"

	// move deliveries that exhausted the retry budget to '<queue>.dead-letter'
	PropConsumerDeadLetterEnabled = "eventbus.consumer.dead-letter.enabled"
)

const (
	BrokerRabbitMQ = "rabbitmq"
	BrokerMemory   = "memory"

	DefaultExchangeName = "itsm.events"

	MinRedeliverDelay = 10 * time.Millisecond
)

func init() {
	core.SetDefProp(PropEventBusBroker, BrokerRabbitMQ)
	core.SetDefProp(PropEventBusExchange, DefaultExchangeName)
	core.SetDefProp(PropPublishConfirmTimeout, 5000)
	core.SetDefProp(PropConsumerMaxRetry, 3)
	core.SetDefProp(PropConsumerRedeliverDelay, 5000)
	core.SetDefProp(PropConsumerConcurrency, 2)
	core.SetDefProp(PropConsumerQos, 68)
	core.SetDefProp(PropConsumerHandlerTimeout, 30000)
	core.SetDefProp(PropConsumerDeadLetterEnabled, true)
}

type Config struct {
	Exchange       string
	ConfirmTimeout time.Duration
	Retry          RetryPolicy
	Concurrency    int
	Qos            int
	HandlerTimeout time.Duration
}

// Load Config from the given AppConfig.
func LoadConfig(c *core.AppConfig) Config {
	return Config{
		Exchange:       c.GetPropStr(PropEventBusExchange),
		ConfirmTimeout: c.GetPropDur(PropPublishConfirmTimeout, time.Millisecond),
		Retry: RetryPolicy{
			MaxRetry:   c.GetPropInt(PropConsumerMaxRetry),
			Delay:      c.GetPropDur(PropConsumerRedeliverDelay, time.Millisecond),
			DeadLetter: c.GetPropBool(PropConsumerDeadLetterEnabled),
		},
		Concurrency:    c.GetPropInt(PropConsumerConcurrency),
		Qos:            c.GetPropInt(PropConsumerQos),
		HandlerTimeout: c.GetPropDur(PropConsumerHandlerTimeout, time.Millisecond),
	}
}

// Load Config from the global AppConfig.
func GlobalConfig() Config {
	return LoadConfig(core.GlobalConfig())
}

func (c Config) withDefaults() Config {
	if c.Exchange == "" {
		c.Exchange = DefaultExchangeName
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 5 * time.Second
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Retry.MaxRetry < 0 {
		c.Retry.MaxRetry = 0
	}
	// the redeliver queue only routes messages back once they expire
	if c.Retry.Delay < MinRedeliverDelay {
		c.Retry.Delay = MinRedeliverDelay
	}
	return c
}
