package kafka

import "github.com/opsdesk/eventbus/core"

const (
	// enable kafka analytics sink, analytics records are only logged when disabled
	PropKafkaEnabled = "kafka.enabled"

	// list of kafka server addresses
	PropKafkaServerAddr = "kafka.server.addr"

	// topic of tracked events
	PropKafkaTopicEvents = "kafka.topic.events"

	// topic of work order performance records
	PropKafkaTopicPerformance = "kafka.topic.performance"

	// topic of sprint velocity records
	PropKafkaTopicVelocity = "kafka.topic.velocity"
)

func init() {
	core.SetDefProp(PropKafkaEnabled, false)
	core.SetDefProp(PropKafkaServerAddr, []string{"localhost:9092"})
	core.SetDefProp(PropKafkaTopicEvents, "itsm.analytics.events")
	core.SetDefProp(PropKafkaTopicPerformance, "itsm.analytics.work-order-performance")
	core.SetDefProp(PropKafkaTopicVelocity, "itsm.analytics.sprint-velocity")
}

type Topics struct {
	Events      string
	Performance string
	Velocity    string
}

type Config struct {
	Addrs  []string
	Topics Topics
}

func LoadConfig(c *core.AppConfig) Config {
	return Config{
		Addrs: c.GetPropStrSlice(PropKafkaServerAddr),
		Topics: Topics{
			Events:      c.GetPropStr(PropKafkaTopicEvents),
			Performance: c.GetPropStr(PropKafkaTopicPerformance),
			Velocity:    c.GetPropStr(PropKafkaTopicVelocity),
		},
	}
}

func Enabled(c *core.AppConfig) bool {
	return c.GetPropBool(PropKafkaEnabled)
}
