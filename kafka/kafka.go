package kafka

import (
	"github.com/opsdesk/eventbus/core"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/protocol"
)

// Create new Kafka Writer using default Transport.
func NewWriter(rail core.Rail, addrs []string) *kafka.Writer {
	rail.Infof("Connecting to kafka: %v", addrs)
	return &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(core.Logger().Debugf),
		ErrorLogger:            kafka.LoggerFunc(core.Logger().Errorf),
	}
}

// Headers carrying the trace of the rail.
func traceHeaders(rail core.Rail) []kafka.Header {
	headers := []kafka.Header{}
	core.UsePropagationKeys(func(key string) {
		if v := rail.CtxValStr(key); v != "" {
			headers = append(headers, protocol.Header{Key: key, Value: []byte(v)})
		}
	})
	return headers
}
