package kafka

import (
	"context"

	"github.com/opsdesk/eventbus/consumer"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/encoding/json"
	"github.com/segmentio/kafka-go"
)

var _ consumer.AnalyticsStore = (*AnalyticsStore)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AnalyticsStore writes analytics records to kafka topics as json.
//
// Records of the same entity share the same key, so they are kept in order within a partition.
type AnalyticsStore struct {
	w      messageWriter
	topics Topics
}

func NewAnalyticsStore(rail core.Rail, c Config) *AnalyticsStore {
	return &AnalyticsStore{w: NewWriter(rail, c.Addrs), topics: c.Topics}
}

func (s *AnalyticsStore) Track(rail core.Rail, e consumer.TrackedEvent) error {
	return s.write(rail, s.topics.Events, e.EntityId, e)
}

func (s *AnalyticsStore) RecordPerformance(rail core.Rail, p consumer.WorkOrderPerformance) error {
	return s.write(rail, s.topics.Performance, p.WorkOrderId, p)
}

func (s *AnalyticsStore) RecordVelocity(rail core.Rail, v consumer.SprintVelocity) error {
	return s.write(rail, s.topics.Velocity, v.SprintId, v)
}

func (s *AnalyticsStore) write(rail core.Rail, topic string, key string, value any) error {
	byt, err := json.WriteJson(value)
	if err != nil {
		return core.WrapErrf(err, "failed to marshal kafka message for topic %v", topic)
	}
	err = s.w.WriteMessages(rail.Context(), kafka.Message{
		Topic:   topic,
		Headers: traceHeaders(rail),
		Key:     []byte(key),
		Value:   byt,
	})
	if err != nil {
		return core.WrapErrf(err, "failed to write kafka message to topic %v", topic)
	}
	rail.Debugf("Wrote kafka message to topic %v, key: %v", topic, key)
	return nil
}

func (s *AnalyticsStore) Close() error {
	return s.w.Close()
}
