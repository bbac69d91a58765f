package bus

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
	"github.com/opsdesk/eventbus/metrics"
)

// Handle an event, returning error triggers redelivery.
//
// Handlers may be called concurrently.
type Handler func(rail core.Rail, e *event.Event) error

type Subscription struct {
	Queue       string
	Patterns    []event.Pattern
	Handler     Handler
	Concurrency int // defaults to eventbus.consumer.concurrency
	Qos         int // defaults to eventbus.consumer.qos
}

// EventBus publishes events to the topic exchange and dispatches deliveries to subscribed handlers.
//
// Use New to create one, Init must be called before publishing.
type EventBus struct {
	broker Broker
	conf   Config

	mu          sync.Mutex
	initialized bool
	pending     []Subscription
}

func New(broker Broker, conf Config) *EventBus {
	if broker == nil {
		panic("broker is nil")
	}
	return &EventBus{broker: broker, conf: conf.withDefaults()}
}

func (b *EventBus) Exchange() string {
	return b.conf.Exchange
}

func (b *EventBus) Connected() bool {
	return b.broker.Connected()
}

// Declare the exchange, connect to the broker and start pending subscriptions.
func (b *EventBus) Init(rail core.Rail) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}

	if err := b.broker.DeclareExchange(rail, b.conf.Exchange); err != nil {
		return core.WrapErrf(err, "failed to declare exchange '%v'", b.conf.Exchange)
	}
	if err := b.broker.Connect(rail); err != nil {
		return core.ErrBrokerUnavailable.Wrapf(err, "failed to connect broker")
	}
	for _, s := range b.pending {
		if err := b.subscribe(rail, s); err != nil {
			return err
		}
	}
	b.pending = nil
	b.initialized = true
	rail.Infof("EventBus initialized, exchange: '%v'", b.conf.Exchange)
	return nil
}

// Close the broker connection, consumers are stopped and publishing fails afterwards.
func (b *EventBus) Shutdown(rail core.Rail) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.broker.Close(); err != nil {
		rail.Warnf("Failed to close broker, %v", err)
	}
	b.initialized = false
	rail.Info("EventBus shutdown")
}

// Publish event, true is returned only if the broker confirmed it.
func (b *EventBus) Publish(rail core.Rail, e *event.Event) bool {
	if err := b.PublishErr(rail, e); err != nil {
		rail.Errorf("Failed to publish event, %v", err)
		return false
	}
	return true
}

// Publish event and wait for the broker confirmation, bounded by eventbus.publish.confirm-timeout-ms.
//
// ErrBrokerUnavailable is returned immediately if the broker is not connected, nothing is buffered.
func (b *EventBus) PublishErr(rail core.Rail, e *event.Event) error {
	body, err := event.Encode(e)
	if err != nil {
		return err
	}
	if !b.broker.Connected() {
		metrics.IncPublished(e.Type().String(), false)
		return core.ErrBrokerUnavailable.New("event %v (%v) not published", e.Id(), e.Type())
	}

	headers := map[string]any{}
	core.UsePropagationKeys(func(key string) {
		if v := rail.CtxValStr(key); v != "" {
			headers[key] = v
		}
	})
	msg := Message{
		Id:          e.Id(),
		RoutingKey:  e.Type().String(),
		ContentType: ContentTypeJson,
		Headers:     headers,
		Body:        body,
	}

	if err := b.publish(rail, b.conf.Exchange, msg); err != nil {
		metrics.IncPublished(e.Type().String(), false)
		return core.WrapErrf(err, "event %v (%v) not published", e.Id(), e.Type())
	}
	metrics.IncPublished(e.Type().String(), true)
	rail.Debugf("Published event %v to exchange '%v', routingKey: '%v'", e.Id(), b.conf.Exchange, msg.RoutingKey)
	return nil
}

func (b *EventBus) publish(rail core.Rail, exchange string, msg Message) error {
	crail, cancel := rail.WithTimeout(b.conf.ConfirmTimeout)
	defer cancel()
	return b.broker.Publish(crail, exchange, msg)
}

// Subscribe handler to the queue bound by the patterns.
//
// Subscribing the same queue more than once (in one or more processes) makes them competing consumers.
// If the EventBus is not initialized yet, the subscription is started in Init.
func (b *EventBus) Subscribe(rail core.Rail, s Subscription) error {
	if s.Queue == "" {
		return core.NewErrf("queue name is empty")
	}
	if s.Handler == nil {
		return core.NewErrf("handler for queue '%v' is nil", s.Queue)
	}
	if s.Concurrency < 1 {
		s.Concurrency = b.conf.Concurrency
	}
	if s.Qos < 1 {
		s.Qos = b.conf.Qos
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		b.pending = append(b.pending, s)
		return nil
	}
	return b.subscribe(rail, s)
}

func (b *EventBus) subscribe(rail core.Rail, s Subscription) error {
	queues := []QueueSpec{
		{Name: s.Queue, Exchange: b.conf.Exchange, Bindings: s.Patterns},
		{Name: RedeliverQueue(s.Queue), MessageTTL: b.conf.Retry.Delay, DeadLetterTo: s.Queue},
	}
	if b.conf.Retry.DeadLetter {
		queues = append(queues, QueueSpec{Name: DeadLetterQueue(s.Queue)})
	}
	for _, q := range queues {
		if err := b.broker.DeclareQueue(rail, q); err != nil {
			return core.WrapErrf(err, "failed to declare queue '%v'", q.Name)
		}
	}

	err := b.broker.Consume(rail, ConsumerSpec{
		Queue:       s.Queue,
		Concurrency: s.Concurrency,
		Qos:         s.Qos,
		Handler:     b.listener(s),
	})
	if err != nil {
		return core.WrapErrf(err, "failed to consume queue '%v'", s.Queue)
	}
	rail.Infof("Subscribed queue '%v' to %v, concurrency: %v", s.Queue, s.Patterns, s.Concurrency)
	return nil
}

func (b *EventBus) listener(s Subscription) DeliveryFunc {
	return func(d Delivery) error {
		rail := restoreRail(d.Headers)

		e, err := event.Decode(d.Body)
		if err != nil {
			rail.Errorf("Dropped malformed message from queue '%v', messageId: %v, payload: '%s', %v", s.Queue, d.Id, d.Body, err)
			metrics.IncConsumed(s.Queue, metrics.ResultDropped)
			return nil
		}

		if err := b.invoke(rail, s, e); err != nil {
			return b.retry(rail, s.Queue, d, e, err)
		}
		metrics.IncConsumed(s.Queue, metrics.ResultAcked)
		return nil
	}
}

func (b *EventBus) invoke(rail core.Rail, s Subscription, e *event.Event) (err error) {
	timer := metrics.NewHandlerTimer(s.Queue)
	defer timer.ObserveDuration()

	defer func() {
		if v := recover(); v != nil {
			rail.Errorf("Handler of queue '%v' panicked, event: %v, %v\n%s", s.Queue, e.Id(), v, debug.Stack())
			err = core.NewErrf("handler panic recovered, %v", v)
		}
	}()

	if b.conf.HandlerTimeout > 0 {
		var cancel func()
		rail, cancel = rail.WithTimeout(b.conf.HandlerTimeout)
		defer cancel()
	}
	return s.Handler(rail, e)
}

func (b *EventBus) retry(rail core.Rail, queue string, d Delivery, e *event.Event, cause error) error {
	p := b.conf.Retry
	n := RetryCount(d.Headers)

	msg := d.Message
	msg.Headers = copyHeaders(d.Headers)

	if p.CanRetry(n) {
		msg.Headers[HeaderRetry] = n + 1
		msg.RoutingKey = RedeliverQueue(queue)
		if err := b.publish(rail, DefaultExchange, msg); err != nil {
			rail.Errorf("Failed to schedule redelivery of event %v, requeued, %v", e.Id(), err)
			metrics.IncConsumed(queue, metrics.ResultRequeued)
			return err
		}
		rail.Warnf("Failed to handle event %v (%v) in queue '%v', redelivery %d/%d scheduled, %v",
			e.Id(), e.Type(), queue, n+1, p.MaxRetry, cause)
		metrics.IncConsumed(queue, metrics.ResultRetried)
		return nil
	}

	if !p.DeadLetter {
		rail.Errorf("Failed to handle event %v (%v) in queue '%v' after %d redeliveries, event dropped, %v",
			e.Id(), e.Type(), queue, n, cause)
		metrics.IncConsumed(queue, metrics.ResultDropped)
		return nil
	}

	msg.Headers[HeaderError] = cause.Error()
	msg.Headers[HeaderOriginQueue] = queue
	msg.RoutingKey = DeadLetterQueue(queue)
	if err := b.publish(rail, DefaultExchange, msg); err != nil {
		rail.Errorf("Failed to dead-letter event %v, requeued, %v", e.Id(), err)
		metrics.IncConsumed(queue, metrics.ResultRequeued)
		return err
	}
	rail.Errorf("Failed to handle event %v (%v) in queue '%v' after %d redeliveries, moved to '%v', %v",
		e.Id(), e.Type(), queue, n, msg.RoutingKey, cause)
	metrics.IncConsumed(queue, metrics.ResultDeadLettered)
	return nil
}

// Restore trace from message headers.
func restoreRail(headers map[string]any) core.Rail {
	rail := core.EmptyRail()
	if headers == nil {
		return rail
	}
	core.UsePropagationKeys(func(key string) {
		if v, ok := headers[key]; ok {
			rail = rail.WithCtxVal(key, fmt.Sprintf("%v", v))
		}
	})
	return rail
}
