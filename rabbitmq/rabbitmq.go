package rabbitmq

import (
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opsdesk/eventbus/bus"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/metrics"
	"github.com/opsdesk/eventbus/util/retry"
	amqp "github.com/rabbitmq/amqp091-go"
)

var _ bus.Broker = (*Broker)(nil)

const (
	exchangeKind = "topic"
)

// Broker owns the single RabbitMQ connection of the process.
//
// Exchanges, queues and consumers are registered in Broker and redeclared every time the connection
// is (re)established. Messages are published through one confirm-mode channel, consumers open their
// own channels on the same connection.
type Broker struct {
	conf    Config
	backoff *retry.Backoff

	mu        sync.Mutex
	conn      *amqp.Connection // accessing it require obtaining 'mu' lock
	closed    bool
	done      chan struct{}
	exchanges []string
	queues    []bus.QueueSpec
	consumers []bus.ConsumerSpec

	pubMu sync.Mutex
	pubCh *amqp.Channel // accessing it require obtaining 'pubMu' lock

	connected atomic.Bool
}

func NewBroker(conf Config) *Broker {
	return &Broker{
		conf:    conf,
		backoff: retry.NewBackoff(conf.InitialBackoff, conf.MaxBackoff),
		done:    make(chan struct{}),
	}
}

func (b *Broker) Connected() bool {
	return b.connected.Load()
}

/*
Connect to RabbitMQ (synchronous for the first time, then auto-reconnect later in another goroutine).

Registered exchanges, queues and consumers are declared once the connection is established.

When connection is lost, it will attempt to reconnect with exponential backoff until Close is called.
*/
func (b *Broker) Connect(rail core.Rail) error {
	notifyClose, err := b.setup(rail)
	if err != nil {
		return err
	}
	go b.watch(notifyClose)
	return nil
}

// Open a new channel on the current connection.
//
// The caller is responsible for closing the channel.
func (b *Broker) Channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || b.conn.IsClosed() {
		return nil, core.ErrBrokerUnavailable.New("connection is closed")
	}
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, core.ErrBrokerUnavailable.Wrapf(err, "failed to open channel")
	}
	return ch, nil
}

// Disconnect from RabbitMQ server, reconnection is no longer attempted.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	b.markDisconnected()

	if b.conn == nil {
		return nil
	}
	core.EmptyRail().Info("Closing RabbitMQ connection")
	err := b.conn.Close()
	b.conn = nil
	return err
}

func (b *Broker) DeclareExchange(rail core.Rail, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exchanges = append(b.exchanges, name)
	return b.withChannelLocked(func(ch *amqp.Channel) error { return declareExchange(rail, ch, name) })
}

func (b *Broker) DeclareQueue(rail core.Rail, q bus.QueueSpec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues = append(b.queues, q)
	return b.withChannelLocked(func(ch *amqp.Channel) error { return declareQueue(rail, ch, q) })
}

func (b *Broker) Consume(rail core.Rail, c bus.ConsumerSpec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumers = append(b.consumers, c)
	if b.conn == nil || b.conn.IsClosed() {
		return nil // started on connect
	}
	return startConsumer(rail, b.conn, c)
}

// Publish message with confirmation, the wait is bounded by rail's context.
func (b *Broker) Publish(rail core.Rail, exchange string, msg bus.Message) error {
	if !b.Connected() {
		return core.ErrBrokerUnavailable.New("not connected")
	}

	b.pubMu.Lock()
	ch := b.pubCh
	if ch == nil || ch.IsClosed() {
		b.pubMu.Unlock()
		return core.ErrBrokerUnavailable.New("publishing channel is closed")
	}
	publishing := amqp.Publishing{
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Id,
		Timestamp:    time.Now(),
		Headers:      toTable(msg.Headers),
		Body:         msg.Body,
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(rail.Context(), exchange, msg.RoutingKey, false, false, publishing)
	b.pubMu.Unlock()
	if err != nil {
		return core.ErrPublishNotConfirmed.Wrapf(err, "failed to publish message")
	}

	ok, err := confirm.WaitContext(rail.Context())
	if err != nil {
		return core.ErrPublishNotConfirmed.Wrapf(err, "confirmation not received")
	}
	if !ok {
		return core.ErrPublishNotConfirmed.New("exchange '%v' probably doesn't exist", exchange)
	}
	return nil
}

func (b *Broker) setup(rail core.Rail) (chan *amqp.Error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, core.ErrBrokerUnavailable.New("broker is closed")
	}

	conn, err := b.dial(rail)
	if err != nil {
		return nil, core.ErrBrokerUnavailable.Wrapf(err, "failed to connect RabbitMQ server")
	}
	b.conn = conn
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

	// exchanges, queues, bindings
	err = b.withChannelLocked(func(ch *amqp.Channel) error {
		for _, name := range b.exchanges {
			if err := declareExchange(rail, ch, name); err != nil {
				return err
			}
		}
		for _, q := range b.queues {
			if err := declareQueue(rail, ch, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	// publisher
	if err := b.openPublisher(rail, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	// consumers
	for _, c := range b.consumers {
		if err := startConsumer(rail, conn, c); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	b.connected.Store(true)
	metrics.SetBrokerConnected(true)
	rail.Debug("RabbitMQ client initialization finished")
	return notifyClose, nil
}

func (b *Broker) dial(rail core.Rail) (*amqp.Connection, error) {
	c := amqp.Config{Properties: amqp.Table{}}
	if b.conf.ConnectionName != "" {
		c.Properties["connection_name"] = b.conf.ConnectionName
	}
	rail.Infof("Establish connection to RabbitMQ: '%s@%s:%d/%s'", b.conf.Username, b.conf.Host, b.conf.Port, b.conf.Vhost)
	return amqp.DialConfig(dialUrl(b.conf), c)
}

// Block until the connection is closed, then reconnect with backoff.
func (b *Broker) watch(notifyClose chan *amqp.Error) {
	rail := core.EmptyRail()
	for {
		select {
		case err := <-notifyClose:
			b.markDisconnected()
			if b.isClosed() {
				return
			}
			rail.Warnf("RabbitMQ connection lost, reconnecting, %v", err)

			for {
				wait := b.backoff.Next()
				select {
				case <-time.After(wait):
				case <-b.done:
					return
				}
				n, err := b.setup(rail)
				if err == nil {
					notifyClose = n
					b.backoff.Reset()
					rail.Info("Reconnected to RabbitMQ")
					break
				}
				rail.Errorf("Failed to reconnect RabbitMQ, %v", err)
			}
		case <-b.done:
			return
		}
	}
}

func (b *Broker) markDisconnected() {
	b.connected.Store(false)
	metrics.SetBrokerConnected(false)
}

func (b *Broker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Run f with a temporary channel, nothing is done if the connection is not established.
func (b *Broker) withChannelLocked(f func(ch *amqp.Channel) error) error {
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	ch, err := b.conn.Channel()
	if err != nil {
		return core.WrapErrf(err, "failed to create channel")
	}
	defer ch.Close()
	return f(ch)
}

func (b *Broker) openPublisher(rail core.Rail, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return core.WrapErrf(err, "failed to create publishing channel")
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return core.WrapErrf(err, "channel could not be put into confirm mode")
	}

	b.pubMu.Lock()
	b.pubCh = ch
	b.pubMu.Unlock()

	// a channel error (e.g., publishing to an unknown exchange) closes the channel but not the connection
	notifyClose := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		err, ok := <-notifyClose
		if !ok || err == nil || conn.IsClosed() {
			return
		}
		rail.Warnf("RabbitMQ publishing channel closed, reopening, %v", err)
		if err := b.openPublisher(rail, conn); err != nil {
			rail.Errorf("Failed to reopen publishing channel, %v", err)
		}
	}()

	rail.Debug("Created RabbitMQ publishing channel")
	return nil
}

func declareExchange(rail core.Rail, ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(name, exchangeKind, true, false, false, false, nil); err != nil {
		return core.WrapErrf(err, "failed to declare exchange '%v'", name)
	}
	rail.Debugf("Declared %s exchange '%s'", exchangeKind, name)
	return nil
}

func declareQueue(rail core.Rail, ch *amqp.Channel, q bus.QueueSpec) error {
	dq, err := ch.QueueDeclare(q.Name, true, false, false, false, queueArgs(q))
	if err != nil {
		return core.WrapErrf(err, "failed to declare queue '%v'", q.Name)
	}
	rail.Debugf("Declared queue '%s'", dq.Name)

	for _, p := range q.Bindings {
		if err := ch.QueueBind(q.Name, p.String(), q.Exchange, false, nil); err != nil {
			return core.WrapErrf(err, "failed to declare binding, queue: %v, routingKey: %v, exchange: %v", q.Name, p, q.Exchange)
		}
		rail.Debugf("Declared binding for queue '%s' to exchange '%s' using routingKey '%s'", q.Name, q.Exchange, p)
	}
	return nil
}

// Delay queue has no consumer, once the messages are expired, they are routed back to the original queue
// through the default exchange.
//
// 	src: https://ivanyu.me/blog/2015/02/16/delayed-message-delivery-in-rabbitmq/
func queueArgs(q bus.QueueSpec) amqp.Table {
	if q.MessageTTL <= 0 {
		return nil
	}
	args := amqp.Table{"x-message-ttl": q.MessageTTL.Milliseconds()}
	if q.DeadLetterTo != "" {
		args["x-dead-letter-exchange"] = bus.DefaultExchange
		args["x-dead-letter-routing-key"] = q.DeadLetterTo
	}
	return args
}

func startConsumer(rail core.Rail, conn *amqp.Connection, c bus.ConsumerSpec) error {
	ch, err := conn.Channel()
	if err != nil {
		return core.WrapErrf(err, "failed to create consumer channel for '%v'", c.Queue)
	}
	if c.Qos > 0 {
		if err := ch.Qos(c.Qos, 0, false); err != nil {
			_ = ch.Close()
			return core.WrapErrf(err, "failed to set qos for '%v'", c.Queue)
		}
	}
	deliveries, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return core.WrapErrf(err, "failed to listen to '%v'", c.Queue)
	}

	concurrency := c.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		go listen(rail, c, deliveries, i)
	}
	rail.Infof("Bootstrapped consumer for '%v' with concurrency: %v, qos: %v", c.Queue, concurrency, c.Qos)
	return nil
}

func listen(rail core.Rail, c bus.ConsumerSpec, deliveries <-chan amqp.Delivery, routineNo int) {
	name := fmt.Sprintf("Listener [%d-%v]", routineNo, c.Queue)
	rail.Debugf("%v started", name)
	defer rail.Debugf("%v stopped", name)

	for d := range deliveries {
		err := c.Handler(bus.Delivery{
			Message: bus.Message{
				Id:          d.MessageId,
				RoutingKey:  d.RoutingKey,
				ContentType: d.ContentType,
				Headers:     map[string]any(d.Headers),
				Body:        d.Body,
			},
			Queue:       c.Queue,
			Redelivered: d.Redelivered,
		})
		if err == nil {
			_ = d.Ack(false)
			continue
		}
		_ = d.Nack(false, true)
		rail.Debugf("Nacked message: %v", d.MessageId)
	}
}

// Convert headers to amqp.Table, plain ints are not valid AMQP field values.
func toTable(h map[string]any) amqp.Table {
	if len(h) < 1 {
		return nil
	}
	t := make(amqp.Table, len(h))
	for k, v := range h {
		switch vv := v.(type) {
		case int:
			t[k] = int64(vv)
		case uint:
			t[k] = int64(vv)
		default:
			t[k] = v
		}
	}
	return t
}

func dialUrl(c Config) string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
	}
	if c.Vhost != "" {
		u.Path = "/" + c.Vhost
	}
	return u.String()
}
