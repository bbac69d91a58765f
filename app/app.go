package app

import (
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opsdesk/eventbus/bus"
	"github.com/opsdesk/eventbus/consumer"
	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/kafka"
	"github.com/opsdesk/eventbus/metrics"
	"github.com/opsdesk/eventbus/publisher"
	"github.com/opsdesk/eventbus/rabbitmq"
	"github.com/opsdesk/eventbus/realtime"
	"github.com/opsdesk/eventbus/redis"
	"github.com/opsdesk/eventbus/server"
	"github.com/opsdesk/eventbus/sqlite"
	"github.com/opsdesk/eventbus/task"
)

// App wires the EventBus, consumer groups, stores and the http server together.
type App struct {
	conf *core.AppConfig

	Bus         *bus.EventBus
	Ops         *publisher.Ops
	PM          *publisher.PM
	ServiceDesk *publisher.ServiceDesk
	Sla         *consumer.SlaMonitor
	Hub         *realtime.Hub
	Server      *server.Server

	shmu          sync.Mutex
	shutdownHooks []func(rail core.Rail)
}

func New(conf *core.AppConfig) *App {
	return &App{conf: conf}
}

// Register shutdown hook, hooks are triggered in reverse order.
func (a *App) AddShutdownHook(hook func(rail core.Rail)) {
	a.shmu.Lock()
	defer a.shmu.Unlock()
	a.shutdownHooks = append(a.shutdownHooks, hook)
}

// Bootstrap every component, components already bootstrapped are shut down if it fails.
func (a *App) Bootstrap(rail core.Rail) (err error) {
	defer func() {
		if err != nil {
			a.Shutdown(rail)
		}
	}()

	start := time.Now()
	c := a.conf

	a.Bus = bus.New(a.newBroker(rail), bus.LoadConfig(c))
	a.Ops = publisher.NewOps(a.Bus)
	a.PM = publisher.NewPM(a.Bus)
	a.ServiceDesk = publisher.NewServiceDesk(a.Bus)

	var (
		deduper consumer.Deduper
		locker  task.Locker
		rcli    *redis.Client
	)
	dedupTtl := c.GetPropDur(consumer.PropNotificationDedupTtl, time.Minute)
	if redis.Enabled(c) {
		if rcli, err = redis.Connect(rail, redis.LoadConfig(c)); err != nil {
			return err
		}
		a.AddShutdownHook(func(rail core.Rail) { rail.WarnIf(rcli.Close(), "close redis") })
		deduper = redis.NewDeduper(rcli, dedupTtl)
		locker = rcli
	} else {
		deduper = consumer.NewMemDeduper(dedupTtl)
	}

	timers, err := a.newTimerStore(rail)
	if err != nil {
		return err
	}
	analytics := a.newAnalyticsStore(rail)

	a.Sla = consumer.NewSlaMonitor(timers, consumer.LogAlerter{}, consumer.LoadSlaPolicy(c))
	ws := consumer.NewWebSocketBroadcaster(nil)
	all := map[string]consumer.Group{
		consumer.QueueNotifications:      consumer.NewNotificationConsumer(consumer.LogNotifier{}, deduper),
		consumer.QueueAnalytics:          consumer.NewAnalyticsConsumer(analytics),
		consumer.QueueSlaMonitor:         a.Sla,
		consumer.QueueWebSocketBroadcast: ws,
	}
	enabled := c.GetPropStrSlice(consumer.PropConsumerGroups)
	for _, name := range enabled {
		g, ok := all[name]
		if !ok {
			return core.NewErrf("unknown consumer group '%v'", name)
		}
		if err := consumer.Register(rail, a.Bus, g); err != nil {
			return err
		}
	}

	if err := a.Bus.Init(rail); err != nil {
		return err
	}
	a.AddShutdownHook(func(rail core.Rail) { a.Bus.Shutdown(rail) })

	if c.GetPropBool(realtime.PropRealtimeEnabled) {
		a.Hub = realtime.NewHub(realtime.LoadConfig(c))
		ws.SetBroadcaster(a.Hub)
		a.AddShutdownHook(func(rail core.Rail) {
			ws.SetBroadcaster(nil)
			a.Hub.Close()
		})
	}

	if err := a.startServer(rail, rcli); err != nil {
		return err
	}

	if c.GetPropBool(task.PropTaskSchedulingEnabled) && slices.Contains(enabled, consumer.QueueSlaMonitor) {
		sche := task.NewScheduler(locker)
		job := task.SlaScanJob(a.Sla, c.GetPropStr(task.PropSlaScanCron), c.GetPropInt(consumer.PropSlaScanBatchSize))
		if err := sche.ScheduleCron(job); err != nil {
			return err
		}
		sche.Start(rail)
		a.AddShutdownHook(func(rail core.Rail) { sche.Stop() })
	}

	rail.Infof("%v bootstrapped, took: %v, consumer groups: %v", c.GetPropStr(core.PropAppName), time.Since(start), enabled)
	return nil
}

func (a *App) newBroker(rail core.Rail) bus.Broker {
	switch v := a.conf.GetPropStr(bus.PropEventBusBroker); v {
	case bus.BrokerMemory:
		rail.Warn("Using in-memory broker, events are not shared with other processes")
		return bus.NewMemBroker()
	default:
		if v != bus.BrokerRabbitMQ {
			rail.Warnf("Unknown broker '%v', fallback to %v", v, bus.BrokerRabbitMQ)
		}
		return rabbitmq.NewBroker(rabbitmq.LoadConfig(a.conf))
	}
}

func (a *App) newTimerStore(rail core.Rail) (consumer.TimerStore, error) {
	sc := sqlite.LoadConfig(a.conf)
	if sc.File == "" {
		return consumer.NewMemTimerStore(), nil
	}
	db, err := sqlite.NewConn(rail, sc)
	if err != nil {
		return nil, err
	}
	a.AddShutdownHook(func(rail core.Rail) { rail.WarnIf(sqlite.Close(db), "close sqlite") })
	return sqlite.NewTimerStore(rail, db)
}

func (a *App) newAnalyticsStore(rail core.Rail) consumer.AnalyticsStore {
	if !kafka.Enabled(a.conf) {
		return consumer.LogAnalyticsStore{}
	}
	s := kafka.NewAnalyticsStore(rail, kafka.LoadConfig(a.conf))
	a.AddShutdownHook(func(rail core.Rail) { rail.WarnIf(s.Close(), "close kafka writer") })
	return s
}

func (a *App) startServer(rail core.Rail, rcli *redis.Client) error {
	c := a.conf
	a.Server = server.New(server.LoadConfig(c))
	a.Server.AddHealthIndicator(server.HealthIndicator{
		Name:        "EventBus Broker",
		CheckHealth: func(rail core.Rail) bool { return a.Bus.Connected() },
	})
	if rcli != nil {
		a.Server.AddHealthIndicator(server.HealthIndicator{Name: "Redis", CheckHealth: rcli.Ping})
	}
	if c.GetPropBool(metrics.PropMetricsEnabled) {
		a.Server.GET(c.GetPropStr(metrics.PropMetricsRoute), gin.WrapH(metrics.PrometheusHandler()))
	}
	if a.Hub != nil {
		a.Server.GET(c.GetPropStr(server.PropServerWebSocketRoute), realtime.Handler(a.Hub))
	}
	if err := a.Server.Start(rail); err != nil {
		return err
	}
	a.AddShutdownHook(func(rail core.Rail) { a.Server.Shutdown(rail) })
	return nil
}

// Trigger shutdown hooks.
func (a *App) Shutdown(rail core.Rail) {
	a.shmu.Lock()
	hooks := a.shutdownHooks
	a.shutdownHooks = nil
	a.shmu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i](rail)
	}
}

/*
Read config, bootstrap the app and block until Interrupt or SIGTERM is received.

Config is read using core.DefaultReadConfig, see conf.yml for the props.
*/
func Run(args []string) {
	rail := core.EmptyRail()
	c := core.GlobalConfig()
	c.DefaultReadConfig(args, rail)
	if closer := core.ConfigureLogging(rail); closer != nil {
		defer closer.Close()
	}

	a := New(c)
	if err := a.Bootstrap(rail); err != nil {
		rail.Errorf("Failed to bootstrap, %v", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 2)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	rail.Infof("Received %v, shutting down", sig)
	a.Shutdown(rail)
}
