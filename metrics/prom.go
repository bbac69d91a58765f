package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventbus"

// results of consumed messages
const (
	ResultAcked        = "acked"
	ResultRetried      = "retried"
	ResultDeadLettered = "dead_lettered"
	ResultDropped      = "dropped"
	ResultRequeued     = "requeued"
)

var (
	published = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "published_total",
		Help:      "Number of events published, partitioned by event type and whether the broker confirmed it.",
	}, []string{"type", "confirmed"})

	consumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consumed_total",
		Help:      "Number of deliveries consumed, partitioned by queue and outcome.",
	}, []string{"queue", "result"})

	handlerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "handler_duration_seconds",
		Help:      "Duration of event handlers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"queue"})

	brokerConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broker_connected",
		Help:      "Whether the broker connection is currently established.",
	})

	slaBreached = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sla_breached_total",
		Help:      "Number of SLA breaches detected, partitioned by entity kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(published, consumed, handlerDuration, brokerConnected, slaBreached)
}

func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}

func IncPublished(eventType string, confirmed bool) {
	c := "false"
	if confirmed {
		c = "true"
	}
	published.WithLabelValues(eventType, c).Inc()
}

func IncConsumed(queue string, result string) {
	consumed.WithLabelValues(queue, result).Inc()
}

func IncSlaBreached(kind string) {
	slaBreached.WithLabelValues(kind).Inc()
}

func SetBrokerConnected(connected bool) {
	if connected {
		brokerConnected.Set(1)
	} else {
		brokerConnected.Set(0)
	}
}

// Create timer that observes the handler duration of the queue.
//
// Call ObserveDuration() when the handler returns.
func NewHandlerTimer(queue string) *prometheus.Timer {
	return prometheus.NewTimer(handlerDuration.WithLabelValues(queue))
}
