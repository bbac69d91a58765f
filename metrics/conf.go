package metrics

import "github.com/opsdesk/eventbus/core"

const (
	// enable the metrics endpoint
	PropMetricsEnabled = "metrics.enabled"

	// route of the metrics endpoint
	PropMetricsRoute = "metrics.route"
)

func init() {
	core.SetDefProp(PropMetricsEnabled, true)
	core.SetDefProp(PropMetricsRoute, "/metrics")
}
