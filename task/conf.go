package task

import "github.com/opsdesk/eventbus/core"

const (
	// enable scheduled jobs
	PropTaskSchedulingEnabled = "task.scheduling.enabled"

	// cron expression (with seconds) of the SLA breach scan
	PropSlaScanCron = "task.sla-scan.cron"
)

func init() {
	core.SetDefProp(PropTaskSchedulingEnabled, true)
	core.SetDefProp(PropSlaScanCron, "*/30 * * * * *")
}
