package task

import (
	"time"

	"github.com/opsdesk/eventbus/consumer"
	"github.com/opsdesk/eventbus/core"
)

const SlaScanJobName = "sla-breach-scan"

// Job that flags running SLA timers past due, see consumer.SlaMonitor.ScanBreaches.
func SlaScanJob(m *consumer.SlaMonitor, cron string, batchSize int) Job {
	return Job{
		Name:            SlaScanJobName,
		Cron:            cron,
		CronWithSeconds: true,
		Run: func(rail core.Rail) error {
			_, err := m.ScanBreaches(rail, time.Now(), batchSize)
			return err
		},
	}
}
