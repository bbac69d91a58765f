package consumer

import (
	"time"

	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/event"
)

const (
	// SLA deadline of critical priority, in minutes
	PropSlaPolicyCritical = "sla.policy.critical-minutes"

	// SLA deadline of high priority, in minutes
	PropSlaPolicyHigh = "sla.policy.high-minutes"

	// SLA deadline of medium priority, in minutes
	PropSlaPolicyMedium = "sla.policy.medium-minutes"

	// SLA deadline of low priority, in minutes
	PropSlaPolicyLow = "sla.policy.low-minutes"

	// SLA deadline when priority is unknown, in minutes
	PropSlaPolicyDefault = "sla.policy.default-minutes"

	// max number of timers examined in one breach scan
	PropSlaScanBatchSize = "sla.scan.batch-size"

	// ttl of notification dedup keys, in minutes
	PropNotificationDedupTtl = "notification.dedup.ttl-minutes"

	// consumer groups subscribed by this process
	PropConsumerGroups = "consumer.groups"
)

func init() {
	core.SetDefProp(PropSlaPolicyCritical, 240)
	core.SetDefProp(PropSlaPolicyHigh, 480)
	core.SetDefProp(PropSlaPolicyMedium, 1440)
	core.SetDefProp(PropSlaPolicyLow, 4320)
	core.SetDefProp(PropSlaPolicyDefault, 1440)
	core.SetDefProp(PropSlaScanBatchSize, 200)
	core.SetDefProp(PropNotificationDedupTtl, 1440)
	core.SetDefProp(PropConsumerGroups, []string{QueueNotifications, QueueAnalytics, QueueSlaMonitor, QueueWebSocketBroadcast})
}

// SlaPolicy maps priority to the time allowed to complete an entity.
type SlaPolicy struct {
	ByPriority map[event.Priority]time.Duration
	Default    time.Duration
}

func DefaultSlaPolicy() SlaPolicy {
	return SlaPolicy{
		ByPriority: map[event.Priority]time.Duration{
			event.PriorityCritical: 4 * time.Hour,
			event.PriorityHigh:     8 * time.Hour,
			event.PriorityMedium:   24 * time.Hour,
			event.PriorityLow:      72 * time.Hour,
		},
		Default: 24 * time.Hour,
	}
}

func LoadSlaPolicy(c *core.AppConfig) SlaPolicy {
	return SlaPolicy{
		ByPriority: map[event.Priority]time.Duration{
			event.PriorityCritical: c.GetPropDur(PropSlaPolicyCritical, time.Minute),
			event.PriorityHigh:     c.GetPropDur(PropSlaPolicyHigh, time.Minute),
			event.PriorityMedium:   c.GetPropDur(PropSlaPolicyMedium, time.Minute),
			event.PriorityLow:      c.GetPropDur(PropSlaPolicyLow, time.Minute),
		},
		Default: c.GetPropDur(PropSlaPolicyDefault, time.Minute),
	}
}

// Time allowed for the priority.
func (p SlaPolicy) Deadline(pr event.Priority) time.Duration {
	if d, ok := p.ByPriority[pr]; ok && d > 0 {
		return d
	}
	if p.Default > 0 {
		return p.Default
	}
	return 24 * time.Hour
}
