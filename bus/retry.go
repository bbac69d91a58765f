package bus

import (
	"maps"
	"time"

	"github.com/spf13/cast"
)

const (
	// Header of the message, number of times the message has been redelivered.
	HeaderRetry = "x-eventbus-retry"

	// Header of dead-lettered message, the last error returned by the handler.
	HeaderError = "x-eventbus-error"

	// Header of dead-lettered message, the queue that failed to handle the message.
	HeaderOriginQueue = "x-eventbus-origin-queue"
)

// RetryPolicy of failed deliveries.
//
// A handler that keeps failing is invoked 1 + MaxRetry times, then the message is moved to
// the dead-letter queue (or dropped if DeadLetter is false).
type RetryPolicy struct {
	MaxRetry   int
	Delay      time.Duration
	DeadLetter bool
}

// Whether a message that has been redelivered n times can be redelivered again.
func (p RetryPolicy) CanRetry(n int) bool {
	return n < p.MaxRetry
}

// Read the redelivery count from headers.
//
// AMQP tables may carry the number as any integer type (or even string), cast handles them all.
func RetryCount(headers map[string]any) int {
	if headers == nil {
		return 0
	}
	v, ok := headers[HeaderRetry]
	if !ok {
		return 0
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func copyHeaders(h map[string]any) map[string]any {
	c := make(map[string]any, len(h)+2)
	maps.Copy(c, h)
	return c
}

func RedeliverQueue(queue string) string {
	return queue + ".redeliver"
}

func DeadLetterQueue(queue string) string {
	return queue + ".dead-letter"
}
