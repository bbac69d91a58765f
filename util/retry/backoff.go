package retry

import (
	"sync"
	"time"
)

// Exponential backoff, doubling from Initial up to Max.
//
// Backoff is thread-safe, the zero value starts from 1s and caps at 30s.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration

	mu   sync.Mutex
	curr time.Duration
}

func NewBackoff(initial time.Duration, max time.Duration) *Backoff {
	return &Backoff{Initial: initial, Max: max}
}

// Next delay.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	initial, max := b.Initial, b.Max
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = 30 * time.Second
		if max < initial {
			max = initial
		}
	}

	if b.curr <= 0 {
		b.curr = initial
	} else {
		b.curr *= 2
		if b.curr > max {
			b.curr = max
		}
	}
	return b.curr
}

// Reset backoff, the next delay is Initial again.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.curr = 0
}
