package retry

import "time"

// Call f until it succeeds, the error is not retryable, or retries are exhausted.
//
// f is invoked at most 1+retries times, with the delay given by b between attempts (b may be nil).
// The last error is returned.
func Call(f func() error, retries int, b *Backoff, retryable func(err error) bool) error {
	err := f()
	for i := 0; err != nil && i < retries && retryable(err); i++ {
		if b != nil {
			time.Sleep(b.Next())
		}
		err = f()
	}
	return err
}
