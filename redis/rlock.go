package redis

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/opsdesk/eventbus/core"
)

// Check whether the error is 'redislock.ErrNotObtained'
func IsRLockNotObtainedErr(err error) bool {
	return errors.Is(err, redislock.ErrNotObtained)
}

// RLock is a distributed lock, the lease is refreshed in background until Unlock is called.
type RLock struct {
	rail            core.Rail
	client          *Client
	key             string
	retry           redislock.RetryStrategy
	cancelRefresher func()
	lock            *redislock.Lock
}

// Create RLock that retries every 5ms for at most wait.
//
// Zero wait means the lock is only tried once.
func (c *Client) NewRLock(rail core.Rail, key string, wait time.Duration) *RLock {
	window := 5 * time.Millisecond
	retry := redislock.NoRetry()
	if wait > window {
		retry = redislock.LimitRetry(redislock.LinearBackoff(window), int(wait/window))
	}
	return &RLock{rail: rail, client: c, key: c.Key(key), retry: retry}
}

// Acquire lock.
func (r *RLock) Lock() error {
	rlocker := redislock.New(r.client.rdb)
	lock, err := rlocker.Obtain(r.key, lockLeaseTime, &redislock.Options{RetryStrategy: r.retry})
	if err != nil {
		return core.WrapErrf(err, "failed to obtain lock, key: %v", r.key)
	}
	r.lock = lock
	r.rail.Debugf("Obtained lock for key '%s'", r.key)

	refreshCtx, cancel := context.WithCancel(context.Background())
	r.cancelRefresher = cancel

	go func() {
		ticker := time.NewTicker(lockRefreshTime)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := lock.Refresh(lockLeaseTime, nil); err != nil {
					if errors.Is(err, redislock.ErrNotObtained) {
						return
					}
					r.rail.Warnf("Failed to refresh RLock for '%v', %v", r.key, err)
				}
			case <-refreshCtx.Done():
				return
			}
		}
	}()
	return nil
}

// Try to acquire lock, false is returned if it's held by others.
func (r *RLock) TryLock() (bool, error) {
	if err := r.Lock(); err != nil {
		if IsRLockNotObtainedErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release the lock, ignored if the lock is not obtained.
func (r *RLock) Unlock() error {
	if r.lock == nil {
		return nil
	}
	if r.cancelRefresher != nil {
		r.cancelRefresher()
	}
	err := r.lock.Release()
	r.lock = nil
	if err != nil {
		r.rail.Errorf("Failed to release lock for key '%s', err: %v", r.key, err)
		return err
	}
	r.rail.Debugf("Released lock for key '%s'", r.key)
	return nil
}

// Run f only if the lock is obtained, false is returned if the lock is held by others.
func (c *Client) TryLockRun(rail core.Rail, key string, f func() error) (bool, error) {
	lock := c.NewRLock(rail, key, 0)
	ok, err := lock.TryLock()
	if err != nil || !ok {
		return false, err
	}
	defer lock.Unlock()
	return true, f()
}
