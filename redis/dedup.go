package redis

import (
	"time"

	"github.com/opsdesk/eventbus/core"
)

// Deduper backed by SETNX, keys expire after ttl so that a long lost event may be notified again.
//
// Deduper is shared by every process subscribed to the same queue.
type Deduper struct {
	client *Client
	ttl    time.Duration
}

func NewDeduper(client *Client, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

func (d *Deduper) Acquire(rail core.Rail, key string) (bool, error) {
	k := d.client.Key(key)
	ok, err := d.client.rdb.SetNX(k, time.Now().UnixMilli(), d.ttl).Result()
	if err != nil {
		return false, core.WrapErrf(err, "failed to setnx key '%v'", k)
	}
	if !ok {
		rail.Debugf("Dedup key '%v' exists", k)
	}
	return ok, nil
}

func (d *Deduper) Release(rail core.Rail, key string) error {
	k := d.client.Key(key)
	if err := d.client.rdb.Del(k).Err(); err != nil {
		return core.WrapErrf(err, "failed to delete key '%v'", k)
	}
	return nil
}
