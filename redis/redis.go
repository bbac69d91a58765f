package redis

import (
	"errors"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/opsdesk/eventbus/core"
)

const (
	Nil = redis.Nil
)

// Client wraps the redis connection and the key prefix shared by eventbus components.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Connect to redis and ping it.
func Connect(rail core.Rail, c Config) (*Client, error) {
	rail.Infof("Connecting to redis '%v:%v', database: %v", c.Address, c.Port, c.Db)
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", c.Address, c.Port),
		Password: c.Password,
		DB:       c.Db,
	})

	if err := rdb.Ping().Err(); err != nil {
		_ = rdb.Close()
		return nil, core.WrapErrf(err, "ping redis failed")
	}

	rail.Info("Redis connection initialized")
	return &Client{rdb: rdb, prefix: c.KeyPrefix}, nil
}

// Wrap an existing redis client.
func NewClient(rdb *redis.Client, keyPrefix string) *Client {
	return &Client{rdb: rdb, prefix: keyPrefix}
}

func (c *Client) Redis() *redis.Client {
	return c.rdb
}

func (c *Client) Key(key string) string {
	return c.prefix + key
}

func (c *Client) Ping(rail core.Rail) bool {
	if err := c.rdb.Ping().Err(); err != nil {
		rail.Errorf("Redis ping failed, %v", err)
		return false
	}
	return true
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get string value, empty string is returned if the key is absent.
func (c *Client) GetStr(key string) (string, error) {
	v, err := c.rdb.Get(c.Key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}
