package redis

import (
	"time"

	"github.com/opsdesk/eventbus/core"
)

const (
	// enable Redis client, notification dedup keys and the SLA scan lock are kept in memory when disabled
	PropRedisEnabled = "redis.enabled"

	// Redis server host
	PropRedisAddress = "redis.address"

	// Redis server port
	PropRedisPort = "redis.port"

	// password
	PropRedisPassword = "redis.password"

	// database
	PropRedisDatabase = "redis.database"

	// prefix of every key written by eventbus
	PropRedisKeyPrefix = "redis.key-prefix"
)

func init() {
	core.SetDefProp(PropRedisEnabled, false)
	core.SetDefProp(PropRedisAddress, "localhost")
	core.SetDefProp(PropRedisPort, 6379)
	core.SetDefProp(PropRedisPassword, "")
	core.SetDefProp(PropRedisDatabase, 0)
	core.SetDefProp(PropRedisKeyPrefix, "eventbus:")
}

type Config struct {
	Address   string
	Port      string
	Password  string
	Db        int
	KeyPrefix string
}

func LoadConfig(c *core.AppConfig) Config {
	return Config{
		Address:   c.GetPropStr(PropRedisAddress),
		Port:      c.GetPropStr(PropRedisPort),
		Password:  c.GetPropStr(PropRedisPassword),
		Db:        c.GetPropInt(PropRedisDatabase),
		KeyPrefix: c.GetPropStr(PropRedisKeyPrefix),
	}
}

func Enabled(c *core.AppConfig) bool {
	return c.GetPropBool(PropRedisEnabled)
}

var (
	lockLeaseTime   = 30 * time.Second
	lockRefreshTime = 10 * time.Second
)
