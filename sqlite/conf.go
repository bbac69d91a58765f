package sqlite

import "github.com/opsdesk/eventbus/core"

const (
	// path to SQLite database file, SLA timers are kept in memory when it's empty
	PropSqliteFile = "sqlite.file"

	// enable WAL mode
	PropSqliteWalEnabled = "sqlite.wal.enabled"

	// log sql statements
	PropSqliteLogSQL = "sqlite.log-sql"
)

func init() {
	core.SetDefProp(PropSqliteFile, "")
	core.SetDefProp(PropSqliteWalEnabled, true)
	core.SetDefProp(PropSqliteLogSQL, false)
}

type Config struct {
	File   string
	Wal    bool
	LogSQL bool
}

func LoadConfig(c *core.AppConfig) Config {
	return Config{
		File:   c.GetPropStr(PropSqliteFile),
		Wal:    c.GetPropBool(PropSqliteWalEnabled),
		LogSQL: c.GetPropBool(PropSqliteLogSQL),
	}
}
