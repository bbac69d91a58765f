package core

// Common properties shared by every component.
const (
	PropAppName          = "app.name"
	PropProdMode         = "mode.production"
	PropConfigExtraFiles = "config.extra.files"

	PropLoggingLevel              = "logging.level"
	PropLoggingRollingFile        = "logging.rolling.file"
	PropLoggingRollingMaxSize     = "logging.rolling.max-size"
	PropLoggingRollingMaxAge      = "logging.rolling.max-age"
	PropLoggingRollingMaxBackups  = "logging.rolling.max-backups"
	PropLoggingRollingConsoleCopy = "logging.rolling.console-copy"
)

func init() {
	SetDefProp(PropAppName, "eventbus")
	SetDefProp(PropProdMode, true)
	SetDefProp(PropLoggingLevel, "info")
	SetDefProp(PropLoggingRollingMaxSize, 50)
	SetDefProp(PropLoggingRollingMaxAge, 7)
	SetDefProp(PropLoggingRollingMaxBackups, 10)
	SetDefProp(PropLoggingRollingConsoleCopy, false)
}
