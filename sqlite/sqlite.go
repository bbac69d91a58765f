package sqlite

import (
	"fmt"

	"github.com/opsdesk/eventbus/core"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Create new SQLite connection.
func NewConn(rail core.Rail, c Config) (*gorm.DB, error) {
	rail.Infof("Connecting to SQLite database '%s', enable WAL: %v", c.File, c.Wal)

	conf := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if c.LogSQL {
		conf.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(sqlite.Open(c.File), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite, %w", err)
	}

	tx, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect SQLite, %w", err)
	}

	// make sure the handle is actually connected
	if err := tx.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite, %w", err)
	}
	rail.Infof("SQLite connected: '%s'", c.File)

	// https://www.sqlite.org/pragma.html#pragma_journal_mode
	if c.Wal {
		var mode string
		if err := db.Raw("PRAGMA journal_mode=WAL").Scan(&mode).Error; err != nil {
			return db, fmt.Errorf("failed to enable WAL mode, %w", err)
		}
		rail.Debugf("Enabled SQLite WAL mode, result: %v", mode)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	tx, err := db.DB()
	if err != nil {
		return err
	}
	return tx.Close()
}
