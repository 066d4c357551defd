package dbclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnknownDialect = errors.New("unknown database dialect")

type Config struct {
	Dialect string
	DSN     string
	// Attempts bounds the connect retries while the database container starts.
	Attempts int
}

func dialector(cfg *Config) (gorm.Dialector, error) {
	switch cfg.Dialect {
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, cfg.Dialect)
	}
}

func Open(cfg *Config) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var db *gorm.DB
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(d, &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr == nil {
				if cfg.Dialect == "sqlite" {
					sqlDB.SetMaxOpenConns(1)
				} else {
					sqlDB.SetMaxIdleConns(5)
					sqlDB.SetMaxOpenConns(20)
					sqlDB.SetConnMaxLifetime(time.Hour)
				}
				return db, nil
			}
			err = sqlErr
		}
		time.Sleep(time.Duration(500+i*200) * time.Millisecond)
	}

	return nil, err
}
