package database

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradebot/src/model"
)

var DB *gorm.DB

// InitDB opens the order journal database and migrates its schema. The
// journal is an audit log only; the bot runs fine if callers skip this and
// pass a nil journal to the state machine.
func InitDB() error {
	config := GetConfig()

	var (
		db  *gorm.DB
		err error
	)

	switch config.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(config.DSN), &gorm.Config{PrepareStmt: true})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(config.DSN), &gorm.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", config.Driver)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", config.Driver, err)
	}

	if err := db.AutoMigrate(&model.OrderRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	DB = db
	logger.WithField("driver", config.Driver).Info("Database connection initialized")
	return nil
}
