package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"agentexecutor/src/model"
)

// SignalDB is the read-only connection used to poll signals produced by the
// external classification pipeline. The database user for this connection
// should have SELECT-only permissions; provenance updates go through MainDB.
var SignalDB *gorm.DB

// InitSignalDB initializes the read-only signal database connection.
// It never runs migrations; the signal schema is owned by the producer.
func InitSignalDB() error {
	config := GetConfig()
	db, err := gorm.Open(openDialector(config.DatabaseURLSignals),
		&gorm.Config{
			PrepareStmt:    true,
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to signal database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from SignalDB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping SignalDB: %w", err)
	}

	// Verify the signal table is actually reachable before the loops start.
	var count int64
	if err := db.Model(&model.Signal{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to access agent_signals: %w", err)
	}

	logrus.WithField("count", count).Info("[SignalDB] agent_signals reachable")

	SignalDB = db

	return nil
}
