package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/playshelf/internal/feed"
	"github.com/MarcoPoloResearchLab/playshelf/internal/reorder"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const busyTimeoutMillis = 5000

var errMissingDatabasePath = errors.New("database path is required")

// schemaModels lists every table owned by the service.
var schemaModels = []interface{}{
	&feed.Snapshot{},
	&feed.LoadRecord{},
	&reorder.Audit{},
	&migrationRecord{},
}

// OpenSQLite opens the catalog database, creates missing tables and applies
// pending data migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errMissingDatabasePath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis)).Error; err != nil {
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := db.AutoMigrate(schemaModels...); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	logger.Info("database initialized",
		zap.String("path", path),
		zap.Int("tables", len(schemaModels)))
	return db, nil
}
