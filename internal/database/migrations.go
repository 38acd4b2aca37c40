package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/playshelf/internal/feed"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationPruneFeedSnapshots = "2026-10-01_prune_feed_snapshots"
	migrationBackfillLoadSource = "2026-10-05_backfill_load_source"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationPruneFeedSnapshots, apply: pruneFeedSnapshots},
		{name: migrationBackfillLoadSource, apply: backfillLoadSource},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// pruneFeedSnapshots keeps only the newest stored feed snapshot.
func pruneFeedSnapshots(db *gorm.DB) error {
	var latest feed.Snapshot
	err := db.Order("fetched_at_s DESC").Take(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return db.Where("snapshot_id <> ?", latest.SnapshotID).Delete(&feed.Snapshot{}).Error
}

// backfillLoadSource marks history rows written before the source column
// existed as feed loads.
func backfillLoadSource(db *gorm.DB) error {
	return db.Model(&feed.LoadRecord{}).
		Where("source = ''").
		Update("source", feed.LoadSourceFeed).Error
}
