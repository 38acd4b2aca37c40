package feed

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Snapshot stores the body of the last successfully loaded feed document.
type Snapshot struct {
	SnapshotID       string `gorm:"column:snapshot_id;primaryKey;size:64;not null"`
	FetchedAtSeconds int64  `gorm:"column:fetched_at_s;not null;index"`
	SourceURL        string `gorm:"column:source_url;size:2048;not null;default:''"`
	Body             string `gorm:"column:body;type:text;not null"`
	RowCount         int    `gorm:"column:row_count;not null;default:0"`
	RecordCount      int    `gorm:"column:record_count;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (Snapshot) TableName() string {
	return "feed_snapshots"
}

// LoadRecord is the history entry of one load attempt.
type LoadRecord struct {
	LoadID             string     `gorm:"column:load_id;primaryKey;size:64;not null" json:"load_id"`
	Source             LoadSource `gorm:"column:source;size:16;not null" json:"source"`
	Status             LoadStatus `gorm:"column:status;size:16;not null;index" json:"status"`
	StartedAtSeconds   int64      `gorm:"column:started_at_s;not null;index" json:"started_at_s"`
	CompletedAtSeconds int64      `gorm:"column:completed_at_s;not null" json:"completed_at_s"`
	RecordCount        int        `gorm:"column:record_count;not null;default:0" json:"record_count"`
	ErrorMessage       string     `gorm:"column:error_message;type:text;not null;default:''" json:"error,omitempty"`
}

// TableName provides the explicit table binding for GORM.
func (LoadRecord) TableName() string {
	return "feed_loads"
}

// GormStore persists snapshots and load history through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// SaveSnapshot stores a snapshot and discards every older one, so the table
// holds at most the newest document.
func (s *GormStore) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&snapshot).Error; err != nil {
			return err
		}
		var newest Snapshot
		if err := tx.Order("fetched_at_s DESC").Order("snapshot_id DESC").Take(&newest).Error; err != nil {
			return err
		}
		return tx.Where("snapshot_id <> ?", newest.SnapshotID).Delete(&Snapshot{}).Error
	})
}

// LatestSnapshot returns the most recently fetched snapshot, if any.
func (s *GormStore) LatestSnapshot(ctx context.Context) (Snapshot, bool, error) {
	var snapshot Snapshot
	err := s.db.WithContext(ctx).
		Order("fetched_at_s DESC").
		Take(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	return snapshot, true, nil
}

// RecordLoad appends a load history entry.
func (s *GormStore) RecordLoad(ctx context.Context, record LoadRecord) error {
	return s.db.WithContext(ctx).Create(&record).Error
}

// RecentLoads returns up to limit load entries, newest first.
func (s *GormStore) RecentLoads(ctx context.Context, limit int) ([]LoadRecord, error) {
	records := []LoadRecord{}
	if err := s.db.WithContext(ctx).
		Order("started_at_s DESC").
		Order("load_id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
