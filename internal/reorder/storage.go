package reorder

import (
	"context"

	"gorm.io/gorm"
)

// AuditStatus records how a write-back request ended.
type AuditStatus string

const (
	AuditStatusApplied AuditStatus = "applied"
	AuditStatusFailed  AuditStatus = "failed"
)

// Audit is the persisted trace of one write-back request.
type Audit struct {
	RequestID        string      `gorm:"column:request_id;primaryKey;size:64;not null" json:"request_id"`
	SpreadsheetID    string      `gorm:"column:spreadsheet_id;size:190;not null;index" json:"spreadsheet_id"`
	SheetName        string      `gorm:"column:sheet_name;size:190;not null" json:"sheet_name"`
	Mode             Mode        `gorm:"column:mode;size:16;not null" json:"mode"`
	RequestedCount   int         `gorm:"column:requested_count;not null;default:0" json:"requested"`
	UpdatedCount     int         `gorm:"column:updated_count;not null;default:0" json:"updated"`
	UnmatchedCount   int         `gorm:"column:unmatched_count;not null;default:0" json:"unmatched"`
	Status           AuditStatus `gorm:"column:status;size:16;not null" json:"status"`
	ErrorMessage     string      `gorm:"column:error_message;type:text;not null;default:''" json:"error,omitempty"`
	CreatedAtSeconds int64       `gorm:"column:created_at_s;not null;index" json:"created_at_s"`
}

// TableName provides the explicit table binding for GORM.
func (Audit) TableName() string {
	return "reorder_audits"
}

// GormAuditStore persists audits through GORM.
type GormAuditStore struct {
	db *gorm.DB
}

// NewGormAuditStore wraps an open database handle.
func NewGormAuditStore(db *gorm.DB) *GormAuditStore {
	return &GormAuditStore{db: db}
}

// RecordAudit appends an audit entry.
func (s *GormAuditStore) RecordAudit(ctx context.Context, audit Audit) error {
	return s.db.WithContext(ctx).Create(&audit).Error
}

// RecentAudits returns up to limit audits, newest first.
func (s *GormAuditStore) RecentAudits(ctx context.Context, limit int) ([]Audit, error) {
	audits := []Audit{}
	if err := s.db.WithContext(ctx).
		Order("created_at_s DESC").
		Order("request_id DESC").
		Limit(limit).
		Find(&audits).Error; err != nil {
		return nil, err
	}
	return audits, nil
}
