package reorder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/playshelf/internal/identifier"
	"github.com/MarcoPoloResearchLab/playshelf/internal/serviceerr"
	"github.com/MarcoPoloResearchLab/playshelf/internal/sheets"
	"go.uber.org/zap"
)

const (
	opServiceNew = "reorder.service.new"
	opApply      = "reorder.apply"
)

var (
	errMissingIDProvider  = errors.New("id provider is required")
	errMissingCredentials = errors.New("spreadsheet credentials are not configured")
	noOpLogger            = zap.NewNop()
)

// SheetClient reads and writes spreadsheet values.
type SheetClient interface {
	GetValues(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error)
	BatchUpdateValues(ctx context.Context, spreadsheetID string, ranges []sheets.ValueRange) (int, error)
}

// AuditStore persists write-back audits.
type AuditStore interface {
	RecordAudit(ctx context.Context, audit Audit) error
}

// ServiceConfig describes the dependencies of a Service. A nil Sheets client
// means no credentials were configured; Apply then fails every request.
type ServiceConfig struct {
	Sheets               SheetClient
	Store                AuditStore
	IDProvider           identifier.Provider
	DefaultSpreadsheetID string
	DefaultSheetName     string
	Clock                func() time.Time
	Logger               *zap.Logger
}

// Service writes manual order values back to the spreadsheet.
type Service struct {
	sheets               SheetClient
	store                AuditStore
	idProvider           identifier.Provider
	defaultSpreadsheetID string
	defaultSheetName     string
	clock                func() time.Time
	logger               *zap.Logger
}

// NewService validates the configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.IDProvider == nil {
		return nil, serviceerr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		sheets:               cfg.Sheets,
		store:                cfg.Store,
		idProvider:           cfg.IDProvider,
		defaultSpreadsheetID: cfg.DefaultSpreadsheetID,
		defaultSheetName:     cfg.DefaultSheetName,
		clock:                clock,
		logger:               logger,
	}, nil
}

// Apply writes each matched order value into the sheet. Ids that are absent
// from the sheet are reported in Result.Unmatched and otherwise skipped.
// Errors wrapping ErrInvalidRequest are caused by the request or the sheet
// layout; every other error is an upstream failure.
func (s *Service) Apply(ctx context.Context, request Request) (Result, error) {
	plan, err := newPlan(request, s.defaultSpreadsheetID, s.defaultSheetName)
	if err != nil {
		return Result{}, serviceerr.New(opApply, invalidReason(err), err)
	}
	if s.sheets == nil {
		s.logError("missing_credentials", errMissingCredentials)
		return Result{}, serviceerr.New(opApply, "missing_credentials", errMissingCredentials)
	}

	requestID, err := s.idProvider.NewID()
	if err != nil {
		s.logError("id_generation_failed", err)
		return Result{}, serviceerr.New(opApply, "id_generation_failed", err)
	}

	result, reason, err := s.write(ctx, plan)
	result.RequestID = requestID
	s.recordAudit(ctx, requestID, plan, result, err)
	if err != nil {
		if !errors.Is(err, ErrInvalidRequest) {
			s.logError(reason, err,
				zap.String("request_id", requestID),
				zap.String("spreadsheet_id", plan.spreadsheetID))
		}
		return Result{}, serviceerr.New(opApply, reason, err)
	}

	s.logger.Info("order values written",
		zap.String("request_id", requestID),
		zap.String("spreadsheet_id", plan.spreadsheetID),
		zap.String("sheet", plan.sheetName),
		zap.String("mode", string(plan.mode)),
		zap.Int("updated", result.Updated),
		zap.Int("unmatched", len(result.Unmatched)))
	return result, nil
}

func (s *Service) write(ctx context.Context, plan writePlan) (Result, string, error) {
	headerRows, err := s.sheets.GetValues(ctx, plan.spreadsheetID, sheets.RowRange(plan.sheetName, 1))
	if err != nil {
		return Result{}, "header_read_failed", err
	}
	var header []string
	if len(headerRows) > 0 {
		header = headerRows[0]
	}
	idColumn, orderColumn, err := locateColumns(header, plan.mode)
	if err != nil {
		return Result{}, missingHeaderReason(err), err
	}

	idRows, err := s.sheets.GetValues(ctx, plan.spreadsheetID, sheets.ColumnRange(plan.sheetName, idColumn))
	if err != nil {
		return Result{}, "id_read_failed", err
	}
	rowByID := make(map[string]int, len(idRows))
	for index := 1; index < len(idRows); index++ {
		if len(idRows[index]) == 0 {
			continue
		}
		id := strings.TrimSpace(idRows[index][0])
		if id == "" {
			continue
		}
		if _, exists := rowByID[id]; !exists {
			rowByID[id] = index + 1
		}
	}

	ranges := make([]sheets.ValueRange, 0, len(plan.updates))
	unmatched := make([]string, 0)
	for _, update := range plan.updates {
		id := update.ExternalGameID.String()
		row, found := rowByID[id]
		if !found {
			unmatched = append(unmatched, id)
			continue
		}
		ranges = append(ranges, sheets.ValueRange{
			Range:  sheets.CellRange(plan.sheetName, orderColumn, row),
			Values: [][]interface{}{{update.Order.String()}},
		})
	}

	result := Result{OK: true, Unmatched: unmatched}
	if len(ranges) == 0 {
		return result, "", nil
	}
	if _, err := s.sheets.BatchUpdateValues(ctx, plan.spreadsheetID, ranges); err != nil {
		return Result{Unmatched: unmatched}, "write_failed", err
	}
	result.Updated = len(ranges)
	return result, "", nil
}

func (s *Service) recordAudit(ctx context.Context, requestID string, plan writePlan, result Result, cause error) {
	if s.store == nil {
		return
	}
	audit := Audit{
		RequestID:        requestID,
		SpreadsheetID:    plan.spreadsheetID,
		SheetName:        plan.sheetName,
		Mode:             plan.mode,
		RequestedCount:   len(plan.updates),
		UpdatedCount:     result.Updated,
		UnmatchedCount:   len(result.Unmatched),
		Status:           AuditStatusApplied,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if cause != nil {
		audit.Status = AuditStatusFailed
		audit.ErrorMessage = cause.Error()
	}
	if err := s.store.RecordAudit(ctx, audit); err != nil {
		s.logError("audit_insert_failed", err, zap.String("request_id", requestID))
	}
}

func (s *Service) logError(reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", opApply),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("reorder service error", attrs...)
}

func invalidReason(err error) string {
	if errors.Is(err, ErrInvalidMode) {
		return "invalid_mode"
	}
	return "invalid_request"
}

func missingHeaderReason(err error) string {
	if errors.Is(err, ErrMissingOrderHeader) {
		return "missing_order_header"
	}
	return "missing_id_header"
}
