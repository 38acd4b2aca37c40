package feed

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MarcoPoloResearchLab/playshelf/internal/games"
	"github.com/MarcoPoloResearchLab/playshelf/internal/identifier"
	"github.com/MarcoPoloResearchLab/playshelf/internal/serviceerr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LoadStatus reports the outcome of the latest load attempt.
type LoadStatus string

const (
	LoadStatusIdle   LoadStatus = "idle"
	LoadStatusReady  LoadStatus = "ready"
	LoadStatusFailed LoadStatus = "failed"
)

// LoadSource names where a working set came from.
type LoadSource string

const (
	LoadSourceFeed     LoadSource = "feed"
	LoadSourceSnapshot LoadSource = "snapshot"
)

const (
	opLoaderNew = "feed.loader.new"
	opReload    = "feed.reload"
	opRestore   = "feed.restore"

	reloadFlightKey = "reload"
)

var (
	errMissingFetcher    = errors.New("fetcher is required")
	errMissingIDProvider = errors.New("id provider is required")
	errNoCatalog         = errors.New("no catalog has been loaded")
	noOpLogger           = zap.NewNop()
)

// LoadState describes the latest load attempt and the working set in use.
type LoadState struct {
	LoadID        string     `json:"load_id"`
	Status        LoadStatus `json:"status"`
	Source        LoadSource `json:"source"`
	RecordCount   int        `json:"record_count"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   time.Time  `json:"completed_at"`
	LastSuccessAt time.Time  `json:"last_success_at"`
}

// Fetcher retrieves the raw feed document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	Source() string
}

// Store persists snapshots and load history.
type Store interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	LatestSnapshot(ctx context.Context) (Snapshot, bool, error)
	RecordLoad(ctx context.Context, record LoadRecord) error
}

// ReloadObserver is notified after every successful reload from the feed.
type ReloadObserver interface {
	CatalogReloaded(state LoadState)
}

// LoaderConfig describes the dependencies of a Loader.
type LoaderConfig struct {
	Fetcher    Fetcher
	Store      Store
	Observer   ReloadObserver
	IDProvider identifier.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
	// Timeout bounds a shared reload independently of any single caller.
	Timeout time.Duration
}

// Loader owns the current working set and replaces it on reload.
type Loader struct {
	fetcher    Fetcher
	store      Store
	observer   ReloadObserver
	idProvider identifier.Provider
	clock      func() time.Time
	logger     *zap.Logger
	timeout    time.Duration

	catalog atomic.Pointer[games.Catalog]
	flight  singleflight.Group

	mu    sync.RWMutex
	state LoadState
}

// NewLoader validates the configuration and returns an idle Loader.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if cfg.Fetcher == nil {
		return nil, serviceerr.New(opLoaderNew, "missing_fetcher", errMissingFetcher)
	}
	if cfg.IDProvider == nil {
		return nil, serviceerr.New(opLoaderNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Loader{
		fetcher:    cfg.Fetcher,
		store:      cfg.Store,
		observer:   cfg.Observer,
		idProvider: cfg.IDProvider,
		clock:      clock,
		logger:     logger,
		timeout:    timeout,
		state:      LoadState{Status: LoadStatusIdle},
	}, nil
}

// Catalog returns the current working set, or false before the first
// successful load.
func (l *Loader) Catalog() (*games.Catalog, bool) {
	catalog := l.catalog.Load()
	return catalog, catalog != nil
}

// State returns the latest load state.
func (l *Loader) State() LoadState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Reload fetches and parses the feed and swaps in the new working set.
// Concurrent callers share a single fetch. On failure the previous working
// set stays in place. A caller whose context ends stops waiting, but the
// shared fetch keeps running for the remaining callers.
func (l *Loader) Reload(ctx context.Context) (LoadState, error) {
	results := l.flight.DoChan(reloadFlightKey, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return l.reload(flightCtx)
	})
	select {
	case <-ctx.Done():
		return l.State(), ctx.Err()
	case result := <-results:
		state, _ := result.Val.(LoadState)
		return state, result.Err
	}
}

func (l *Loader) reload(ctx context.Context) (LoadState, error) {
	loadID, err := l.idProvider.NewID()
	if err != nil {
		l.logError(opReload, "id_generation_failed", err)
		return l.State(), serviceerr.New(opReload, "id_generation_failed", err)
	}
	startedAt := l.clock().UTC()

	body, err := l.fetcher.Fetch(ctx)
	if err != nil {
		return l.fail(ctx, loadID, startedAt, "fetch_failed", err)
	}
	rows, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		return l.fail(ctx, loadID, startedAt, "parse_failed", err)
	}

	catalog := games.NewCatalogFromRows(rows)
	l.catalog.Store(catalog)
	completedAt := l.clock().UTC()

	state := LoadState{
		LoadID:        loadID,
		Status:        LoadStatusReady,
		Source:        LoadSourceFeed,
		RecordCount:   catalog.Len(),
		StartedAt:     startedAt,
		CompletedAt:   completedAt,
		LastSuccessAt: completedAt,
	}
	l.setState(state)
	l.logger.Info("catalog reloaded",
		zap.String("load_id", loadID),
		zap.Int("rows", len(rows)),
		zap.Int("records", catalog.Len()))

	if l.store != nil {
		snapshot := Snapshot{
			SnapshotID:       loadID,
			FetchedAtSeconds: completedAt.Unix(),
			SourceURL:        l.fetcher.Source(),
			Body:             string(body),
			RowCount:         len(rows),
			RecordCount:      catalog.Len(),
		}
		if err := l.store.SaveSnapshot(ctx, snapshot); err != nil {
			l.logError(opReload, "snapshot_save_failed", err, zap.String("load_id", loadID))
		}
	}
	l.recordLoad(ctx, state)

	if l.observer != nil {
		l.observer.CatalogReloaded(state)
	}
	return state, nil
}

func (l *Loader) fail(ctx context.Context, loadID string, startedAt time.Time, reason string, cause error) (LoadState, error) {
	l.logError(opReload, reason, cause, zap.String("load_id", loadID))

	l.mu.Lock()
	state := l.state
	state.LoadID = loadID
	state.Status = LoadStatusFailed
	state.Error = cause.Error()
	state.StartedAt = startedAt
	state.CompletedAt = l.clock().UTC()
	l.state = state
	l.mu.Unlock()

	l.recordLoad(ctx, state)
	return state, serviceerr.New(opReload, reason, cause)
}

// Restore seeds the working set from the latest stored snapshot. It reports
// false when no store is configured or no snapshot exists.
func (l *Loader) Restore(ctx context.Context) (bool, error) {
	if l.store == nil {
		return false, nil
	}
	snapshot, found, err := l.store.LatestSnapshot(ctx)
	if err != nil {
		l.logError(opRestore, "snapshot_load_failed", err)
		return false, serviceerr.New(opRestore, "snapshot_load_failed", err)
	}
	if !found {
		return false, nil
	}
	rows, err := ParseCSV(bytes.NewReader([]byte(snapshot.Body)))
	if err != nil {
		l.logError(opRestore, "parse_failed", err, zap.String("snapshot_id", snapshot.SnapshotID))
		return false, serviceerr.New(opRestore, "parse_failed", err)
	}

	catalog := games.NewCatalogFromRows(rows)
	if !l.catalog.CompareAndSwap(nil, catalog) {
		return false, nil
	}
	fetchedAt := time.Unix(snapshot.FetchedAtSeconds, 0).UTC()
	l.setState(LoadState{
		LoadID:        snapshot.SnapshotID,
		Status:        LoadStatusReady,
		Source:        LoadSourceSnapshot,
		RecordCount:   catalog.Len(),
		StartedAt:     fetchedAt,
		CompletedAt:   fetchedAt,
		LastSuccessAt: fetchedAt,
	})
	l.logger.Info("catalog restored from snapshot",
		zap.String("snapshot_id", snapshot.SnapshotID),
		zap.Int("records", catalog.Len()))
	return true, nil
}

// Query runs q against the current working set.
func (l *Loader) Query(q games.Query) (games.Result, error) {
	catalog, ok := l.Catalog()
	if !ok {
		return games.Result{}, errNoCatalog
	}
	return catalog.Query(q), nil
}

// ErrNoCatalog reports whether err means no working set is loaded yet.
func ErrNoCatalog(err error) bool {
	return errors.Is(err, errNoCatalog)
}

func (l *Loader) setState(state LoadState) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

func (l *Loader) recordLoad(ctx context.Context, state LoadState) {
	if l.store == nil {
		return
	}
	record := LoadRecord{
		LoadID:             state.LoadID,
		Source:             LoadSourceFeed,
		Status:             state.Status,
		StartedAtSeconds:   state.StartedAt.Unix(),
		CompletedAtSeconds: state.CompletedAt.Unix(),
		RecordCount:        state.RecordCount,
		ErrorMessage:       state.Error,
	}
	if state.Status == LoadStatusFailed {
		record.RecordCount = 0
	}
	if err := l.store.RecordLoad(ctx, record); err != nil {
		l.logError(opReload, "load_record_failed", err, zap.String("load_id", state.LoadID))
	}
}

func (l *Loader) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	l.logger.Error("feed loader error", attrs...)
}
