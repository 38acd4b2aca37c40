package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/playshelf/internal/feed"
	"github.com/MarcoPoloResearchLab/playshelf/internal/games"
	"github.com/MarcoPoloResearchLab/playshelf/internal/reorder"
	"github.com/MarcoPoloResearchLab/playshelf/internal/serviceerr"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultHistoryLimit      = 20
	maxHistoryLimit          = 200
)

var (
	errMissingCatalog        = errors.New("catalog dependency required")
	errMissingReorderService = errors.New("reorder service dependency required")
	errInvalidLimit          = errors.New("limit must be a positive integer")
)

// CatalogSource serves the current working set and reloads it on demand.
type CatalogSource interface {
	Catalog() (*games.Catalog, bool)
	Query(q games.Query) (games.Result, error)
	State() feed.LoadState
	Reload(ctx context.Context) (feed.LoadState, error)
}

// Reorderer writes manual order values back to the spreadsheet.
type Reorderer interface {
	Apply(ctx context.Context, request reorder.Request) (reorder.Result, error)
}

// LoadHistory lists recent feed load attempts.
type LoadHistory interface {
	RecentLoads(ctx context.Context, limit int) ([]feed.LoadRecord, error)
}

// AuditHistory lists recent write-back audits.
type AuditHistory interface {
	RecentAudits(ctx context.Context, limit int) ([]reorder.Audit, error)
}

type Dependencies struct {
	Catalog           CatalogSource
	Reorder           Reorderer
	Loads             LoadHistory
	Audits            AuditHistory
	Realtime          *RealtimeDispatcher
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Catalog == nil {
		return nil, errMissingCatalog
	}
	if deps.Reorder == nil {
		return nil, errMissingReorderService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		catalog:           deps.Catalog,
		reorder:           deps.Reorder,
		loads:             deps.Loads,
		audits:            deps.Audits,
		realtime:          realtime,
		heartbeatInterval: heartbeat,
		logger:            logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/catalog", handler.handleCatalogQuery)
	router.GET("/catalog/status", handler.handleCatalogStatus)
	router.GET("/catalog/games/*key", handler.handleGameDetails)
	router.POST("/catalog/reload", handler.handleCatalogReload)
	router.GET("/catalog/events", handler.handleCatalogEvents)
	router.POST("/reorder", handler.handleReorder)
	if deps.Loads != nil {
		router.GET("/catalog/loads", handler.handleLoadHistory)
	}
	if deps.Audits != nil {
		router.GET("/reorder/audits", handler.handleAuditHistory)
	}

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Cache-Control", "Last-Event-ID"},
		MaxAge:       12 * time.Hour,
	}
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return cors.New(config)
}

type httpHandler struct {
	catalog           CatalogSource
	reorder           Reorderer
	loads             LoadHistory
	audits            AuditHistory
	realtime          *RealtimeDispatcher
	heartbeatInterval time.Duration
	logger            *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type catalogResponsePayload struct {
	Games  []games.Record    `json:"games"`
	Total  int               `json:"total"`
	Facets games.FacetCounts `json:"facets"`
	Load   feed.LoadState    `json:"load"`
}

func (h *httpHandler) handleCatalogQuery(c *gin.Context) {
	query, err := parseCatalogQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_query", "message": err.Error()})
		return
	}

	result, err := h.catalog.Query(query)
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, catalogResponsePayload{
		Games:  result.Games,
		Total:  result.Total,
		Facets: result.Facets,
		Load:   h.catalog.State(),
	})
}

func (h *httpHandler) handleCatalogStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.State())
}

func (h *httpHandler) handleGameDetails(c *gin.Context) {
	catalog, ok := h.catalog.Catalog()
	if !ok {
		h.respondUnavailable(c)
		return
	}
	// Catch-all so titles containing "/" resolve.
	record, found := catalog.Lookup(strings.TrimPrefix(c.Param("key"), "/"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "game_not_found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleCatalogReload(c *gin.Context) {
	state, err := h.catalog.Reload(c.Request.Context())
	if err != nil {
		h.logger.Warn("catalog reload failed",
			zap.String("code", serviceerr.Code(err)),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "reload_failed",
			"code":    serviceerr.Code(err),
			"message": serviceerr.Message(err),
			"load":    state,
		})
		return
	}
	c.JSON(http.StatusOK, state)
}

type catalogEventPayload struct {
	Type        string `json:"type"`
	Source      string `json:"source"`
	LoadID      string `json:"loadId,omitempty"`
	RecordCount int    `json:"recordCount"`
	Timestamp   string `json:"timestamp"`
}

func (h *httpHandler) handleCatalogEvents(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent(realtimeEventHeartbeat, heartbeatPayload(time.Now()))
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, catalogEventPayload{
				Type:        message.EventType,
				Source:      realtimeSourceBackend,
				LoadID:      message.LoadID,
				RecordCount: message.RecordCount,
				Timestamp:   message.Timestamp.UTC().Format(time.RFC3339),
			})
			return true
		case now := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, heartbeatPayload(now))
			return true
		}
	})
}

func heartbeatPayload(now time.Time) catalogEventPayload {
	return catalogEventPayload{
		Type:      realtimeEventHeartbeat,
		Source:    realtimeSourceBackend,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

func (h *httpHandler) handleReorder(c *gin.Context) {
	var request reorder.Request
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.reorder.Apply(c.Request.Context(), request)
	if err != nil {
		status := http.StatusInternalServerError
		errorLabel := "reorder_failed"
		if errors.Is(err, reorder.ErrInvalidRequest) {
			status = http.StatusBadRequest
			errorLabel = "invalid_request"
		} else {
			h.logger.Error("reorder failed",
				zap.String("code", serviceerr.Code(err)),
				zap.Error(err))
		}
		c.JSON(status, gin.H{
			"ok":      false,
			"error":   errorLabel,
			"code":    serviceerr.Code(err),
			"message": serviceerr.Message(err),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleLoadHistory(c *gin.Context) {
	limit, err := parseHistoryLimit(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_query", "message": err.Error()})
		return
	}
	loads, err := h.loads.RecentLoads(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("load history query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loads": loads})
}

func (h *httpHandler) handleAuditHistory(c *gin.Context) {
	limit, err := parseHistoryLimit(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_query", "message": err.Error()})
		return
	}
	audits, err := h.audits.RecentAudits(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("audit history query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": audits})
}

func parseHistoryLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errInvalidLimit
	}
	return min(limit, maxHistoryLimit), nil
}

func (h *httpHandler) respondCatalogError(c *gin.Context, err error) {
	if feed.ErrNoCatalog(err) {
		h.respondUnavailable(c)
		return
	}
	h.logger.Error("catalog query failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog_query_failed"})
}

func (h *httpHandler) respondUnavailable(c *gin.Context) {
	state := h.catalog.State()
	message := state.Error
	if message == "" {
		message = "catalog has not been loaded yet"
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "catalog_unavailable",
		"message": message,
		"load":    state,
	})
}

func parseCatalogQuery(c *gin.Context) (games.Query, error) {
	tab, err := games.ParseTab(c.Query("tab"))
	if err != nil {
		return games.Query{}, err
	}
	sortKey, err := games.ParseSortKey(c.Query("sort"))
	if err != nil {
		return games.Query{}, err
	}
	direction, err := games.ParseSortDirection(c.Query("dir"))
	if err != nil {
		return games.Query{}, err
	}
	return games.Query{
		Search:      c.Query("q"),
		Tab:         tab,
		Status:      strings.TrimSpace(c.Query("status")),
		Ownership:   strings.TrimSpace(c.Query("ownership")),
		Format:      strings.TrimSpace(c.Query("format")),
		Platform:    strings.TrimSpace(c.Query("platform")),
		Genres:      nonBlankValues(c.QueryArray("genre")),
		YearsPlayed: nonBlankValues(c.QueryArray("year")),
		Sort:        sortKey,
		Direction:   direction,
	}, nil
}

func nonBlankValues(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
