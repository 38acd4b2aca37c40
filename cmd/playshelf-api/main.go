package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/playshelf/internal/auth"
	"github.com/MarcoPoloResearchLab/playshelf/internal/config"
	"github.com/MarcoPoloResearchLab/playshelf/internal/database"
	"github.com/MarcoPoloResearchLab/playshelf/internal/feed"
	"github.com/MarcoPoloResearchLab/playshelf/internal/identifier"
	"github.com/MarcoPoloResearchLab/playshelf/internal/logging"
	"github.com/MarcoPoloResearchLab/playshelf/internal/reorder"
	"github.com/MarcoPoloResearchLab/playshelf/internal/server"
	"github.com/MarcoPoloResearchLab/playshelf/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "playshelf-api",
		Short: "Playshelf game catalog service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("cors-origins", defaults.GetString("http.cors_origins"), "Comma-separated allowed CORS origins")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("feed-url", "", "Published CSV feed URL")
	cmd.PersistentFlags().Duration("feed-timeout", defaults.GetDuration("feed.timeout"), "Feed download timeout")
	cmd.PersistentFlags().String("sheets-base-url", defaults.GetString("sheets.base_url"), "Google Sheets API base URL")
	cmd.PersistentFlags().String("spreadsheet-id", "", "Default spreadsheet for order write-back")
	cmd.PersistentFlags().String("sheet-name", "", "Default sheet tab for order write-back")
	cmd.PersistentFlags().String("google-token-url", defaults.GetString("google.token_url"), "Google OAuth token endpoint")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.cors_origins", "cors-origins")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "feed.url", "feed-url")
	bindFlag(cmd, "feed.timeout", "feed-timeout")
	bindFlag(cmd, "sheets.base_url", "sheets-base-url")
	bindFlag(cmd, "sheets.spreadsheet_id", "spreadsheet-id")
	bindFlag(cmd, "sheets.sheet_name", "sheet-name")
	bindFlag(cmd, "google.token_url", "google-token-url")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	undoMaxProcs, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof))
	if err != nil {
		logger.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}
	defer undoMaxProcs()

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	dispatcher := server.NewRealtimeDispatcher()
	idProvider := identifier.NewUUIDProvider()

	feedStore := feed.NewGormStore(db)
	auditStore := reorder.NewGormAuditStore(db)

	loader, err := newCatalogLoader(appConfig, feedStore, dispatcher, idProvider, logger)
	if err != nil {
		return err
	}
	if _, err := loader.Restore(ctx); err != nil {
		logger.Warn("snapshot restore failed", zap.Error(err))
	}
	if _, err := loader.Reload(ctx); err != nil {
		logger.Warn("initial feed load failed", zap.Error(err))
	}

	reorderService, err := newReorderService(appConfig, auditStore, idProvider, logger)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Catalog:        loader,
		Reorder:        reorderService,
		Loads:          feedStore,
		Audits:         auditStore,
		Realtime:       dispatcher,
		AllowedOrigins: appConfig.CORSAllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newCatalogLoader(appConfig config.AppConfig, store feed.Store, observer feed.ReloadObserver, idProvider identifier.Provider, logger *zap.Logger) (*feed.Loader, error) {
	fetcher, err := feed.NewHTTPFetcher(feed.HTTPFetcherConfig{
		URL:     appConfig.FeedURL,
		Timeout: appConfig.FeedTimeout,
	})
	if err != nil {
		return nil, err
	}
	return feed.NewLoader(feed.LoaderConfig{
		Fetcher:    fetcher,
		Store:      store,
		Observer:   observer,
		IDProvider: idProvider,
		Logger:     logger,
		Timeout:    appConfig.FeedTimeout,
	})
}

func newReorderService(appConfig config.AppConfig, auditStore reorder.AuditStore, idProvider identifier.Provider, logger *zap.Logger) (*reorder.Service, error) {
	serviceConfig := reorder.ServiceConfig{
		Store:                auditStore,
		IDProvider:           idProvider,
		DefaultSpreadsheetID: appConfig.SheetsSpreadsheetID,
		DefaultSheetName:     appConfig.SheetsSheetName,
		Logger:               logger,
	}

	if !appConfig.HasGoogleCredentials() {
		logger.Warn("google credentials not configured; order write-back disabled")
		return reorder.NewService(serviceConfig)
	}

	key := auth.ServiceAccountKey{
		ClientEmail: appConfig.GoogleClientEmail,
		PrivateKey:  appConfig.GooglePrivateKey,
	}
	if appConfig.GoogleCredentialsJSON != "" {
		parsed, err := auth.ParseServiceAccountJSON(appConfig.GoogleCredentialsJSON)
		if err != nil {
			return nil, err
		}
		key = parsed
	}

	tokenSource, err := auth.NewServiceAccountTokenSource(auth.ServiceAccountConfig{
		Key:      key,
		Scopes:   []string{auth.ScopeSpreadsheets},
		TokenURL: appConfig.GoogleTokenURL,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	sheetClient, err := sheets.NewClient(sheets.ClientConfig{
		BaseURL:     appConfig.SheetsBaseURL,
		TokenSource: tokenSource,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	serviceConfig.Sheets = sheetClient
	return reorder.NewService(serviceConfig)
}
