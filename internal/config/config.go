package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "PLAYSHELF"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "playshelf.db"
	defaultLogLevel     = "info"
	defaultLogFormat    = "json"
	defaultFeedTimeout  = 30 * time.Second
	defaultSheetsURL    = "https://sheets.googleapis.com/v4"
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
	defaultCORSOrigins  = "*"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	CORSAllowedOrigins []string
	DatabasePath       string
	LogLevel           string
	LogFormat          string

	FeedURL     string
	FeedTimeout time.Duration

	SheetsBaseURL       string
	SheetsSpreadsheetID string
	SheetsSheetName     string

	GoogleTokenURL        string
	GoogleCredentialsJSON string
	GoogleClientEmail     string
	GooglePrivateKey      string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.cors_origins", defaultCORSOrigins)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("feed.timeout", defaultFeedTimeout)
	configViper.SetDefault("sheets.base_url", defaultSheetsURL)
	configViper.SetDefault("google.token_url", defaultTokenURL)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:           configViper.GetString("http.address"),
		CORSAllowedOrigins:    splitList(configViper.GetString("http.cors_origins")),
		DatabasePath:          configViper.GetString("database.path"),
		LogLevel:              configViper.GetString("log.level"),
		LogFormat:             configViper.GetString("log.format"),
		FeedURL:               strings.TrimSpace(configViper.GetString("feed.url")),
		FeedTimeout:           configViper.GetDuration("feed.timeout"),
		SheetsBaseURL:         strings.TrimSpace(configViper.GetString("sheets.base_url")),
		SheetsSpreadsheetID:   strings.TrimSpace(configViper.GetString("sheets.spreadsheet_id")),
		SheetsSheetName:       strings.TrimSpace(configViper.GetString("sheets.sheet_name")),
		GoogleTokenURL:        strings.TrimSpace(configViper.GetString("google.token_url")),
		GoogleCredentialsJSON: strings.TrimSpace(configViper.GetString("google.credentials_json")),
		GoogleClientEmail:     strings.TrimSpace(configViper.GetString("google.client_email")),
		GooglePrivateKey:      configViper.GetString("google.private_key"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// HasGoogleCredentials reports whether any service-account credential is set.
func (c AppConfig) HasGoogleCredentials() bool {
	return c.GoogleCredentialsJSON != "" || c.GoogleClientEmail != "" || strings.TrimSpace(c.GooglePrivateKey) != ""
}

func (c AppConfig) validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("feed.url is required")
	}
	parsed, err := url.Parse(c.FeedURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("feed.url must be an absolute http(s) URL")
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.GoogleCredentialsJSON == "" && (c.GoogleClientEmail == "") != (strings.TrimSpace(c.GooglePrivateKey) == "") {
		return fmt.Errorf("google.client_email and google.private_key must be set together")
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
