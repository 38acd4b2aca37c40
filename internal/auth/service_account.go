package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauthjwt "golang.org/x/oauth2/jwt"
)

const (
	// DefaultTokenURL is Google's OAuth 2.0 token endpoint.
	DefaultTokenURL = google.JWTTokenURL
	// ScopeSpreadsheets grants read/write access to Google Sheets.
	ScopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"
)

var (
	// ErrMissingCredentials indicates that no service-account credential was configured.
	ErrMissingCredentials = errors.New("auth: service account credentials are not configured")
	// ErrInvalidCredentials indicates that a configured credential cannot be used.
	ErrInvalidCredentials = errors.New("auth: invalid service account credentials")

	errMissingClientEmail = errors.New("client_email is required")
	errMissingPrivateKey  = errors.New("private_key is required")
	errMissingScopes      = errors.New("at least one scope is required")
)

// ServiceAccountKey holds the fields of a Google service-account JSON key
// needed to mint access tokens.
type ServiceAccountKey struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// ParseServiceAccountJSON decodes a service-account JSON key document.
func ParseServiceAccountJSON(raw string) (ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return ServiceAccountKey{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return key, nil
}

// ServiceAccountConfig configures a ServiceAccountTokenSource.
type ServiceAccountConfig struct {
	Key        ServiceAccountKey
	Scopes     []string
	TokenURL   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// ServiceAccountTokenSource exchanges signed JWT assertions for OAuth access
// tokens. Tokens are reused until shortly before they expire.
type ServiceAccountTokenSource struct {
	clientEmail string
	source      oauth2.TokenSource
	logger      *zap.Logger
}

// NewServiceAccountTokenSource validates the key and builds a token source.
func NewServiceAccountTokenSource(cfg ServiceAccountConfig) (*ServiceAccountTokenSource, error) {
	clientEmail := strings.TrimSpace(cfg.Key.ClientEmail)
	privateKey := normalizePrivateKey(cfg.Key.PrivateKey)
	if clientEmail == "" && privateKey == "" {
		return nil, ErrMissingCredentials
	}
	if clientEmail == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, errMissingClientEmail)
	}
	if privateKey == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, errMissingPrivateKey)
	}
	// The key is otherwise only parsed on the first exchange.
	if _, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKey)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	scopes := make([]string, 0, len(cfg.Scopes))
	for _, scope := range cfg.Scopes {
		if trimmed := strings.TrimSpace(scope); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, errMissingScopes)
	}

	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = strings.TrimSpace(cfg.Key.TokenURI)
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	exchangeCtx := context.Background()
	if cfg.HTTPClient != nil {
		exchangeCtx = context.WithValue(exchangeCtx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	assertionConfig := &oauthjwt.Config{
		Email:        clientEmail,
		PrivateKey:   []byte(privateKey),
		PrivateKeyID: strings.TrimSpace(cfg.Key.PrivateKeyID),
		Scopes:       scopes,
		TokenURL:     tokenURL,
	}

	return &ServiceAccountTokenSource{
		clientEmail: clientEmail,
		source:      assertionConfig.TokenSource(exchangeCtx),
		logger:      logger,
	}, nil
}

// Token returns a valid access token, exchanging a new assertion when the
// cached token is missing or about to expire.
func (s *ServiceAccountTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		s.logger.Warn("service account token exchange failed",
			zap.String("client_email", s.clientEmail),
			zap.Error(err))
		return nil, err
	}
	return token, nil
}

// normalizePrivateKey restores newlines in PEM keys passed through
// environment variables with escaped "\n" sequences.
func normalizePrivateKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	return strings.ReplaceAll(trimmed, `\n`, "\n")
}
