package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/idmasse/mappingbot/internal/config"
	"github.com/idmasse/mappingbot/internal/logger"
)

// Credential is the bearer token returned by the refresh exchange.
// ExpiresAt is epoch milliseconds.
type Credential struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// tokenEnvelope mirrors the refresh response body. The whole envelope is
// persisted to disk so the file stays byte-compatible with what the API
// returned.
type tokenEnvelope struct {
	Data struct {
		Auth Credential `json:"auth"`
	} `json:"data"`
}

// TokenCache persists the last-fetched credential to a single JSON file and
// refreshes it through the configured endpoint when missing or expired.
type TokenCache struct {
	refreshURL   string
	refreshToken string
	appPlatform  string
	webVersion   string
	deviceFP     string
	toolsToken   string
	tokenFile    string

	httpClient *http.Client
	logger     *logger.Logger
	now        func() time.Time
}

func NewTokenCache(cfg *config.Config, logger *logger.Logger) *TokenCache {
	return &TokenCache{
		refreshURL:   cfg.BaseURL + cfg.RefreshPath,
		refreshToken: cfg.RefreshToken,
		appPlatform:  cfg.AppPlatform,
		webVersion:   cfg.WebVersion,
		deviceFP:     cfg.DeviceFP,
		toolsToken:   cfg.FlipinatorTools,
		tokenFile:    cfg.TokenFile,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Token returns the cached access token while it is still valid, refreshing
// it otherwise.
func (t *TokenCache) Token(ctx context.Context) (string, error) {
	if cred, ok := t.load(); ok && t.valid(cred) {
		return cred.AccessToken, nil
	}
	t.logger.Info("access token missing or expired, refreshing")
	return t.Refresh(ctx)
}

// Refresh exchanges the refresh token for a new credential and persists it,
// overwriting the previous one.
func (t *TokenCache) Refresh(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{"refreshToken": t.refreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to marshal refresh payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("App-Platform", t.appPlatform)
	req.Header.Set("web-version", t.webVersion)
	req.Header.Set("device-fp", t.deviceFP)
	if t.toolsToken != "" {
		req.Header.Set("x-flipinator-tools", t.toolsToken)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("refresh failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh response: %w", err)
	}

	var envelope tokenEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("failed to parse refresh response: %w", err)
	}
	if envelope.Data.Auth.AccessToken == "" {
		return "", fmt.Errorf("refresh response contains no access token")
	}

	if err := t.persist(body); err != nil {
		return "", fmt.Errorf("failed to persist credential: %w", err)
	}

	t.logger.Debug("refreshed access token, expires at %d", envelope.Data.Auth.ExpiresAt)
	return envelope.Data.Auth.AccessToken, nil
}

func (t *TokenCache) valid(cred Credential) bool {
	return t.now().UnixMilli() < cred.ExpiresAt
}

func (t *TokenCache) load() (Credential, bool) {
	data, err := os.ReadFile(t.tokenFile)
	if err != nil {
		return Credential{}, false
	}
	var envelope tokenEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.logger.Warn("token file %s is not valid JSON, ignoring", t.tokenFile)
		return Credential{}, false
	}
	if envelope.Data.Auth.AccessToken == "" {
		return Credential{}, false
	}
	return envelope.Data.Auth, true
}

// persist writes the raw envelope through a temp file and renames it into
// place so a concurrent reader never sees a partial write.
func (t *TokenCache) persist(raw []byte) error {
	dir := filepath.Dir(t.tokenFile)
	tmp, err := os.CreateTemp(dir, filepath.Base(t.tokenFile)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, t.tokenFile)
}
