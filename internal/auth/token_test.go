package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idmasse/mappingbot/internal/config"
	"github.com/idmasse/mappingbot/internal/logger"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		BaseURL:         baseURL,
		RefreshPath:     "/shop/auth/token/refresh/v1",
		RefreshToken:    "refresh-secret",
		AppPlatform:     "web",
		WebVersion:      "1.2.3",
		DeviceFP:        "fp-abc",
		FlipinatorTools: "tools-token",
		TokenFile:       filepath.Join(t.TempDir(), "token.json"),
		HTTPTimeout:     5 * time.Second,
	}
}

func writeTokenFile(t *testing.T, path, token string, expiresAt int64) {
	t.Helper()
	body := fmt.Sprintf(`{"data":{"auth":{"accessToken":%q,"expiresAt":%d}}}`, token, expiresAt)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestTokenUsesCachedCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("refresh endpoint should not be called for a valid credential")
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	writeTokenFile(t, cfg.TokenFile, "cached-token", time.Now().Add(time.Hour).UnixMilli())

	tc := NewTokenCache(cfg, logger.New("error"))
	token, err := tc.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "cached-token", token)
}

func TestTokenRefreshesExpiredCredential(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/shop/auth/token/refresh/v1", r.URL.Path)
		gotHeaders = r.Header.Clone()

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "refresh-secret", req["refreshToken"])

		fmt.Fprintf(w, `{"data":{"auth":{"accessToken":"fresh-token","expiresAt":%d}}}`,
			time.Now().Add(time.Hour).UnixMilli())
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	writeTokenFile(t, cfg.TokenFile, "stale-token", time.Now().Add(-time.Minute).UnixMilli())

	tc := NewTokenCache(cfg, logger.New("error"))
	token, err := tc.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, "web", gotHeaders.Get("App-Platform"))
	assert.Equal(t, "1.2.3", gotHeaders.Get("web-version"))
	assert.Equal(t, "fp-abc", gotHeaders.Get("device-fp"))
	assert.Equal(t, "tools-token", gotHeaders.Get("x-flipinator-tools"))
}

func TestTokenRefreshesWhenFileMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"auth":{"accessToken":"fresh-token","expiresAt":%d}}}`,
			time.Now().Add(time.Hour).UnixMilli())
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)

	tc := NewTokenCache(cfg, logger.New("error"))
	token, err := tc.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
}

func TestRefreshPersistsCredential(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"auth":{"accessToken":"fresh-token","expiresAt":%d}}}`, expiresAt)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	tc := NewTokenCache(cfg, logger.New("error"))

	_, err := tc.Refresh(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.TokenFile)
	require.NoError(t, err)

	var envelope tokenEnvelope
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, "fresh-token", envelope.Data.Auth.AccessToken)
	assert.Equal(t, expiresAt, envelope.Data.Auth.ExpiresAt)

	// a second refresh overwrites in place, no history
	entries, err := os.ReadDir(filepath.Dir(cfg.TokenFile))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRefreshOverwritesPreviousCredential(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `{"data":{"auth":{"accessToken":"token-%d","expiresAt":%d}}}`,
			calls, time.Now().Add(time.Hour).UnixMilli())
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	tc := NewTokenCache(cfg, logger.New("error"))

	_, err := tc.Refresh(context.Background())
	require.NoError(t, err)
	token, err := tc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)

	cred, ok := tc.load()
	require.True(t, ok)
	assert.Equal(t, "token-2", cred.AccessToken)
}

func TestRefreshFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad refresh token", http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	tc := NewTokenCache(cfg, logger.New("error"))

	_, err := tc.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")

	_, statErr := os.Stat(cfg.TokenFile)
	assert.True(t, os.IsNotExist(statErr), "failed refresh must not write the token file")
}

func TestRefreshFailsOnUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	tc := NewTokenCache(cfg, logger.New("error"))

	_, err := tc.Refresh(context.Background())
	require.Error(t, err)
}

func TestTokenIgnoresCorruptFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"auth":{"accessToken":"fresh-token","expiresAt":%d}}}`,
			time.Now().Add(time.Hour).UnixMilli())
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	require.NoError(t, os.WriteFile(cfg.TokenFile, []byte("garbage"), 0o644))

	tc := NewTokenCache(cfg, logger.New("error"))
	token, err := tc.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
}
