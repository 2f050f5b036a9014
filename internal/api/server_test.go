package api

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepstack/keepstack-server/internal/auth"
	"github.com/keepstack/keepstack-server/internal/service"
	"github.com/keepstack/keepstack-server/internal/store/sqlite"
	"github.com/keepstack/keepstack-server/internal/validation"
)

// setupTestServer creates a test server over a real temp database.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	authService := service.NewAuthService(st, tokens, validation.New(), logger)
	server := NewServer(
		authService,
		service.NewResourceService(st, logger),
		service.NewCollectionService(st, logger),
		service.NewTagService(st, logger),
		service.NewReferenceService(st, logger),
		service.NewSearchService(st, logger),
		service.NewStatsService(st, logger),
		service.NewMaintenanceService(st, logger),
		logger,
	)
	t.Cleanup(server.Close)

	return server
}

// doJSON runs one request against the server and decodes the envelope data
// into out when non-nil.
func doJSON(t *testing.T, server *Server, method, path, token string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		var envelope struct {
			Data jsontext.Value `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}

	return rec
}

// setupOwner runs first-run setup and returns the access token.
func setupOwner(t *testing.T, server *Server) string {
	t.Helper()

	var resp service.AuthResponse
	rec := doJSON(t, server, http.MethodPost, "/api/v1/auth/setup", "", map[string]string{
		"email":    "owner@example.com",
		"password": "correct-horse-battery",
	}, &resp)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, resp.AccessToken)

	return resp.AccessToken
}

func TestHealthCheck(t *testing.T) {
	server := setupTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestAuthFlow(t *testing.T) {
	server := setupTestServer(t)

	// Fresh instance requires setup.
	var status struct {
		SetupRequired bool `json:"setup_required"`
	}
	rec := doJSON(t, server, http.MethodGet, "/api/v1/auth/status", "", nil, &status)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, status.SetupRequired)

	token := setupOwner(t, server)

	// Setup only works once.
	rec = doJSON(t, server, http.MethodPost, "/api/v1/auth/setup", "", map[string]string{
		"email":    "second@example.com",
		"password": "another-password",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Login with the owner credentials.
	var login service.AuthResponse
	rec = doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "owner@example.com",
		"password": "correct-horse-battery",
	}, &login)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, login.RefreshToken)

	// Wrong password is a 401.
	rec = doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "owner@example.com",
		"password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Refresh rotates the token.
	var refreshed service.AuthResponse
	rec = doJSON(t, server, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	}, &refreshed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The rotated-out token no longer refreshes.
	rec = doJSON(t, server, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Current user is reachable with the access token.
	var me struct {
		Email string `json:"email"`
	}
	rec = doJSON(t, server, http.MethodGet, "/api/v1/users/me", token, nil, &me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner@example.com", me.Email)
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	server := setupTestServer(t)
	setupOwner(t, server)

	for _, path := range []string{
		"/api/v1/resources",
		"/api/v1/collections",
		"/api/v1/tags",
		"/api/v1/stats",
	} {
		rec := doJSON(t, server, http.MethodGet, path, "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := doJSON(t, server, http.MethodGet, "/api/v1/resources", "not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResourceLifecycle(t *testing.T) {
	server := setupTestServer(t)
	token := setupOwner(t, server)

	// Create a link.
	var created struct {
		ID    int64    `json:"id"`
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	rec := doJSON(t, server, http.MethodPost, "/api/v1/resources", token, map[string]any{
		"type":  "link",
		"title": "Go Blog",
		"url":   "https://go.dev/blog",
		"tags":  []string{"go", "reading"},
	}, &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotZero(t, created.ID)
	assert.Equal(t, []string{"go", "reading"}, created.Tags)

	// Unknown type is rejected.
	rec = doJSON(t, server, http.MethodPost, "/api/v1/resources", token, map[string]any{
		"type":  "bookmark",
		"title": "Nope",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Read it back.
	var fetched struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	rec = doJSON(t, server, http.MethodGet, "/api/v1/resources/1", token, nil, &fetched)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Go Blog", fetched.Title)

	// Partial update: clearing description via explicit null leaves title alone.
	var updated struct {
		Title    string `json:"title"`
		Favorite bool   `json:"favorite"`
	}
	rec = doJSON(t, server, http.MethodPatch, "/api/v1/resources/1", token, map[string]any{
		"favorite":    true,
		"description": nil,
	}, &updated)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Go Blog", updated.Title)
	assert.True(t, updated.Favorite)

	// Visits are 204 and idempotent in shape.
	rec = doJSON(t, server, http.MethodPost, "/api/v1/resources/1/visit", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Missing ids are 404, malformed ids are 400.
	rec = doJSON(t, server, http.MethodGet, "/api/v1/resources/999", token, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, server, http.MethodGet, "/api/v1/resources/abc", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Delete, then reads miss.
	rec = doJSON(t, server, http.MethodDelete, "/api/v1/resources/1", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, server, http.MethodGet, "/api/v1/resources/1", token, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAndBatch(t *testing.T) {
	server := setupTestServer(t)
	token := setupOwner(t, server)

	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/resources", token, map[string]any{
			"type":  "note",
			"title": title,
			"tags":  []string{"batch"},
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var list struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	rec := doJSON(t, server, http.MethodGet, "/api/v1/resources?tags=batch", token, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list.Items, 3)
	assert.Equal(t, int64(3), list.Pagination.Total)

	ids := []int64{list.Items[0].ID, list.Items[1].ID, 424242}
	var result struct {
		Processed int64   `json:"processed"`
		Skipped   []int64 `json:"skipped"`
	}
	rec = doJSON(t, server, http.MethodPost, "/api/v1/resources/batch", token, map[string]any{
		"action": "set_favorite",
		"flag":   true,
		"ids":    ids,
	}, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), result.Processed)
	assert.Equal(t, []int64{424242}, result.Skipped)

	rec = doJSON(t, server, http.MethodGet, "/api/v1/resources?favorite=true", token, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), list.Pagination.Total)
}

func TestSearchAndSuggestions(t *testing.T) {
	server := setupTestServer(t)
	token := setupOwner(t, server)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/resources", token, map[string]any{
		"type":    "snippet",
		"title":   "Context cancellation",
		"content": "select on ctx.Done to stop workers",
		"source":  "go",
		"tags":    []string{"concurrency"},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var list struct {
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
	}
	rec = doJSON(t, server, http.MethodGet, "/api/v1/search?q=cancellation", token, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Context cancellation", list.Items[0].Title)

	var suggestions []struct {
		Text string `json:"text"`
		Kind string `json:"kind"`
	}
	rec = doJSON(t, server, http.MethodGet, "/api/v1/search/suggestions?q=conc", token, nil, &suggestions)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "concurrency", suggestions[0].Text)
	assert.Equal(t, "tag", suggestions[0].Kind)
}

func TestAdminIndexEndpoints(t *testing.T) {
	server := setupTestServer(t)
	token := setupOwner(t, server)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/resources", token, map[string]any{
		"type":  "note",
		"title": "Indexed note",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var report struct {
		Resources int64 `json:"resources"`
		Indexed   int64 `json:"indexed"`
	}
	rec = doJSON(t, server, http.MethodGet, "/api/v1/admin/index/verify", token, nil, &report)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), report.Resources)
	assert.Equal(t, int64(1), report.Indexed)

	var rebuilt struct {
		Indexed int64 `json:"indexed"`
	}
	rec = doJSON(t, server, http.MethodPost, "/api/v1/admin/reindex", token, nil, &rebuilt)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), rebuilt.Indexed)
}
