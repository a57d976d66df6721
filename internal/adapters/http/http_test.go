package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http/handlers"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/storage"
	"github.com/jsamuelsen/stoic-reflections/internal/app"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverConfig(port int) *config.ServerConfig {
	return &config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           port,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    30 * time.Second,
		MaxRequestSize: 1 << 20,
	}
}

func TestServer_New(t *testing.T) {
	cfg := serverConfig(8080)
	logger := discardLogger()

	srv := New(cfg, logger)

	require.NotNil(t, srv)
	assert.NotNil(t, srv.Engine())
	assert.Same(t, cfg, srv.Config())
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
	assert.Equal(t, logger, srv.logger)
}

func TestServer_AddrFormats(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"localhost", 8080, "localhost:8080"},
		{"0.0.0.0", 3000, "0.0.0.0:3000"},
		{"127.0.0.1", 0, "127.0.0.1:0"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := serverConfig(tt.port)
			cfg.Host = tt.host

			assert.Equal(t, tt.want, New(cfg, discardLogger()).Addr())
		})
	}
}

// TestServer_StartAndShutdown walks the full lifecycle: listen on an
// ephemeral port, verify no startup error, then drain cleanly.
func TestServer_StartAndShutdown(t *testing.T) {
	srv := New(serverConfig(0), discardLogger())
	srv.Engine().GET("/-/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	errCh := srv.Start()

	time.Sleep(100 * time.Millisecond)

	select {
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	select {
	case _, open := <-errCh:
		assert.False(t, open, "error channel closes after a clean shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("error channel never closed")
	}
}

func TestServer_LimitsRequestBody(t *testing.T) {
	cfg := serverConfig(0)
	cfg.MaxRequestSize = 100

	srv := New(cfg, discardLogger())
	srv.Engine().POST("/subscribe", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}

		c.Status(http.StatusOK)
	})

	t.Run("small body passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/subscribe",
			strings.NewReader(`{"email":"reader@example.com"}`))
		srv.Engine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("oversized body is cut off", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/subscribe",
			strings.NewReader(strings.Repeat("a", 500)))
		srv.Engine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

// newTestRouterConfig builds a RouterConfig backed by an in-memory store so
// requests can travel the full middleware chain into real handlers.
func newTestRouterConfig(store *storage.MemoryStore) RouterConfig {
	logger := discardLogger()

	archiveService := app.NewArchiveService(app.ArchiveServiceConfig{
		Store:      store,
		ArchiveKey: "quote_history.json",
		Logger:     logger,
	})
	reflectionService := app.NewReflectionService(app.ReflectionServiceConfig{
		Archive: archiveService,
		Logger:  logger,
	})
	resolverService := app.NewResolverService(app.ResolverServiceConfig{
		Store:      store,
		DatasetKey: "config/stoic_quotes_365_days.json",
		Logger:     logger,
	})

	return RouterConfig{
		Logger: logger,
		AuthConfig: &config.AuthConfig{
			Enabled: true,
		},
		AppConfig: &config.AppConfig{
			Name:        "test-service",
			Environment: "test",
			Version:     "1.0.0",
		},
		HealthHandler:     handlers.NewHealthHandler(nil, handlers.BuildInfo{}),
		ReflectionHandler: handlers.NewReflectionHandler(reflectionService),
		AdminHandler: handlers.NewAdminHandler(handlers.AdminHandlerConfig{
			Resolver: resolverService,
			Archive:  archiveService,
		}),
		Timeout: 30 * time.Second,
	}
}

// TestSetupRouter tests that all route groups are registered.
func TestSetupRouter(t *testing.T) {
	engine := gin.New()
	store := storage.NewMemoryStore()

	require.NotPanics(t, func() {
		SetupRouter(engine, newTestRouterConfig(store))
	})

	routeMap := make(map[string]bool)
	for _, r := range engine.Routes() {
		routeMap[r.Method+" "+r.Path] = true
	}

	expectedRoutes := []string{
		"GET /-/live",
		"GET /reflection/today",
		"GET /reflection/:date",
		"GET /api/v1/admin/dataset/integrity",
		"GET /api/v1/admin/archive/stats",
		"GET /api/v1/admin/archive/entries",
		"POST /api/v1/admin/delivery/run",
	}

	for _, expected := range expectedRoutes {
		assert.True(t, routeMap[expected], "missing route: %s", expected)
	}
}

// TestSetupRouterReflectionFlow sends a request through the full middleware
// chain into the reflection handler.
func TestSetupRouterReflectionFlow(t *testing.T) {
	engine := gin.New()
	store := storage.NewMemoryStore()
	store.Seed("quote_history.json", []byte(`{"quotes": [
		{"date": "2026-08-24", "quote": "Hold fast.", "attribution": "Seneca - Letters 13.4", "theme": "Endurance", "reflection": "An essay."}
	]}`))

	SetupRouter(engine, newTestRouterConfig(store))

	t.Run("archived date returns the reflection", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/reflection/2026-08-24", nil)
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Hold fast.", resp["quote"])
		assert.Equal(t, "2026-08-24", resp["date"])
	})

	t.Run("malformed date returns 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/reflection/24-08-2026", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("preflight is answered with CORS headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/reflection/today", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "GET")
	})
}

// TestSetupRouterAdminAuth verifies operator routes are gated on gateway claims.
func TestSetupRouterAdminAuth(t *testing.T) {
	engine := gin.New()
	store := storage.NewMemoryStore()

	SetupRouter(engine, newTestRouterConfig(store))

	t.Run("missing claims are rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/archive/stats", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("non-admin role is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/archive/stats", nil)
		req.Header.Set("X-User-ID", "user-1")
		req.Header.Set("X-User-Roles", "viewer")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin role reaches the handler", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/archive/stats", nil)
		req.Header.Set("X-User-ID", "user-1")
		req.Header.Set("X-User-Roles", "admin")
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var stats map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.EqualValues(t, 0, stats["count"])
	})
}

// TestSetupMinimalRouter covers the stripped-down wiring used when the full
// dependency set is unavailable (migrations, smoke checks).
func TestSetupMinimalRouter(t *testing.T) {
	engine := gin.New()
	healthHandler := handlers.NewHealthHandler(nil, handlers.BuildInfo{Version: "1.4.0"})

	SetupMinimalRouter(engine, discardLogger(), healthHandler)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/-/live", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupMinimalRouter_NilHealthHandler(t *testing.T) {
	engine := gin.New()

	require.NotPanics(t, func() {
		SetupMinimalRouter(engine, discardLogger(), nil)
	})
}

func TestSetupRouter_OptionalHandlersAbsent(t *testing.T) {
	engine := gin.New()

	cfg := RouterConfig{
		Logger: discardLogger(),
		AppConfig: &config.AppConfig{
			Name:        "test-service",
			Environment: "test",
			Version:     "1.0.0",
		},
	}

	require.NotPanics(t, func() {
		SetupRouter(engine, cfg)
	})
}
