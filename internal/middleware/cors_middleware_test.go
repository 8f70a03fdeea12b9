package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"pulse/internal/middleware"
)

func newCORSEngine(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middleware.CORS(origins))
	engine.GET("/api/events", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func corsRequest(t *testing.T, engine http.Handler, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/events", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func TestCORSAllowsLoopbackOrigins(t *testing.T) {
	engine := newCORSEngine([]string{"https://pulse.example"})

	for _, origin := range []string{"http://localhost:3000", "http://127.0.0.1:8080", "http://[::1]:5173", "https://pulse.example"} {
		recorder := corsRequest(t, engine, http.MethodOptions, origin)
		if recorder.Code != http.StatusNoContent {
			t.Fatalf("%s: expected 204 for preflight, got %d", origin, recorder.Code)
		}
		if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Fatalf("%s: unexpected allow-origin header %q", origin, got)
		}
	}
}

func TestCORSRejectsRemoteOrigins(t *testing.T) {
	engine := newCORSEngine(nil)

	for _, origin := range []string{"http://evil.example", "http://localhost.evil.example", "file://localhost"} {
		recorder := corsRequest(t, engine, http.MethodGet, origin)
		if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("%s: expected no allow-origin header, got %q", origin, got)
		}
	}
}

func TestCORSAllowsEventStreamHeaders(t *testing.T) {
	engine := newCORSEngine(nil)

	recorder := corsRequest(t, engine, http.MethodOptions, "http://localhost:5173")
	allowHeaders := recorder.Header().Get("Access-Control-Allow-Headers")
	for _, header := range []string{"Authorization", "Last-Event-ID", "Cache-Control"} {
		if !slices.Contains(strings.Split(allowHeaders, ","), header) {
			t.Fatalf("expected %s in allow-headers %q", header, allowHeaders)
		}
	}
}

func TestCORSWildcard(t *testing.T) {
	engine := newCORSEngine([]string{"*"})

	recorder := corsRequest(t, engine, http.MethodGet, "http://anywhere.example")
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard allow-origin, got %q", got)
	}
}
