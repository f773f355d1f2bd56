package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/voss-io/tiercache/pkg/cache"
)

func newTestStore(t *testing.T) *cache.Store {
	t.Helper()

	cfg := cache.DefaultConfig()
	cfg.SweepInterval = 0
	cfg.Logger = zerolog.Nop()
	s := cache.New(cfg)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestCacheHandler_PutGetDelete(t *testing.T) {
	store := newTestStore(t)
	handler := cacheHandler(store)

	// PUT
	req := httptest.NewRequest("PUT", "/cache/user:1", strings.NewReader(`{"name":"ada"}`))
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("PUT: expected status 204, got %d", w.Code)
	}

	// GET
	req = httptest.NewRequest("GET", "/cache/user:1", nil)
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET: expected status 200, got %d", w.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("GET: invalid JSON response: %v", err)
	}
	if got["name"] != "ada" {
		t.Errorf("GET: expected name 'ada', got %q", got["name"])
	}

	// DELETE
	req = httptest.NewRequest("DELETE", "/cache/user:1", nil)
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE: expected status 204, got %d", w.Code)
	}

	// GET after delete
	req = httptest.NewRequest("GET", "/cache/user:1", nil)
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET after delete: expected status 404, got %d", w.Code)
	}
}

func TestCacheHandler_Validation(t *testing.T) {
	store := newTestStore(t)
	handler := cacheHandler(store)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"missing key", "GET", "/cache/", "", http.StatusBadRequest},
		{"invalid json", "PUT", "/cache/k", "{", http.StatusBadRequest},
		{"invalid ttl", "PUT", "/cache/k?ttl=forever", `1`, http.StatusBadRequest},
		{"unsupported method", "PATCH", "/cache/k", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.target, body)
			w := httptest.NewRecorder()
			handler(w, req)
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestCacheHandler_TTLAndTags(t *testing.T) {
	store := newTestStore(t)
	handler := cacheHandler(store)

	req := httptest.NewRequest("PUT", "/cache/s1?ttl=30m&tag=session&tag=user", strings.NewReader(`"v"`))
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("PUT: expected status 204, got %d", w.Code)
	}

	if err := store.DeleteByTag(context.Background(), "session"); err != nil {
		t.Fatalf("DeleteByTag: %v", err)
	}
	if store.Exists("s1") {
		t.Error("entry should have been removed by tag invalidation")
	}
}

func TestInvalidateHandler(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "a", 1, cache.WithTags("batch")); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "b", 2, cache.WithTags("batch")); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "c", 3); err != nil {
		t.Fatal(err)
	}

	handler := invalidateHandler(store)

	req := httptest.NewRequest("POST", "/invalidate?tag=batch", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}

	if store.Exists("a") || store.Exists("b") {
		t.Error("tagged entries should have been invalidated")
	}
	if !store.Exists("c") {
		t.Error("untagged entry should survive")
	}

	t.Run("missing_tag", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/invalidate", nil)
		w := httptest.NewRecorder()
		handler(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("wrong_method", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/invalidate?tag=batch", nil)
		w := httptest.NewRecorder()
		handler(w, req)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", w.Code)
		}
	})
}

func TestStatsHandler(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	var v string
	store.Get(ctx, "k", &v)
	store.Get(ctx, "missing", &v)

	handler := statsHandler(store)
	req := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var stats struct {
		Hits       int64   `json:"hits"`
		Misses     int64   `json:"misses"`
		HitRate    float64 `json:"hit_rate"`
		Items      int64   `json:"items"`
		QueueDepth int     `json:"queue_depth"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d/%d", stats.Hits, stats.Misses)
	}
	if stats.Items != 1 {
		t.Errorf("expected 1 item, got %d", stats.Items)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	// Creating a store registers all engine metrics via promauto.
	store := newTestStore(t)
	if err := store.Set(context.Background(), "k", "v"); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(body, "tiercache_sets_total") {
		t.Error("Expected metrics output to contain tiercache_sets_total")
	}
}
