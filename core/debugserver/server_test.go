package debugserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/locatehq/locate/embed/cache"
	"github.com/locatehq/locate/session"
)

func TestHealthzReturnsOK(t *testing.T) {
	s := New(":0", Deps{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCacheStatsReturnsDeps(t *testing.T) {
	deps := Deps{
		CacheStats: func() CacheStats {
			return cache.Stats{MemEntries: 3, MemCap: 100, DiskCap: 1000}
		},
	}
	s := New(":0", deps, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats/cache", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got CacheStats
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.MemEntries != 3 {
		t.Fatalf("expected MemEntries 3, got %d", got.MemEntries)
	}
}

func TestCacheStatsUnavailableWithoutDeps(t *testing.T) {
	s := New(":0", Deps{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats/cache", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestPromotionStatsReturnsDeps(t *testing.T) {
	deps := Deps{
		PromotionStats: func(ctx context.Context) (PromotionStats, error) {
			return PromotionStats{TotalEntries: 7}, nil
		},
	}
	s := New(":0", deps, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats/promotions", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got PromotionStats
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalEntries != 7 {
		t.Fatalf("expected TotalEntries 7, got %d", got.TotalEntries)
	}
}

func TestSessionStatsReturnsDeps(t *testing.T) {
	deps := Deps{
		SessionStats: func() []SessionStats {
			return []SessionStats{{PageID: "page-1", LastReason: session.ReasonHashChange, ReindexCount: 2, DecisionCount: 5}}
		},
	}
	s := New(":0", deps, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats/sessions", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got []SessionStats
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].PageID != "page-1" || got[0].ReindexCount != 2 {
		t.Fatalf("unexpected session stats: %+v", got)
	}
}

func TestSessionStatsUnavailableWithoutDeps(t *testing.T) {
	s := New(":0", Deps{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats/sessions", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
