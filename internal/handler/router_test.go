package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	etaService "github.com/zhouzirui/transport-eta/backend/internal/service/eta"
	favoritesService "github.com/zhouzirui/transport-eta/backend/internal/service/favorites"
	favstore "github.com/zhouzirui/transport-eta/backend/internal/storage/favorites"
	"github.com/zhouzirui/transport-eta/backend/internal/storage/prefs"
	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	lggr := logger.Test(t)
	store, err := favstore.New(prefs.NewMemoryDictionary(), favstore.JSONMapper{}, lggr)
	if err != nil {
		t.Fatalf("favstore.New err: %v", err)
	}
	favSvc := favoritesService.NewService(store, favstore.JSONMapper{}, lggr)
	t.Cleanup(favSvc.Close)
	etaSvc := etaService.NewService(nil, time.Second, lggr)
	return NewRouter(favSvc, etaSvc, lggr)
}

func TestHealthz(t *testing.T) {
	r := setupRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRoutesAreMountedUnderAPI(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/favorites", bytes.NewReader([]byte(`{"name":"one","code":"1"}`)))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/eta/status", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS headers on API responses")
	}
}
