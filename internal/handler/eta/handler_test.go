package eta

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/transport-eta/backend/internal/model/transport"
	etaservice "github.com/zhouzirui/transport-eta/backend/internal/service/eta"
	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
)

type stubGateway struct {
	minutes int
	err     error
}

func (g stubGateway) FetchETA(_ context.Context, requestID, code string) (transport.ETA, error) {
	if g.err != nil {
		return transport.ETA{}, g.err
	}
	return transport.ETA{RequestID: requestID, Code: code, Minutes: g.minutes}, nil
}

type stubFinder map[string]transport.Transport

func (f stubFinder) FindByCode(_ context.Context, code string) (transport.Transport, bool) {
	t, ok := f[code]
	return t, ok
}

func setupRouter(t *testing.T, gateway etaservice.Gateway, favorites FavoriteFinder) (*chi.Mux, *etaservice.Service) {
	t.Helper()
	svc := etaservice.NewService(gateway, time.Second, logger.Test(t))
	handler := New(svc, favorites, logger.Test(t))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, svc
}

func TestRequestETAIncludesFavorite(t *testing.T) {
	fav := transport.Transport{ID: "fav-1", Name: "Harbour", Code: "1234", IsFavorite: true}
	r, _ := setupRouter(t, stubGateway{minutes: 5}, stubFinder{"1234": fav})

	req := httptest.NewRequest(http.MethodPost, "/eta/1234", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body etaResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ETA.Minutes != 5 || body.Favorite == nil || body.Favorite.ID != "fav-1" {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestRequestETAGatewayFailure(t *testing.T) {
	err := errors.Join(etaservice.ErrGateway, errors.New("status 502"))
	r, _ := setupRouter(t, stubGateway{err: err}, nil)

	req := httptest.NewRequest(http.MethodPost, "/eta/1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestRequestETAUnavailable(t *testing.T) {
	r, _ := setupRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/eta/1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestStatusAndCancelWhenIdle(t *testing.T) {
	r, _ := setupRouter(t, stubGateway{}, nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/eta/status", nil))
	if strings.TrimSpace(resp.Body.String()) != `{"acceptingRequests":true}` {
		t.Fatalf("unexpected status body: %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/eta", nil))
	if strings.TrimSpace(resp.Body.String()) != `{"canceled":false}` {
		t.Fatalf("unexpected cancel body: %s", resp.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		etaservice.ErrInvalidCode:     http.StatusBadRequest,
		etaservice.ErrRequestInFlight: http.StatusConflict,
		etaservice.ErrCanceled:        http.StatusConflict,
		etaservice.ErrUnavailable:     http.StatusServiceUnavailable,
		context.DeadlineExceeded:      http.StatusGatewayTimeout,
		errors.New("other"):           http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestStreamDeliversResults(t *testing.T) {
	r, svc := setupRouter(t, stubGateway{minutes: 2}, nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/eta/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	if line, _ := reader.ReadString('\n'); line != "event: status\n" {
		t.Fatalf("unexpected first line %q", line)
	}

	if _, err := svc.Request(ctx, "77"); err != nil {
		t.Fatalf("Request err: %v", err)
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended before eta event: %v", err)
		}
		if line == "event: eta\n" {
			data, _ := reader.ReadString('\n')
			if !strings.Contains(data, `"code":"77"`) || !strings.Contains(data, `"minutes":2`) {
				t.Fatalf("unexpected eta event data %q", data)
			}
			return
		}
	}
}
