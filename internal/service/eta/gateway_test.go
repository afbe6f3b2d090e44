package eta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gateway, err := NewHTTPGateway(HTTPGatewayOptions{
		BaseURL:       srv.URL + "/",
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, logger.Test(t))
	require.NoError(t, err)
	return gateway
}

func TestHTTPGatewayFetchesETA(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eta/12%2F3", r.URL.EscapedPath())
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"minutes": 4, "message": "Bus 12 in 4 min"}`))
	})

	eta, err := gateway.FetchETA(context.Background(), "req-1", "12/3")
	require.NoError(t, err)

	assert.Equal(t, 4, eta.Minutes)
	assert.Equal(t, "Bus 12 in 4 min", eta.Message)
	assert.Equal(t, "req-1", eta.RequestID)
	assert.Equal(t, "12/3", eta.Code)
	assert.False(t, eta.ReceivedAt.IsZero())
}

func TestHTTPGatewayRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"minutes": 9}`))
	})

	eta, err := gateway.FetchETA(context.Background(), "req", "1")
	require.NoError(t, err)
	assert.Equal(t, 9, eta.Minutes)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPGatewayGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := gateway.FetchETA(context.Background(), "req", "1")
	require.ErrorIs(t, err, ErrGateway)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPGatewayDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown stop", http.StatusNotFound)
	})

	_, err := gateway.FetchETA(context.Background(), "req", "1")
	require.ErrorIs(t, err, ErrGateway)
	assert.ErrorContains(t, err, "unknown stop")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPGatewayRejectsMalformedBody(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := gateway.FetchETA(context.Background(), "req", "1")
	require.ErrorIs(t, err, ErrGateway)
}

func TestNewHTTPGatewayValidatesURL(t *testing.T) {
	_, err := NewHTTPGateway(HTTPGatewayOptions{}, nil)
	require.Error(t, err)

	_, err = NewHTTPGateway(HTTPGatewayOptions{BaseURL: "not a url"}, nil)
	require.Error(t, err)
}
