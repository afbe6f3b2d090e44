package eta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/zhouzirui/transport-eta/backend/internal/model/transport"
	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
)

// Gateway fetches an arrival estimate for a stop code.
type Gateway interface {
	FetchETA(ctx context.Context, requestID, code string) (transport.ETA, error)
}

// HTTPGatewayOptions 配置 HTTP 网关。
type HTTPGatewayOptions struct {
	BaseURL       string
	Client        *http.Client
	RetryAttempts uint
	RetryDelay    time.Duration
}

// HTTPGateway queries `GET {BaseURL}/eta/{code}` and retries transient failures.
type HTTPGateway struct {
	baseURL  string
	client   *http.Client
	attempts uint
	delay    time.Duration
	lggr     logger.Logger
}

type gatewayResponse struct {
	Minutes int    `json:"minutes"`
	Message string `json:"message"`
}

// NewHTTPGateway validates opts and builds an HTTPGateway.
func NewHTTPGateway(opts HTTPGatewayOptions, lggr logger.Logger) (*HTTPGateway, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("eta gateway url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid eta gateway url %q: %w", base, err)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	attempts := opts.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	if lggr == nil {
		lggr = logger.Nop()
	}

	return &HTTPGateway{
		baseURL:  base,
		client:   client,
		attempts: attempts,
		delay:    opts.RetryDelay,
		lggr:     lggr,
	}, nil
}

func (g *HTTPGateway) FetchETA(ctx context.Context, requestID, code string) (transport.ETA, error) {
	var result transport.ETA

	err := retry.Do(func() error {
		eta, err := g.fetchOnce(ctx, requestID, code)
		if err != nil {
			return err
		}
		result = eta
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(g.attempts),
		retry.Delay(g.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			g.lggr.Warnf("[eta] gateway attempt %d/%d for code=%s failed: %v", attempt+1, g.attempts, code, err)
		}),
	)
	if err != nil {
		return transport.ETA{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return result, nil
}

func (g *HTTPGateway) fetchOnce(ctx context.Context, requestID, code string) (transport.ETA, error) {
	endpoint := g.baseURL + "/eta/" + url.PathEscape(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return transport.ETA{}, retry.Unrecoverable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := g.client.Do(req)
	if err != nil {
		return transport.ETA{}, fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return transport.ETA{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return transport.ETA{}, retry.Unrecoverable(
			fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		)
	}

	var payload gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return transport.ETA{}, retry.Unrecoverable(fmt.Errorf("decode gateway response: %w", err))
	}
	if payload.Minutes < 0 {
		return transport.ETA{}, retry.Unrecoverable(fmt.Errorf("gateway returned negative eta %d", payload.Minutes))
	}

	return transport.ETA{
		RequestID:  requestID,
		Code:       code,
		Minutes:    payload.Minutes,
		Message:    payload.Message,
		ReceivedAt: time.Now().UTC(),
	}, nil
}
