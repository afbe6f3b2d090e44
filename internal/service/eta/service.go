package eta

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/transport-eta/backend/internal/model/transport"
	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
)

var (
	ErrInvalidCode     = errors.New("transport code is required")
	ErrRequestInFlight = errors.New("an eta request is already in progress")
	ErrCanceled        = errors.New("eta request canceled")
	ErrGateway         = errors.New("eta gateway failed")
	ErrUnavailable     = errors.New("eta gateway not configured")
)

// Result is published once for every finished request.
type Result struct {
	ETA   *transport.ETA `json:"eta,omitempty"`
	Code  string         `json:"code"`
	Error string         `json:"error,omitempty"`
}

type inflight struct {
	id       string
	code     string
	cancel   context.CancelFunc
	canceled bool
}

const subscriberBuffer = 8

// Service 负责到站时间查询，同一时刻只允许一个请求。
type Service struct {
	gateway Gateway
	timeout time.Duration
	lggr    logger.Logger

	mu          sync.Mutex
	current     *inflight
	nextSubID   int
	subscribers map[int]chan Result
	closed      bool
}

// NewService creates the ETA service. A nil gateway makes every request fail
// with ErrUnavailable.
func NewService(gateway Gateway, timeout time.Duration, lggr logger.Logger) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if lggr == nil {
		lggr = logger.Nop()
	}
	return &Service{
		gateway:     gateway,
		timeout:     timeout,
		lggr:        lggr,
		subscribers: make(map[int]chan Result),
	}
}

// AcceptingRequests reports whether no request is in flight.
func (s *Service) AcceptingRequests() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == nil
}

// Request asks the gateway for the arrival estimate of code and blocks until
// it answers, the request is canceled or ctx ends.
func (s *Service) Request(ctx context.Context, code string) (transport.ETA, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return transport.ETA{}, ErrInvalidCode
	}
	if s.gateway == nil {
		return transport.ETA{}, ErrUnavailable
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return transport.ETA{}, ErrRequestInFlight
	}
	req := &inflight{id: uuid.NewString(), code: code, cancel: cancel}
	s.current = req
	s.mu.Unlock()

	s.lggr.Infof("[eta] request %s started for code=%s", req.id, code)
	eta, err := s.gateway.FetchETA(reqCtx, req.id, code)

	s.mu.Lock()
	canceled := req.canceled
	if s.current == req {
		s.current = nil
	}
	s.mu.Unlock()

	if canceled {
		err = ErrCanceled
	}
	if err != nil {
		s.lggr.Warnf("[eta] request %s for code=%s failed: %v", req.id, code, err)
		s.publish(Result{Code: code, Error: err.Error()})
		return transport.ETA{}, err
	}

	s.lggr.Infof("[eta] request %s for code=%s answered: %d min", req.id, code, eta.Minutes)
	s.publish(Result{Code: code, ETA: &eta})
	return eta, nil
}

// Cancel aborts the in-flight request. It returns false when nothing was running.
func (s *Service) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.canceled {
		return false
	}
	s.current.canceled = true
	s.current.cancel()
	s.lggr.Infof("[eta] request %s canceled", s.current.id)
	return true
}

// Subscribe returns a channel receiving every Result and a cancel function.
func (s *Service) Subscribe() (<-chan Result, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Result, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

// Close cancels the in-flight request and ends every subscription.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.current != nil && !s.current.canceled {
		s.current.canceled = true
		s.current.cancel()
	}
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Service) publish(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		select {
		case ch <- result:
		default:
			s.lggr.Warnf("[eta] subscriber %d is full, dropping result for code=%s", id, result.Code)
		}
	}
}
