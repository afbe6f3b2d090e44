package eta

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/transport-eta/backend/internal/model/transport"
	etaservice "github.com/zhouzirui/transport-eta/backend/internal/service/eta"
	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
	"github.com/zhouzirui/transport-eta/backend/pkg/utils"
)

// FavoriteFinder resolves a stop code to a stored favorite.
type FavoriteFinder interface {
	FindByCode(ctx context.Context, code string) (transport.Transport, bool)
}

// Handler 到站时间查询的HTTP处理器
type Handler struct {
	svc       *etaservice.Service
	favorites FavoriteFinder
	lggr      logger.Logger
	heartbeat time.Duration
}

// New 创建到站时间处理器，favorites 可以为 nil。
func New(svc *etaservice.Service, favorites FavoriteFinder, lggr logger.Logger) *Handler {
	if lggr == nil {
		lggr = logger.Nop()
	}
	return &Handler{svc: svc, favorites: favorites, lggr: lggr, heartbeat: 15 * time.Second}
}

// RegisterRoutes 注册到站时间相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/eta", func(eta chi.Router) {
		eta.Get("/status", h.handleStatus)
		eta.Get("/stream", h.handleStream)
		eta.Delete("/", h.handleCancel)
		eta.Post("/{code}", h.handleRequest)
	})
}

type etaResponse struct {
	ETA      transport.ETA        `json:"eta"`
	Favorite *transport.Transport `json:"favorite,omitempty"`
}

// handleRequest 发起一次到站时间查询并等待结果
func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	eta, err := h.svc.Request(r.Context(), code)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.lggr.Warnf("[eta] request for code=%s failed: %v", code, err)
		}
		h.respondError(w, status, err.Error())
		return
	}

	resp := etaResponse{ETA: eta}
	if h.favorites != nil {
		if fav, ok := h.favorites.FindByCode(r.Context(), eta.Code); ok {
			resp.Favorite = &fav
		}
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// handleCancel 取消进行中的查询
func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]bool{"canceled": h.svc.Cancel()})
}

// handleStatus 返回是否可以接受新的查询
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]bool{"acceptingRequests": h.svc.AcceptingRequests()})
}

// handleStream 以SSE推送查询结果，并定期发送心跳
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	results, unsubscribe := h.svc.Subscribe()
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	ctx := r.Context()

	if err := utils.SendSSEEvent(w, flusher, "status", map[string]any{
		"message":           "stream established",
		"acceptingRequests": h.svc.AcceptingRequests(),
	}); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.lggr.Debugf("[sse] closing eta stream")
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "eta", result); err != nil {
				h.lggr.Debugf("[sse] %v", err)
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEEvent(w, flusher, "heartbeat", map[string]any{
				"acceptingRequests": h.svc.AcceptingRequests(),
				"time":              t.UTC().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, etaservice.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, etaservice.ErrRequestInFlight), errors.Is(err, etaservice.ErrCanceled):
		return http.StatusConflict
	case errors.Is(err, etaservice.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, etaservice.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	if err := utils.RespondJSON(w, status, payload); err != nil {
		h.lggr.Warnf("[eta] %v", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
