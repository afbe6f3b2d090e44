package favorites

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/transport-eta/backend/internal/model/transport"
	favservice "github.com/zhouzirui/transport-eta/backend/internal/service/favorites"
	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
	"github.com/zhouzirui/transport-eta/backend/pkg/utils"
)

// Handler 收藏服务的HTTP处理器
type Handler struct {
	svc      *favservice.Service
	lggr     logger.Logger
	upgrader websocket.Upgrader
	feeds    sync.WaitGroup
}

// New 创建收藏处理器
func New(svc *favservice.Service, lggr logger.Logger) *Handler {
	if lggr == nil {
		lggr = logger.Nop()
	}
	return &Handler{
		svc:  svc,
		lggr: lggr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Wait blocks until every open websocket feed has returned.
func (h *Handler) Wait() { h.feeds.Wait() }

// RegisterRoutes 注册收藏相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/favorites", func(fav chi.Router) {
		fav.Get("/", h.handleList)
		fav.Post("/", h.handleMark)
		fav.Delete("/", h.handleClear)
		fav.Get("/ws", h.handleWebSocket)
		fav.Get("/{id}", h.handleGet)
		fav.Delete("/{id}", h.handleRemove)
	})
}

type markRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Type      string `json:"type"`
	LatestETA string `json:"latestEta"`
}

// handleList 列出所有收藏
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.GetAll(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, items)
}

// handleMark 收藏一个站点
func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	var payload markRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.svc.MarkAsFavorite(r.Context(), transport.Transport{
		ID:        payload.ID,
		Name:      payload.Name,
		Code:      payload.Code,
		Type:      transport.ParseType(payload.Type),
		LatestETA: payload.LatestETA,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, saved)
}

// handleGet 查询单个收藏
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, item)
}

// handleRemove 取消收藏
func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveAsFavorite(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClear 清空收藏
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAll(r.Context()); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, favservice.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, favservice.ErrNoCapacity), errors.Is(err, favservice.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, favservice.ErrCodeRequired), errors.Is(err, favservice.ErrNameRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.lggr.Errorf("[favorites] request failed: %v", err)
		h.respondError(w, status, "internal error")
		return
	}
	h.respondError(w, status, err.Error())
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	if err := utils.RespondJSON(w, status, payload); err != nil {
		h.lggr.Warnf("[favorites] %v", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
