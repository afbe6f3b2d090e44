package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/transport-eta/backend/internal/handler/eta"
	"github.com/zhouzirui/transport-eta/backend/internal/handler/favorites"
	middlewarePkg "github.com/zhouzirui/transport-eta/backend/internal/middleware"
	etaService "github.com/zhouzirui/transport-eta/backend/internal/service/eta"
	favoritesService "github.com/zhouzirui/transport-eta/backend/internal/service/favorites"
	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
	"github.com/zhouzirui/transport-eta/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(favSvc *favoritesService.Service, etaSvc *etaService.Service, lggr logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	favoritesHandler := favorites.New(favSvc, lggr.Named("favorites"))
	etaHandler := eta.New(etaSvc, favSvc, lggr.Named("eta"))

	r.Route("/api", func(api chi.Router) {
		favoritesHandler.RegisterRoutes(api)
		etaHandler.RegisterRoutes(api)
	})

	return r
}
