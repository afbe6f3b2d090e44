package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/transport-eta/backend/internal/config"
	"github.com/zhouzirui/transport-eta/backend/internal/handler"
	"github.com/zhouzirui/transport-eta/backend/internal/service/eta"
	"github.com/zhouzirui/transport-eta/backend/internal/service/favorites"
	favstore "github.com/zhouzirui/transport-eta/backend/internal/storage/favorites"
	"github.com/zhouzirui/transport-eta/backend/internal/storage/prefs"
	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	lggr, err := logger.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lggr.Sync() }()

	if envErr != nil {
		lggr.Infof("no .env file loaded (%v), continuing with system environment variables only", envErr)
	}

	if err := run(ctx, cfg, lggr); err != nil {
		lggr.Errorf("server error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, lggr logger.Logger) error {
	// Open the prefs dictionary and the slotted favorites store on top of it
	dict, err := prefs.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer dict.Close()
	lggr.Infof("prefs backend %q ready (path=%s)", cfg.Storage.Backend, cfg.Storage.Path)

	mapper := favstore.JSONMapper{}
	store, err := favstore.New(dict, mapper, lggr.Named("store"))
	if err != nil {
		return err
	}
	defer store.Close()

	favoritesService := favorites.NewService(store, mapper, lggr.Named("favorites"))
	defer favoritesService.Close()

	// Initialize ETA service
	var gateway eta.Gateway
	if cfg.ETA.Enabled() {
		httpGateway, err := eta.NewHTTPGateway(eta.HTTPGatewayOptions{
			BaseURL:       cfg.ETA.GatewayURL,
			Client:        &http.Client{Timeout: cfg.ETA.Timeout},
			RetryAttempts: cfg.ETA.RetryAttempts,
			RetryDelay:    cfg.ETA.RetryDelay,
		}, lggr.Named("gateway"))
		if err != nil {
			return err
		}
		gateway = httpGateway
		lggr.Infof("ETA gateway configured at %s", cfg.ETA.GatewayURL)
	} else {
		lggr.Warnf("ETA_GATEWAY_URL not set, eta requests will be rejected")
	}
	etaService := eta.NewService(gateway, cfg.ETA.Timeout, lggr.Named("eta"))
	defer etaService.Close()

	router := handler.NewRouter(favoritesService, etaService, lggr)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}

	lggr.Infof("transport-eta backend listening on %s", ln.Addr())
	return runServer(ctx, srv, ln, favoritesService, etaService)
}

// liveFeed is a service whose subscribers hold long-running responses open.
type liveFeed interface {
	Close()
}

func runServer(ctx context.Context, srv *http.Server, ln net.Listener, feeds ...liveFeed) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		// Shutdown neither cancels running requests nor tracks hijacked websocket
		// connections, so SSE streams and websocket feeds are ended here
		for _, feed := range feeds {
			feed.Close()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
