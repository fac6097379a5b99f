package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/roster-console/internal/apiclient"
	"github.com/DoyleJ11/roster-console/internal/config"
	"github.com/DoyleJ11/roster-console/internal/httpapi"
	"github.com/DoyleJ11/roster-console/internal/hub"
	"github.com/DoyleJ11/roster-console/internal/logging"
	"github.com/DoyleJ11/roster-console/internal/page"
	"github.com/DoyleJ11/roster-console/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	api, err := apiclient.New(cfg.APIBaseURL, apiclient.WithLogger(logger.Named("apiclient")))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pageLog := logger.Named("page")
	h := hub.NewHub(ctx, func(ctx context.Context) *page.Page {
		return page.NewPage(ctx, api, page.Options{NoticeTTL: cfg.NoticeTTL, Logger: pageLog})
	})

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, ws.Options{
		OriginPatterns: cfg.AllowedOrigins,
		Logger:         logger.Named("ws"),
	}, logger.Named("http"))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("api", cfg.APIBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
