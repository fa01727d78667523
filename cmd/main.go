// Package main provides entry point for the call card relay.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"callcard-relay/internal/aircall"
	"callcard-relay/internal/card"
	"callcard-relay/internal/config"
	"callcard-relay/internal/crm"
	"callcard-relay/internal/dispatch"
	"callcard-relay/internal/enrich"
	"callcard-relay/internal/handler"
	"callcard-relay/internal/logger"
	"callcard-relay/internal/stagecache"
)

// Run is the testable entrypoint for the application.
func Run(ctx context.Context) error {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()
	log.Info("Starting call card relay")

	validate := validator.New()
	if errs := cfg.Validate(validate); len(errs) > 0 {
		log.Error("invalid configuration", zap.Any("fields", errs))
		return fmt.Errorf("invalid configuration: %v", errs)
	}

	pipedrive := crm.NewClient(cfg.PipedriveAPIToken, cfg.PipedriveBaseURL, cfg.PipedriveAppURL, cfg.HTTPTimeout)
	cards := aircall.NewClient(cfg.AircallAPIID, cfg.AircallAPIToken, cfg.AircallBaseURL, cfg.HTTPTimeout)
	svc := enrich.New(log, pipedrive, stagecache.New(pipedrive), card.NewFormatter(cfg.CardTimezone), cards, validate)
	tasks := dispatch.New(svc, log)

	h := handler.New(log, tasks)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/", h.Alive)
	r.Get("/healthz", h.Healthz)
	r.Post("/aircall/webhook", h.Webhook)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down server")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	if err := tasks.Stop(ctxShutdown); err != nil {
		log.Warn("in-flight enrichments abandoned", zap.Error(err))
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Run(ctx); err != nil {
		os.Exit(1)
	}
}
