package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/thinkarr/internal/adapter/llm"
	"github.com/xiaot623/thinkarr/internal/adapter/media"
	"github.com/xiaot623/thinkarr/internal/config"
	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/infra/logger"
	"github.com/xiaot623/thinkarr/internal/infra/tracer"
	"github.com/xiaot623/thinkarr/internal/repository"
	"github.com/xiaot623/thinkarr/internal/service"
	"github.com/xiaot623/thinkarr/internal/settings"
	"github.com/xiaot623/thinkarr/internal/tools"
	handler "github.com/xiaot623/thinkarr/internal/transport/http"
	"github.com/xiaot623/thinkarr/policy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "thinkarr: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	log.Info("starting thinkarr",
		"http_port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"llm_mode", cfg.LLMMode,
	)

	ctx := context.Background()
	shutdownTracer, err := tracer.Setup(ctx, cfg.TraceExporter)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("failed to shut down tracer", "error", err)
		}
	}()

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	st := settings.New(db, log)
	if err := st.Seed(ctx, cfg); err != nil {
		return err
	}

	// Media service clients
	mediaOpts := media.Options{
		Timeout:   cfg.ServiceTimeout,
		RateLimit: cfg.ServiceRateLimit,
		Burst:     cfg.ServiceBurst,
	}
	plex := media.NewPlex(st, mediaOpts)
	sonarr := media.NewSonarr(st, mediaOpts)
	radarr := media.NewRadarr(st, mediaOpts)
	overseerr := media.NewOverseerr(st, mediaOpts)

	// Tools
	registry := tools.NewRegistry(cfg.ToolTimeout, log)
	catalog := tools.NewCatalog(registry, st, tools.Providers{
		Plex:      plex,
		Sonarr:    sonarr,
		Radarr:    radarr,
		Overseerr: overseerr,
	}, log)
	if err := catalog.Populate(ctx); err != nil {
		// Retried on the first turn.
		log.Warn("failed to register tools", "error", err)
	}

	// Initialize policy engine
	gate, err := policy.NewDefaultGate(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	// Initialize service
	svc := service.New(service.Deps{
		Store:    db,
		Settings: st,
		Catalog:  catalog,
		Tools:    registry,
		Models:   llm.NewResolver(st, llm.NewClientFactory(cfg, log)),
		Gate:     gate,
		Probes: map[domain.ServiceName]service.Pinger{
			domain.ServicePlex:      plex,
			domain.ServiceSonarr:    sonarr,
			domain.ServiceRadarr:    radarr,
			domain.ServiceOverseerr: overseerr,
		},
		Logger:       log,
		TitleTimeout: cfg.TitleTimeout,
	})
	if _, err := svc.EnsureAdmin(ctx, cfg.AdminUserID); err != nil {
		return err
	}

	server := handler.NewServer(svc, log)

	// Start server
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("http server started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("failed to shut down server gracefully", "error", err)
	}
	svc.Wait()

	log.Info("stopped")
	return nil
}
