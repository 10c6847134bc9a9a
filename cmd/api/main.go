// Package main is the entry point for the Panchang server.
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

	"github.com/zapponejosh/panchang-api/internal/api"
	"github.com/zapponejosh/panchang-api/internal/config"
	"github.com/zapponejosh/panchang-api/internal/database"
	"github.com/zapponejosh/panchang-api/internal/llm"
	"github.com/zapponejosh/panchang-api/internal/logger"
	"github.com/zapponejosh/panchang-api/internal/panchang"
	"github.com/zapponejosh/panchang-api/internal/scheduler"
	"github.com/zapponejosh/panchang-api/internal/view"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Setup structured logging
	log := logger.Setup(cfg)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("starting panchang server",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("log_level", cfg.LogLevel),
		slog.String("timezone", cfg.Timezone),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Response cache
	db, err := database.Open(database.DefaultConfig(cfg.CachePath), log)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return err
	}
	log.Info("cache ready", slog.String("path", cfg.CachePath), slog.Int("migrations_applied", applied))

	// Generator and service
	if cfg.LLMAPIKey == "" {
		log.Warn("LLM_API_KEY is not set; generator requests will fail")
	}
	gen := llm.New(llm.Config{
		BaseURL:           cfg.LLMBaseURL,
		APIKey:            cfg.LLMAPIKey,
		DayModel:          cfg.LLMDayModel,
		MonthModel:        cfg.LLMMonthModel,
		MaxRetries:        cfg.LLMMaxRetries,
		Timeout:           cfg.LLMTimeout,
		RequestsPerMinute: cfg.LLMRequestsPerMin,
		Logger:            log,
	})
	svc := panchang.NewService(gen, database.NewResponseCache(db), panchang.Options{
		CacheTTL: cfg.CacheTTL,
		Location: cfg.Location(),
		Logger:   log,
	})

	renderer, err := view.NewRenderer()
	if err != nil {
		return err
	}
	handlers := api.NewHandlers(svc, db, renderer, cfg, log)

	// Background jobs
	sched, err := scheduler.New(scheduler.Config{
		WarmSpec:  cfg.WarmCron,
		PurgeSpec: cfg.PurgeCron,
		Location:  cfg.Location(),
		Query:     defaultQuery(cfg),
	}, svc, db, log)
	if err != nil {
		return err
	}
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.SetupRoutes(handlers, log),
		ReadHeaderTimeout: 10 * time.Second,
		// The page waits on the day and month generator calls in parallel,
		// each capped at GeneratorBudget.
		WriteTimeout: cfg.GeneratorBudget() + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("panchang server ready", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warn("scheduler did not stop cleanly", slog.Any("error", err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server shutdown completed")
	return nil
}

// defaultQuery is the almanac the scheduler keeps warm.
func defaultQuery(cfg *config.Config) panchang.Query {
	lang, err := panchang.ParseLanguage(cfg.DefaultLanguage)
	if err != nil {
		lang = panchang.LanguageTelugu
	}
	region, err := panchang.ParseRegion(cfg.DefaultRegion)
	if err != nil {
		region = panchang.RegionAndhra
	}
	return panchang.Query{
		Location: cfg.DefaultLocation,
		Language: lang,
		Region:   region,
	}
}
