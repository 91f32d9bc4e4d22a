package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/levywanke/Tracking-System/internal/app/migrate"
	"github.com/levywanke/Tracking-System/internal/app/seed"
	httpx "github.com/levywanke/Tracking-System/internal/http"
	"github.com/levywanke/Tracking-System/internal/repository/postgres"
	"github.com/levywanke/Tracking-System/internal/service/auth"
	"github.com/levywanke/Tracking-System/internal/service/equipment"
	"github.com/levywanke/Tracking-System/internal/service/location"
	oauthsvc "github.com/levywanke/Tracking-System/internal/service/oauth"
	"github.com/levywanke/Tracking-System/internal/service/personnel"
	"github.com/levywanke/Tracking-System/internal/ws"
	"github.com/levywanke/Tracking-System/pkg/config"
	"github.com/levywanke/Tracking-System/pkg/logger"
)

func main() {
	log := logger.New("api", slog.LevelInfo)

	cfg, err := config.LoadAPIConfig()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)

	if path := strings.TrimSpace(cfg.SeedUsersFile); path != "" {
		if err := seed.Users(ctx, repo, path, log); err != nil {
			log.Error("user seeding failed", "error", err)
			os.Exit(1)
		}
	}

	checkInHub := ws.NewHub()

	authSvc := auth.New(repo, repo, log, cfg)
	oauthSvc := oauthsvc.New(authSvc, log, cfg)
	personnelSvc := personnel.New(repo, log)
	equipmentSvc := equipment.New(repo, repo, log)
	locationSvc := location.New(repo, repo, checkInHub, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateRedisPass, cfg.RateRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authSvc, oauthSvc, personnelSvc, equipmentSvc, locationSvc, limiter, httpx.Options{
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
		ResendWindow: cfg.ResendWindow,
		DBHealth:     pool.Ping,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
