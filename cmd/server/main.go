package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/silai-boutique/api/internal/cache"
	"github.com/silai-boutique/api/internal/config"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/logger"
	"github.com/silai-boutique/api/internal/router"
	"github.com/silai-boutique/api/internal/storage"
	"github.com/silai-boutique/api/internal/ws"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "boutique-api")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server exited with error", zap.Error(err))
	}
	zlog.Info("server exited")
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	zlog.Info("connected to database")

	deps := router.Deps{
		Config:  cfg,
		Pool:    pool,
		Queries: database.New(pool),
		Cache:   cache.Nop{},
		Log:     zlog,
	}

	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, "boutique")
		if err != nil {
			zlog.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			defer rc.Close() //nolint:errcheck
			deps.Cache = rc
			zlog.Info("analytics cache enabled")
		}
	}

	if cfg.MinIO.Endpoint != "" {
		images, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			zlog.Warn("object storage unavailable, fabric images disabled", zap.Error(err))
		} else {
			deps.Images = images
			zlog.Info("fabric image storage enabled", zap.String("bucket", cfg.MinIO.Bucket))
		}
	}

	hub := ws.NewHub(zlog)
	go hub.Run(ctx)
	deps.Hub = hub

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router.New(deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
