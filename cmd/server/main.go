package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"experta/internal/app"
	"experta/internal/auth"
	"experta/internal/config"
	"experta/internal/server"
	"experta/internal/storage"
	"experta/internal/store"
	"experta/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := store.NewGormStore(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	var files storage.DocumentStorage
	switch cfg.StorageBackend {
	case "minio":
		files, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		uploadDir := cfg.UploadDir
		if uploadDir == "" {
			uploadDir = "uploads/documents"
		}
		files, err = storage.NewFileStore(uploadDir)
	}
	if err != nil {
		log.Fatalf("failed to init document storage: %v", err)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret)

	upload := app.DefaultUploadPolicy()
	if cfg.MaxUploadFiles > 0 {
		upload.MaxFiles = cfg.MaxUploadFiles
	}
	if cfg.MaxUploadBytes > 0 {
		upload.MaxBytes = cfg.MaxUploadBytes
	}
	if len(cfg.AllowedMimes) > 0 {
		upload.AllowedMimes = cfg.AllowedMimes
	}
	appCore := app.New(dataStore, files, tokens, upload)

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		Tokens:                   tokens,
		Development:              cfg.IsDevelopment(),
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		TrustedProxyCIDRs:        cfg.TrustedProxyCIDRs,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
