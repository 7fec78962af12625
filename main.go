package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/krathong-voting/config"
	"github.com/saxenaaman628/krathong-voting/internal/api"
	"github.com/saxenaaman628/krathong-voting/internal/blob"
	"github.com/saxenaaman628/krathong-voting/internal/controller"
	"github.com/saxenaaman628/krathong-voting/internal/logging"
	"github.com/saxenaaman628/krathong-voting/internal/redis"
	redishandler "github.com/saxenaaman628/krathong-voting/internal/redisHandler"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		boot := logging.New("info", false)
		boot.Fatal().Err(err).Msg("load .env")
	}
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.InitRedis(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()

	store, err := redishandler.NewStore(rdb, redishandler.Options{
		KeyPrefix:      cfg.KeyPrefix,
		MinTeamMembers: cfg.MinTeamMembers,
		MaxRetries:     cfg.LedgerMaxRetries,
		CacheSize:      cfg.EntryCacheSize,
		Logger:         log.With().Str("component", "store").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create store")
	}

	blobs, err := blob.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.BlobBackend).Msg("create blob store")
	}
	if closer, ok := blobs.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	if !cfg.DevLoginEnabled {
		gin.SetMode(gin.ReleaseMode)
	}
	h := controller.New(store, blob.NewUploader(blobs, cfg.MaxUploadBytes), log)
	r, err := api.NewRouter(cfg, h, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("port", cfg.Port).Str("blob_backend", cfg.BlobBackend).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
