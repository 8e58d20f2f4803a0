package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/cloudsquares/photoservice/internal/auth"
	"github.com/cloudsquares/photoservice/internal/config"
	httpHandler "github.com/cloudsquares/photoservice/internal/handler/http"
	"github.com/cloudsquares/photoservice/internal/handler/middleware"
	"github.com/cloudsquares/photoservice/internal/infrastructure/dispatch"
	"github.com/cloudsquares/photoservice/internal/infrastructure/processor"
	"github.com/cloudsquares/photoservice/internal/infrastructure/storage"
	"github.com/cloudsquares/photoservice/internal/usecase"
)

func main() {
	zlog.Init()
	zlog.Logger.Info().Msg("Starting Photo Service API Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("")
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Verifier
	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize token verifier")
	}

	// Object storage client, created once and shared by all requests
	objectStorage, err := storage.NewS3Storage(&cfg.Storage)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	// Downstream dispatcher
	dispatcher, err := dispatch.New(&cfg.Dispatch)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize dispatcher")
	}
	defer dispatcher.Close()

	// Transform + orchestrator
	imageProcessor := processor.NewImageProcessor(&cfg.Upload)
	photoUsecase := usecase.NewPhotoUsecase(
		imageProcessor,
		objectStorage,
		dispatcher,
		&cfg.Upload,
		time.Duration(cfg.Storage.PresignTTLSec)*time.Second,
	)

	// Gin engine + middleware
	engine := ginext.New("api")
	engine.Use(
		middleware.ErrorHandlerMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.CORSMiddleware(),
	)

	engine.GET("/health", func(c *ginext.Context) {
		c.JSON(http.StatusOK, ginext.H{"status": "ok"})
	})

	photoHandler := httpHandler.NewPhotoHandler(
		photoUsecase,
		cfg.Upload.MaxFiles,
		cfg.Upload.MaxTotalSizeMB,
	)
	photoHandler.RegisterRoutes(engine, middleware.AuthMiddleware(verifier))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Logger.Fatal().Err(err).Msg("Failed to start API server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	} else {
		zlog.Logger.Info().Msg("HTTP server stopped gracefully")
	}

	zlog.Logger.Info().Msg("API shutdown complete")
}
