package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blogzine/internal/config"
	"github.com/blogzine/internal/db"
	"github.com/blogzine/internal/handler"
	"github.com/blogzine/internal/router"
	"github.com/blogzine/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.GinMode == gin.DebugMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	gin.SetMode(cfg.GinMode)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("refusing to start")
	}
	if cfg.UsesDevSecret() {
		log.Warn().Msg("signing tokens and sessions with the development secret; set SESSION_SECRET and JWT_SECRET")
	}

	// 初始化数据库
	if err := db.Init(db.Options{Driver: cfg.DatabaseDriver, Path: cfg.DatabasePath, DSN: cfg.DatabaseURL}); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	if user, err := db.EnsureUser(db.DB, cfg.SeedUserName, cfg.SeedUserPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to seed user")
	} else if user != nil {
		log.Info().Str("username", user.Username).Msg("seed user ready")
	}

	api := handler.NewAPI(db.DB, storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLPath), handler.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		FeedPageSize:   cfg.FeedPageSize,
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
	})

	r := router.SetupRouter(api, router.Options{
		SessionSecret:      cfg.SessionSecret,
		UploadDir:          cfg.UploadDir,
		UploadURLPath:      cfg.UploadURLPath,
		CORSOrigins:        cfg.CORSOrigins,
		MaxMultipartMemory: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to run server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to shutdown server")
	}
	log.Info().Msg("server stopped")
}
