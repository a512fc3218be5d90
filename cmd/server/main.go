package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stagehand-music/stagehand/internal/api"
	"github.com/stagehand-music/stagehand/internal/auth"
	"github.com/stagehand-music/stagehand/internal/blob"
	"github.com/stagehand-music/stagehand/internal/config"
	"github.com/stagehand-music/stagehand/internal/logging"
	"github.com/stagehand-music/stagehand/internal/service"
	"github.com/stagehand-music/stagehand/internal/storage/sql"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.Setup(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Create the directory holding a file-backed SQLite database.
	if cfg.Database.Driver == "sqlite3" && !strings.HasPrefix(cfg.Database.DSN, "file::memory:") && cfg.Database.DSN != ":memory:" {
		path, _, _ := strings.Cut(strings.TrimPrefix(cfg.Database.DSN, "file:"), "?")
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Fatal().Err(err).Str("dir", dir).Msg("failed to create data directory")
			}
		}
	}

	store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to initialize storage")
	}
	defer store.Close()

	ctx := context.Background()

	var blobs blob.Store
	if cfg.Blob.Enabled() {
		s3Store, err := blob.NewS3(ctx, cfg.Blob)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize blob storage")
		}
		blobs = s3Store
		logger.Info().Str("bucket", cfg.Blob.Bucket).Str("endpoint", cfg.Blob.Endpoint).Msg("uploads enabled")
	} else {
		logger.Warn().Msg("BLOB_BUCKET not set, uploads disabled")
	}

	var oidc *api.OIDC
	if cfg.OIDC.Enabled {
		oidc, err = newOIDC(ctx, &cfg.OIDC)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize OIDC")
		}
		logger.Info().Str("issuer", cfg.OIDC.IssuerURL).Msg("OIDC sign-in enabled")
	}

	router := api.NewRouter(api.Deps{
		Store:  store,
		Layout: service.NewLayoutService(store),
		Blobs:  blobs,
		Config: cfg,
		OIDC:   oidc,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr()).Msg("starting stagehand")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info().Str("signal", sig.String()).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	logger.Info().Msg("server stopped")
}

func newOIDC(ctx context.Context, cfg *config.OIDCConfig) (*api.OIDC, error) {
	key, err := cfg.GetSessionSecretBytes()
	if err != nil {
		return nil, err
	}
	secure := strings.HasPrefix(cfg.RedirectURL, "https://")

	provider, err := auth.NewOIDCProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessionManager(key, cfg.SessionDuration, secure)
	if err != nil {
		return nil, err
	}
	states, err := auth.NewStateStore(key, secure)
	if err != nil {
		return nil, err
	}
	return &api.OIDC{
		Provider:  provider,
		Sessions:  sessions,
		States:    states,
		LogoutURL: cfg.LogoutURL,
	}, nil
}
