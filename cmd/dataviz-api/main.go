package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filippo.io/age"
	"github.com/gin-gonic/gin"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/api"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/auth"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/config"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/database"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/googleanalytics"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/integrations"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/logging"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/metaads"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/repository"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/service"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/sweeper"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/vault"
)

func main() {
	if err := run(); err != nil {
		logging.Logger().Fatal().Err(err).Msg("application error")
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	for _, w := range cfg.Warnings() {
		logging.Warn().Msg(w)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	logging.Info().Msg("database connected")

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		return err
	}
	logging.Info().Msg("migrations completed")

	// Credential vault
	key, err := vaultKey(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	store := vault.New(cfg.CredentialsFile, key)

	// Initialize services
	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return err
	}
	userRepo := repository.NewUserRepository(db)
	userService := service.NewUserService(userRepo, jwtManager, service.RedirectURIs{
		Google: cfg.GoogleRedirectURL,
		Meta:   cfg.MetaRedirectURL,
	})

	// Provider connectors
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	googleClient := googleanalytics.NewClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, store,
		googleanalytics.WithHTTPClient(httpClient),
		googleanalytics.WithStateTTL(cfg.OAuthStateTTL),
	)
	metaClient := metaads.NewClient(cfg.MetaAppID, cfg.MetaAppSecret, cfg.MetaRedirectURL, store,
		metaads.WithHTTPClient(httpClient),
		metaads.WithStateTTL(cfg.OAuthStateTTL),
	)
	statusService := integrations.NewStatusService(store)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.NewServer(userService, jwtManager, statusService, googleClient, metaClient)
	httpServer := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: server.Handler(api.Options{
			FrontendURL:        cfg.FrontendURL,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start state sweeper in goroutine
	sw := sweeper.New(store, cfg.OAuthStateTTL, cfg.StateSweepInterval)
	sweeperDone := make(chan error, 1)
	go func() {
		sweeperDone <- sw.Start(ctx)
	}()

	errChan := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.ListenAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logging.Info().Msg("shutdown signal received")
	case err := <-errChan:
		cancel()
		return err
	}

	cancel()

	// Wait for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("http server shutdown failed")
	}

	select {
	case <-shutdownCtx.Done():
		logging.Warn().Msg("shutdown timeout exceeded")
	case err := <-sweeperDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("sweeper error")
		}
	}

	logging.Info().Msg("application stopped")
	return nil
}

// vaultKey parses the configured key, or generates one for this process
func vaultKey(configured string) (*age.X25519Identity, error) {
	if configured != "" {
		return vault.ParseKey(configured)
	}
	key, err := vault.GenerateKey()
	if err != nil {
		return nil, err
	}
	logging.Warn().Msg("generated a new ENCRYPTION_KEY; set it in the environment to keep stored credentials readable across restarts")
	return key, nil
}
