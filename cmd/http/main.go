package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fsanano/item-catalog/internal/config"
	"fsanano/item-catalog/internal/handler"
	"fsanano/item-catalog/internal/identity/google"
	"fsanano/item-catalog/internal/repository"
	"fsanano/item-catalog/internal/service"
	"fsanano/item-catalog/internal/session"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		zap.NewExample().Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	// 2. Setup Database
	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Connected to database")

	// 3. Setup Logic
	repo := repository.NewCatalogRepository(dbPool)
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	// Logic - Identity
	googleProvider := google.NewProvider(google.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})
	sessions := session.NewStore(cfg.SessionSecret, cfg.SecureCookies)
	auth := session.NewManager(repo, logger, cfg.ProviderTimeout, googleProvider)

	// Logic - Catalog
	catalog := service.NewCatalogService(repo, logger, cfg.RecentItemsLimit)

	h := handler.NewHandler(handler.Dependencies{
		Catalog:       catalog,
		Sessions:      sessions,
		Auth:          auth,
		ConnectRoutes: map[string]string{"g": google.Name},
		Logger:        logger,
	})

	// 4. Setup Server
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Run Server with Graceful Shutdown
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
