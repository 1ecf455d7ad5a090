package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreybb/scribe/api"
	"github.com/coreybb/scribe/auth"
	"github.com/coreybb/scribe/config"
	"github.com/coreybb/scribe/content"
	"github.com/coreybb/scribe/datastore"
	"github.com/coreybb/scribe/ebook"
	rh "github.com/coreybb/scribe/route-handlers"
	_ "github.com/lib/pq"
)

const (
	dbPingTimeout     = 5 * time.Second
	migrateTimeout    = 30 * time.Second
	shutdownTimeout   = 15 * time.Second
	dbMaxOpenConns    = 25
	dbMaxIdleConns    = 25
	dbConnMaxLifetime = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	db, err := setupDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Database setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), migrateTimeout)
	err = datastore.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		logger.Error("Database migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	userRepo := datastore.NewUserRepository(db)
	postRepo := datastore.NewPostRepository(db)

	credentials := auth.NewCredentialService(userRepo, cfg.JWTSecret, logger)
	postGenerator := ebook.NewPostGenerator(logger)

	authHandler := rh.NewAuthHandler(credentials)
	postHandler := rh.NewPostHandler(postRepo, content.NewProcessor(), postGenerator)

	router := api.SetupRoutes(api.RouterConfig{
		AuthHandler:    authHandler,
		PostHandler:    postHandler,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		DB:             db,
		Logger:         logger,
	})

	startServer(cfg.Port, router, logger)
}

func setupDatabase(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close unusable connection pool
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connection successful")
	return db, nil
}

func startServer(port string, router http.Handler, logger *slog.Logger) {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server starting", slog.String("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done() // Block until signal received
	logger.Info("Shutdown signal received, initiating graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.String("error", err.Error()))
	}

	logger.Info("Server gracefully stopped")
}
