package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/emify/backend/internal/auth"
	"github.com/emify/backend/internal/config"
	"github.com/emify/backend/internal/db"
	httphandler "github.com/emify/backend/internal/http"
	"github.com/emify/backend/internal/http/handlers"
	"github.com/emify/backend/internal/repo"
)

func main() {
	// .env is optional; real env vars override it
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Signing keys are loaded once and held for the process lifetime.
	// Refusing to start on unreadable keys beats minting unverifiable tokens.
	keys, err := auth.LoadKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath)
	if err != nil {
		log.Fatalf("Failed to load signing keys: %v", err)
	}

	ctx := context.Background()

	log.Printf("DB DSN (masked): %s", db.RedactDSN(cfg.DatabaseURL))
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := runMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := repo.NewUserRepo(database)
	otpRepo := repo.NewOtpRepo(database)
	sessionRepo := repo.NewSessionRepo(database)

	tokens := auth.NewTokenService(keys, cfg.TokenIssuer, cfg.PrimaryTokenTTL, cfg.RefreshTokenTTL)
	authService := auth.NewAuthService(otpRepo, userRepo, sessionRepo, tokens, cfg.OTPTTL)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userRepo, sessionRepo)

	router := httphandler.NewRouter(authHandler, userHandler, tokens)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from module root)")
	}

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
