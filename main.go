package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/octopus-budget-be/internal/api"
	"github.com/isdelr/octopus-budget-be/internal/auth"
	"github.com/isdelr/octopus-budget-be/internal/config"
	"github.com/isdelr/octopus-budget-be/internal/database"
	"github.com/isdelr/octopus-budget-be/internal/logger"
	"github.com/isdelr/octopus-budget-be/internal/monitoring"
	"github.com/isdelr/octopus-budget-be/internal/services"
	"github.com/isdelr/octopus-budget-be/internal/session"
	"github.com/isdelr/octopus-budget-be/internal/web"
	"github.com/isdelr/octopus-budget-be/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init()

	// Ensure the base directory for per-user databases exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Set up the shared credential database
	db, err := database.New(cfg.AuthDBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply database migrations: %v", err)
	}

	// Per-user store resolver
	manager := database.NewManager(cfg.DataDir)
	defer manager.Close()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Auth building blocks
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	tracker := auth.NewTracker(cfg.LockoutThreshold, cfg.LockoutDuration)
	captcha := auth.NewCaptchaVerifier(cfg.RecaptchaSecret, cfg.RecaptchaVerifyURL, cfg.CaptchaTimeout)
	sessions := session.NewStore(cfg.SessionTTL)

	// Set up services
	userService := services.NewUserService(db)
	activityService := services.NewActivityService(db, hub)
	authService := services.NewAuthService(userService, tracker, captcha, manager, activityService)
	budgetService := services.NewBudgetService(manager, activityService)

	// Set up and run the background janitor
	janitor, err := monitoring.NewJanitor(cfg.CleanupSchedule, sessions, tracker)
	if err != nil {
		log.Fatalf("Failed to set up janitor: %v", err)
	}
	janitor.Run()

	// Set up router: JSON API plus the server-rendered web UI
	router := api.NewRouter(hub, tokens, authService, budgetService, activityService)

	webHandler, err := web.NewHandler(sessions, authService, userService, budgetService, cfg.RecaptchaSiteKey, config.IsProduction())
	if err != nil {
		log.Fatalf("Failed to set up web handler: %v", err)
	}
	webHandler.Register(router)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on port %d\n", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
