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

	"chimera-backend/internal/config"
	"chimera-backend/internal/database"
	"chimera-backend/internal/handlers"
	"chimera-backend/internal/repository"
	"chimera-backend/internal/router"
	"chimera-backend/internal/services"
)

func main() {
	log.Println("Starting Chimera Backend...")

	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	if cfg.GeminiAPIKey == "" {
		log.Println("WARNING: GEMINI_API_KEY not set. Requests will fail until it is configured.")
		log.Println("Get your API key from https://aistudio.google.com/app/apikey")
	}

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	conversationRepo := repository.NewConversationRepo(pool)
	messageRepo := repository.NewMessageRepo(pool)
	attachmentRepo := repository.NewAttachmentRepo(pool)

	limiter := services.NewRateLimiter(cfg.GeminiRequestsPerMin)

	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, limiter)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini client initialized")

	storageService, err := services.NewStorageService(cfg.UploadDir, cfg.MaxImageSize, cfg.AllowedImageTypes, cfg.MaxImageDimension)
	if err != nil {
		log.Fatalf("✗ Upload storage initialization failed: %v", err)
	}
	log.Printf("✓ Upload storage ready at %s", cfg.UploadDir)

	chatService := services.NewChatService(conversationRepo, messageRepo, attachmentRepo, storageService, geminiService)

	chatHandler := handlers.NewChatHandler(chatService, 12*cfg.MaxImageSize)
	healthHandler := handlers.NewHealthHandler(pool, storageService, limiter, cfg.GeminiAPIKey)

	r := router.New(chatHandler, healthHandler, cfg.FrontendURL, cfg.UploadDir)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Chimera Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1/chat", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
