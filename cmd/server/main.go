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

	"repochat/internal/api"
	"repochat/internal/config"
	"repochat/internal/core"
	"repochat/internal/github"
	"repochat/internal/kv"
	"repochat/internal/llm"
	"repochat/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Persistence collaborator
	kvStore, err := kv.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer kvStore.Close()
	dataStore := store.New(kvStore)

	// External service clients
	llmClient, err := llm.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.ChatModel)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	defer llmClient.Close()

	fetcher := github.NewFetcher(cfg.GitHubBaseURL, cfg.GitHubRawBaseURL, cfg.GitHubToken, cfg.FetchTimeout)

	// Core services
	userService := core.NewUserService(dataStore)
	repoService := core.NewRepoService(dataStore, fetcher, llmClient, cfg)
	chatService := core.NewChatService(dataStore, llmClient, llmClient, cfg)

	// HTTP surface
	apiHandler := api.NewAPIHandler(userService, repoService, chatService, cfg.JWTSecret)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
