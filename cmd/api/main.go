package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-org-insights/internal/api"
	"github.com/kurihiro0119/github-org-insights/internal/config"
	"github.com/kurihiro0119/github-org-insights/internal/crawler"
	"github.com/kurihiro0119/github-org-insights/internal/onboarding"
	"github.com/kurihiro0119/github-org-insights/internal/storage"
	"github.com/kurihiro0119/github-org-insights/internal/storage/memory"
	"github.com/kurihiro0119/github-org-insights/internal/storage/postgres"
	"github.com/kurihiro0119/github-org-insights/internal/storage/sqlite"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Initialize storage
	var store storage.Storage
	switch cfg.StorageType {
	case "postgres":
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL storage: %v", err)
		}
	case "memory":
		store = memory.NewMemoryStorage()
	default:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite storage: %v", err)
		}
	}
	defer store.Close()

	// Initialize crawler
	budget := crawler.NewRateBudget()
	factory := crawler.NewRequestFactory(cfg.CrawlWindowDays, cfg.ExternalRepoBatchSize)
	client := crawler.NewGitHubClient(cfg.GitHubToken, cfg.GitHubGraphQLURL)
	processors := crawler.NewProcessors(store, factory, budget, logger)
	scheduler := crawler.NewScheduler(store, client, budget, processors, logger, cfg.ProcessingRate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	// Initialize onboarding tracker and handler
	tracker := onboarding.NewTracker(store, factory, budget, cfg.StaleAfter, logger)
	handler := api.NewHandler(tracker)

	// Setup routes
	router := api.SetupRoutes(handler)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	fmt.Printf("Starting API server on %s\n", addr)
	fmt.Printf("Storage type: %s\n", cfg.StorageType)

	if err := router.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}
