package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"quill/api/internal/app"
	"quill/api/internal/config"
	"quill/api/internal/events"
	"quill/api/internal/export"
	"quill/api/internal/llm"
	"quill/api/internal/notify"
	"quill/api/internal/retention"
	"quill/api/internal/revisions"
	"quill/api/internal/search"
	"quill/api/internal/store"
	"quill/api/internal/workflow"
)

func main() {
	cfg := config.Load()
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		log.Fatalf("OPENAI_API_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatalf("failed to create revisions dir: %v", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	dataStore := store.NewPostgresStore(db)
	bus := events.NewBus(redisClient)
	notifier := notify.New(redisClient)
	revisionService := revisions.New(cfg.ReposDir)

	llmClient, err := llm.NewOpenAIClient(llm.Settings{
		Model:   cfg.OpenAIModel,
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		log.Fatalf("llm client failed: %v", err)
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	searchService.ReindexAllFromPG(ctx)

	var archiver *export.Archiver
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archiver, err = export.NewArchiver(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("object store connection failed: %v", err)
		}
	}
	exportService := export.NewService(export.NewStoreSource(dataStore), archiver)

	engine := workflow.NewEngine(dataStore, llmClient, bus, notifier, cfg.AnalysisTimeout, cfg.ImproveTimeout)
	go func() {
		if err := bus.Run(ctx, engine.Handle); err != nil && ctx.Err() == nil {
			log.Fatalf("event bus failed: %v", err)
		}
	}()

	retentionJob := retention.NewJob(dataStore, searchService, cfg.RetentionMaxAgeDays)
	retentionScheduler := retention.NewScheduler(24 * time.Hour)
	retentionScheduler.Start(ctx, func(now time.Time) {
		if _, err := retentionJob.RunOnce(ctx, now); err != nil {
			log.Printf("retention run failed: %v", err)
		}
	})
	defer retentionScheduler.Stop()

	service := app.New(cfg, dataStore, bus, notifier, searchService, exportService, revisionService)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Quill API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
