package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/omarcisse97/sopo/internal/api"
	"github.com/omarcisse97/sopo/internal/cache"
	"github.com/omarcisse97/sopo/internal/config"
	"github.com/omarcisse97/sopo/internal/db"
	"github.com/omarcisse97/sopo/internal/services"
	"github.com/omarcisse97/sopo/internal/storage"
	"github.com/omarcisse97/sopo/internal/taxonomy"
	"github.com/omarcisse97/sopo/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'img' (image processing), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Taxonomy is embedded and validated once at startup
	tax, err := taxonomy.Load()
	if err != nil {
		log.Fatalf("Failed to load taxonomy: %v", err)
	}

	// Initialize Database
	pg, err := db.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectPostgres(pg); err != nil {
			log.Printf("Error disconnecting from Postgres: %v", err)
		}
	}()
	if cfg.AutoMigrate {
		if err := db.EnsureSchema(context.Background(), pg); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		fmt.Println("Schema is up to date.")
	}

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Initialize image storage
	imageStorage, mongoClient, err := setupImageStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}
	if mongoClient != nil {
		defer func() {
			if err := db.DisconnectMongo(mongoClient); err != nil {
				log.Printf("Error disconnecting from MongoDB: %v", err)
			}
		}()
	}

	// Initialize Services needed by the task processor
	listingService := services.NewListingService(pg, tax)

	// Initialize Task Client
	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()

	// Initialize Task Processor
	taskProcessor := tasks.NewTaskProcessor(cfg, listingService, imageStorage)

	// WaitGroup for managing goroutines
	var wg sync.WaitGroup

	// Channel to signal shutdown from Service API
	shutdownChan := make(chan struct{}, 1)

	// Start Service API (always runs)
	serviceRouter := api.SetupServiceRouter(cfg, redisClient, shutdownChan)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: serviceRouter,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("Service API listening on :%s\n", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		fmt.Println("Service API server stopped.")
	}()

	// --- Mode-specific servers ---
	var mainApiSrv *http.Server
	var taskServers []*asynq.Server

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		fmt.Println("Starting main API server...")
		// Router initializes its own needed services
		mainApiRouter := api.SetupRouter(cfg, pg, redisClient, tax, imageStorage, taskClient)
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           mainApiRouter,
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Main API listening on :%s\n", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			fmt.Println("Main API server stopped.")
		}()
	}

	startTaskServer := func(name string, isImageWorker, isBgWorker bool) {
		srv, mux := tasks.SetupServer(redisClient, taskProcessor, isImageWorker, isBgWorker)
		if srv == nil {
			return
		}
		fmt.Printf("%s task server starting...\n", name)
		if err := srv.Start(mux); err != nil {
			log.Fatalf("%s task server error: %v", name, err)
		}
		taskServers = append(taskServers, srv)
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		startTaskServer("Background", false, true)
	case "img":
		startTaskServer("Image processing", true, false)
	case "all":
		apiMode()
		startTaskServer("Background", false, true)
		startTaskServer("Image processing", true, false)
	default:
		log.Fatalf("Invalid run mode specified in config: %s.", cfg.RunMode)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)
	case <-shutdownChan:
		fmt.Println("\nShutdown requested via Service API. Shutting down gracefully...")
	}

	// Create context with timeout for shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	fmt.Println("Shutting down Service API server...")
	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}

	if mainApiSrv != nil {
		fmt.Println("Shutting down Main API server...")
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}

	for _, srv := range taskServers {
		srv.Shutdown()
	}

	// Wait for all server goroutines to finish
	fmt.Println("Waiting for servers to stop...")
	wg.Wait()

	fmt.Println("Server gracefully stopped")
}

// setupImageStorage builds the configured image backend. The Mongo client is
// returned only for the GridFS backend so the caller can disconnect it.
func setupImageStorage(cfg *config.Config) (storage.IImageStorage, *mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch cfg.ImageBackend {
	case config.ImageBackendGridFS:
		mongoClient, mongoDb, err := db.ConnectMongo(cfg.MongoURI, cfg.MongoDbName)
		if err != nil {
			return nil, nil, err
		}
		bucket, err := db.OpenImageBucket(mongoDb, cfg.GridFSBucket)
		if err != nil {
			_ = db.DisconnectMongo(mongoClient)
			return nil, nil, err
		}
		imageStorage, err := storage.NewGridFSStorage(ctx, mongoDb, bucket, cfg.GridFSBucket, cfg.PublicBaseURL)
		if err != nil {
			_ = db.DisconnectMongo(mongoClient)
			return nil, nil, err
		}
		fmt.Printf("Images stored in GridFS bucket %q.\n", cfg.GridFSBucket)
		return imageStorage, mongoClient, nil
	default:
		s3Client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		fmt.Printf("Images stored in S3 bucket %q.\n", cfg.AwsS3Bucket)
		return storage.NewS3Storage(s3Client, cfg), nil, nil
	}
}
