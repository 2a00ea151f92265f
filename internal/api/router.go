package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/omarcisse97/sopo/internal/api/handlers"
	"github.com/omarcisse97/sopo/internal/api/middleware"
	"github.com/omarcisse97/sopo/internal/cache"
	"github.com/omarcisse97/sopo/internal/config"
	"github.com/omarcisse97/sopo/internal/services"
	"github.com/omarcisse97/sopo/internal/storage"
	"github.com/omarcisse97/sopo/internal/taxonomy"
	"github.com/omarcisse97/sopo/internal/tasks"
)

// SetupRouter configures and returns the main Gin engine. rdb and taskClient
// may be nil: counts are then uncached and views are incremented in-process.
func SetupRouter(cfg *config.Config, pg *sqlx.DB, rdb *redis.Client, tax *taxonomy.Store, images storage.IImageStorage, taskClient tasks.IAsynqClient) *gin.Engine {
	// Initialize services needed by API handlers HERE
	var countCache cache.ICountCache
	if rdb != nil {
		countCache = cache.NewCountCache(rdb, cfg.CountCacheTTL)
	}
	listingService := services.NewListingService(pg, tax)
	countService := services.NewCountService(listingService, tax, countCache)

	var thumbs services.ThumbnailScheduler
	if taskClient != nil {
		thumbs = tasks.NewThumbnailScheduler(taskClient)
	}
	views := tasks.NewViewDispatcher(taskClient, listingService)
	creationService := services.NewCreationService(listingService, images, cfg, thumbs)

	r := gin.Default()

	// Initialize Middleware
	rateLimiter := middleware.NewRateLimiterMiddleware("global", cfg.RateLimitRefillRate, cfg.RateLimitBucketSize)
	postLimiter := middleware.NewRateLimiterMiddleware("post", cfg.RateLimitPostRefillRate, cfg.RateLimitPostBucketSize)

	// Apply global middleware first (order matters)
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigin))
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	taxonomyHandler := handlers.NewRestTaxonomyHandler(tax, countService)
	listingHandler := handlers.NewRestListingHandler(cfg, tax, listingService, creationService, views)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Taxonomy routes
		v1.GET("/countries", taxonomyHandler.ListCountries)
		v1.GET("/countries/:country", taxonomyHandler.GetCountry)
		v1.GET("/countries/:country/cities/:city", taxonomyHandler.GetCity)
		v1.GET("/categories", taxonomyHandler.ListCategories)
		v1.GET("/countries/:country/cities/:city/categories/:category", taxonomyHandler.GetCategory)
		v1.GET("/countries/:country/cities/:city/categories/:category/listings", listingHandler.BrowseListings)

		// Listing routes
		v1.GET("/listings/search", listingHandler.SearchListings)
		v1.GET("/listings/by-email", listingHandler.ListingsByEmail)
		v1.GET("/listings/:id", listingHandler.GetListingByID)
		v1.POST("/listings", postLimiter.Limit(), listingHandler.CreateListing)

		if cfg.ImageBackend == config.ImageBackendGridFS {
			imageHandler := handlers.NewRestImageHandler(images)
			v1.GET("/images/*key", imageHandler.GetImage)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "flushCountCache":
			if rdb == nil {
				c.JSON(http.StatusOK, gin.H{"success": true, "result": 0})
				return
			}
			n, err := cache.NewCountCache(rdb, cfg.CountCacheTTL).Flush(c.Request.Context())
			if err != nil {
				log.Printf("Service API: Error flushing count cache: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "result": n})
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
