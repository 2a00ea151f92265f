package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 10 * time.Minute
	clientIdleAfter = 30 * time.Minute
)

// clientLimiter stores the token bucket of one client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware applies a per-client token bucket.
type RateLimiterMiddleware struct {
	name       string
	clients    map[string]*clientLimiter
	mu         sync.Mutex
	refillRate int
	bucketSize int
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewRateLimiterMiddleware creates a limiter allowing refillRate requests per
// second with bursts of bucketSize. name only appears in logs.
func NewRateLimiterMiddleware(name string, refillRate, bucketSize int) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		name:       name,
		clients:    make(map[string]*clientLimiter),
		refillRate: refillRate,
		bucketSize: bucketSize,
		stop:       make(chan struct{}),
	}
	// Start a background goroutine to clean up old client entries
	go rm.cleanupClients()
	return rm
}

// getClientIdentifier keys clients by IP.
func getClientIdentifier(c *gin.Context) string {
	return c.ClientIP()
}

// getClientLimiter retrieves or creates the limiter of a client.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rm.refillRate), rm.bucketSize)}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

// cleanupClients periodically removes idle client entries.
func (rm *RateLimiterMiddleware) cleanupClients() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stop:
			return
		case <-ticker.C:
			if n := rm.removeIdle(clientIdleAfter); n > 0 {
				log.Printf("Rate limiter %s cleanup removed %d old client entries.", rm.name, n)
			}
		}
	}
}

func (rm *RateLimiterMiddleware) removeIdle(idle time.Duration) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if time.Since(client.lastSeen) > idle {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// Stop ends the cleanup goroutine.
func (rm *RateLimiterMiddleware) Stop() {
	rm.stopOnce.Do(func() { close(rm.stop) })
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		if !rm.getClientLimiter(clientKey).limiter.Allow() {
			log.Printf("Rate limit %s exceeded for client: %s on %s %s", rm.name, clientKey, c.Request.Method, c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
