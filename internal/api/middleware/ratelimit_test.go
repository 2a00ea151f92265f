package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/omarcisse97/sopo/internal/api/middleware"
)

func setupTestEngine(limiter *middleware.RateLimiterMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CORSMiddleware("https://sopo.example.com"))
	r.Use(limiter.Limit())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func performRequest(r http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BucketPerClient(t *testing.T) {
	limiter := middleware.NewRateLimiterMiddleware("test", 1, 2)
	defer limiter.Stop()
	r := setupTestEngine(limiter)

	assert.Equal(t, http.StatusOK, performRequest(r, "GET", "/test", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, performRequest(r, "GET", "/test", "10.0.0.1").Code)

	w := performRequest(r, "GET", "/test", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, w.Body.String())

	// another client has its own bucket
	assert.Equal(t, http.StatusOK, performRequest(r, "GET", "/test", "10.0.0.2").Code)
}

func TestCORSMiddleware(t *testing.T) {
	limiter := middleware.NewRateLimiterMiddleware("test", 100, 100)
	defer limiter.Stop()
	r := setupTestEngine(limiter)

	w := performRequest(r, "OPTIONS", "/test", "10.0.0.3")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://sopo.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Location")

	w = performRequest(r, "GET", "/test", "10.0.0.3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://sopo.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDMiddleware(t *testing.T) {
	limiter := middleware.NewRateLimiterMiddleware("test", 100, 100)
	defer limiter.Stop()
	r := setupTestEngine(limiter)

	w := performRequest(r, "GET", "/test", "10.0.0.4")
	assert.Len(t, w.Header().Get(middleware.HeaderRequestID), 36)

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set(middleware.HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(middleware.HeaderRequestID))
}
