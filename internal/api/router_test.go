package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/omarcisse97/sopo/internal/config"
)

func servicePost(r http.Handler, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/api", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestServiceRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdown := make(chan struct{}, 1)
	r := SetupServiceRouter(&config.Config{}, nil, shutdown)

	w := servicePost(r, `{"method":"shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-shutdown:
	default:
		t.Fatal("shutdown was not signaled")
	}

	w = servicePost(r, `{"method":"flushCountCache"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"result":0}`, w.Body.String())

	w = servicePost(r, `{"method":"reindex"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = servicePost(r, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
