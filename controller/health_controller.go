package controller

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StoreStatus is the part of store.Store the health check looks at.
type StoreStatus interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

const (
	serviceName    = "docsearch"
	serviceVersion = "1.0.0"
)

// HealthController serves GET /health.
type HealthController struct {
	store   StoreStatus
	timeout time.Duration
}

func NewHealthController(store StoreStatus) *HealthController {
	return &HealthController{store: store, timeout: 2 * time.Second}
}

// Health answers 200 while the vector store responds to a ping and 503
// otherwise. The document count is included when the store reports it.
func (h *HealthController) Health(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(c); err != nil {
		log.Printf("HEALTH: vector store ping failed: %v", err)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": serviceName,
			"version": serviceVersion,
			"error":   err.Error(),
		})
		return
	}

	body := gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	}
	if n, err := h.store.Count(c); err == nil {
		body["documents"] = n
	}
	ctx.JSON(http.StatusOK, body)
}
