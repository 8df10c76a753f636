package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wondertwin-ai/app-otp/internal/observability"
	"github.com/wondertwin-ai/app-otp/internal/redisclient"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HealthResponse reports service and dependency status
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// HealthHandlers exposes the liveness endpoint
type HealthHandlers struct {
	mongo *mongo.Client
	redis *redisclient.Client
}

// NewHealthHandlers creates a health handler checking the given dependencies
func NewHealthHandlers(mongoClient *mongo.Client, redisClient *redisclient.Client) *HealthHandlers {
	return &HealthHandlers{mongo: mongoClient, redis: redisClient}
}

// HealthCheck godoc
// @Summary Health check
// @Description Reports whether the service and its dependencies are reachable
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /v1/health [get]
func (h *HealthHandlers) HealthCheck(c *gin.Context) {
	checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	healthy := true
	services := map[string]string{}

	if h.mongo != nil {
		if err := h.mongo.Ping(checkCtx, nil); err != nil {
			observability.Logger().Warn("mongodb health check failed", zap.Error(err))
			services["mongodb"] = "unhealthy"
			healthy = false
		} else {
			services["mongodb"] = "healthy"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(checkCtx).Err(); err != nil {
			observability.Logger().Warn("redis health check failed", zap.Error(err))
			services["redis"] = "unhealthy"
			healthy = false
		} else {
			services["redis"] = "healthy"
		}
	}

	resp := HealthResponse{Status: "healthy", Services: services}
	if !healthy {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
