package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SergeiKhy/shortify/internal/repository"
)

type HealthHandler struct {
	db    *repository.PostgresDB
	redis *repository.RedisDB
}

func NewHealthHandler(db *repository.PostgresDB, redis *repository.RedisDB) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Check reports per-dependency health. The service answers 200 as long as
// the process is up; degraded dependencies show in the body.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := gin.H{}
	if h.db != nil {
		deps["postgres"] = statusOf(h.db.Pool.Ping(ctx))
	}
	if h.redis != nil {
		deps["redis"] = statusOf(h.redis.Client.Ping(ctx).Err())
	}

	c.JSON(http.StatusOK, gin.H{
		"service":      "shortify",
		"status":       "healthy",
		"dependencies": deps,
	})
}

func statusOf(err error) string {
	if err != nil {
		return "unhealthy"
	}
	return "healthy"
}
