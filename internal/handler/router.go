package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SergeiKhy/shortify/internal/auth"
	"github.com/SergeiKhy/shortify/internal/middleware"
	"github.com/SergeiKhy/shortify/internal/service"
)

func NewRouter(
	linkService service.LinkService,
	clickProcessor service.ClickProcessor,
	tokens *auth.TokenManager,
	rateLimiter *middleware.RateLimiter,
	health *HealthHandler,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware())
	}

	authMW := middleware.NewAuth(tokens)
	linkHandler := NewLinkHandler(linkService, clickProcessor, logger)
	clickHandler := NewClickHandler(clickProcessor, logger)

	v1 := router.Group("/api/v1")
	{
		if health != nil {
			v1.GET("/health", health.Check)
		}

		v1.POST("/links", authMW.Optional(), linkHandler.CreateLink)
		v1.GET("/links/:code", linkHandler.ResolveLink)
		v1.DELETE("/links/:code", authMW.Optional(), linkHandler.DeactivateLink)

		v1.GET("/links/:code/stats", clickHandler.GetStats)
		v1.GET("/links/:code/stats/daily", clickHandler.GetDailyStats)
		v1.GET("/links/:code/stats/realtime", clickHandler.GetRealtimeStats)
		v1.DELETE("/links/:code/clicks", authMW.Required(), clickHandler.PurgeClicks)

		v1.POST("/track", clickHandler.Track)
		v1.GET("/users/:id/links", authMW.Required(), linkHandler.ListUserLinks)
	}

	if health != nil {
		router.GET("/health", health.Check)
	}

	// Redirect lives at the root. Reserved segments (api, health, docs,
	// openapi.json) are rejected inside the handler before short-code
	// interpretation.
	router.GET("/:code", linkHandler.Redirect)

	return router
}
