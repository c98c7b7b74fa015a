package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mr1hm/coastwatch/internal/config"
)

// NewRouter builds the gin engine with recovery, CORS, metrics and rate
// limiting in front of h's routes.
func NewRouter(cfg *config.Config, h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-Result-Count", "X-Base-Style", "X-Tile-URL"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	if h.metrics != nil {
		router.Use(MetricsMiddleware(h.metrics))
	}
	router.Use(RateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, h.metrics))

	h.RegisterRoutes(router)
	return router
}
