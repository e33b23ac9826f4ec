// Package api assembles the HTTP surface of a powchain node.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/powchain/internal/api/handler"
	"github.com/jmerrifield20/powchain/internal/config"
	"github.com/jmerrifield20/powchain/internal/feed"
	"github.com/jmerrifield20/powchain/internal/node"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine. ctx bounds background work started by
// middleware. hub may be nil, in which case /chain/ws is not mounted.
func NewRouter(ctx context.Context, cfg config.ServerConfig, n *node.Node, hub *feed.Hub, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", handler.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", handler.RequestIDHeader},
			AllowCredentials: !containsWildcard(cfg.CORSOrigins),
			MaxAge:           12 * time.Hour,
		}))
	}

	router.Use(handler.SecurityHeaders())
	router.Use(handler.BodyLimit(1 << 20))
	if cfg.RateLimitRPS > 0 || cfg.SubmitPerMinute > 0 {
		router.Use(handler.RateLimiter(ctx, handler.RateLimits{
			ReadRPS:         cfg.RateLimitRPS,
			ReadBurst:       cfg.RateLimitRPS * 2,
			SubmitPerMinute: cfg.SubmitPerMinute,
			SubmitBurst:     cfg.SubmitBurst,
		}))
	}
	router.Use(handler.RequestLogger(logger))
	router.Use(handler.PrometheusMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	handler.NewChainHandler(n, logger).Register(&router.RouterGroup)
	if hub != nil {
		router.GET("/chain/ws", gin.WrapH(hub))
	}

	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
