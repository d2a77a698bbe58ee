// Package api exposes story generation and the template catalog over HTTP.
package api

import (
	"madlibs-stories/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterConfig struct {
	Handler        *Handler
	Logger         logger.Logger
	ServiceName    string
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(RequestID())
	r.Use(RequestLogger(cfg.Logger))
	r.Use(Metrics())
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(CORS(cfg.AllowedOrigins))
	}

	h := cfg.Handler

	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/generate-story", h.GenerateStory)
		api.GET("/templates", h.ListTemplates)
		api.GET("/templates/:slug", h.GetTemplate)
		api.POST("/templates/:slug/stories", h.GenerateTemplateStory)
		api.GET("/settings", h.GetSettings)
	}

	return r
}
