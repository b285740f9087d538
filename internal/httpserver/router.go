package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"habitflow/internal/api"
	"habitflow/internal/mq"
	"habitflow/internal/service/auth"
	"habitflow/internal/store"
)

// Status describes which external collaborators this instance runs with, so
// a degraded deployment is visibly labeled instead of silently broken.
type Status struct {
	StoreBackend      string `json:"storeBackend"`
	AuthConfigured    bool   `json:"authConfigured"`
	InsightConfigured bool   `json:"insightConfigured"`
	MQConfigured      bool   `json:"mqConfigured"`
	RedisConfigured   bool   `json:"redisConfigured"`
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *api.AuthHandler,
	habitHandler *api.HabitHandler,
	insightHandler *api.InsightHandler,
	authService *auth.Service,
	habitStore store.HabitStore,
	publisher *mq.Publisher,
	status Status,
) *Router {
	r := gin.Default()
	r.Use(TraceMiddleware(), MetricsMiddleware())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := habitStore.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "store_not_ready", "error": err.Error()})
			return
		}

		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(200, status)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// Protected
	protected := r.Group("/")
	protected.Use(AuthMiddleware(authService))
	{
		protected.POST("/logout", authHandler.Logout)

		protected.GET("/habits", habitHandler.List)
		protected.POST("/habits", habitHandler.Create)
		protected.POST("/habits/:id/track", habitHandler.Track)
		protected.GET("/habits/progress", habitHandler.Progress)
		protected.GET("/habits/watch", habitHandler.Watch)

		protected.POST("/insights", insightHandler.Request)
		protected.GET("/insights/latest", insightHandler.Latest)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
