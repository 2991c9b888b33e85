// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/permcheck/controller"
	"github.com/dev-mohitbeniwal/permcheck/metrics"
	"github.com/dev-mohitbeniwal/permcheck/middleware"
)

type Options struct {
	// AuthSecret enables bearer token auth on the API when non-empty.
	AuthSecret     []byte
	RequiredGroups []string
	// RateLimitRequests enables the Redis rate limiter when positive.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

func SetupRouter(controllers *controller.Controllers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(metrics.Middleware())

	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api/v1")
	if len(opts.AuthSecret) > 0 {
		api.Use(middleware.GroupAuthMiddleware(opts.AuthSecret, opts.RequiredGroups))
	}
	if opts.RateLimitRequests > 0 {
		api.Use(middleware.RateLimiter(opts.RateLimitRequests, opts.RateLimitWindow))
	}

	controllers.RolePermission.RegisterRoutes(api)

	return router
}
