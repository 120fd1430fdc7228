package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smartdoorlock/core/internal/middleware"
	"github.com/smartdoorlock/core/internal/modules/device"
	"github.com/smartdoorlock/core/internal/modules/system/core/health"
	"github.com/smartdoorlock/core/internal/pkg/response"
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Devices connect to the bare host; /ws is kept for clients that expect a path.
	r.GET("/", a.hub.Handler())
	r.GET("/ws", a.hub.Handler())

	checks := []health.Check{health.StoreCheck(a.store)}
	if a.rc != nil {
		checks = append(checks, health.RedisCheck(a.rc))
	}
	health.RegisterRoutes(r.Group(""), a.hub, a.started, checks...)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	if a.rc != nil {
		api.Use(middleware.Idempotence(a.rc.Raw(), a.logger))
	}
	svc := device.NewService(a.store, a.cfg.Gateway.TokenLength)
	device.NewHandler(svc).RegisterRoutes(api)
}
