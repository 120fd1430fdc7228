package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/smartdoorlock/core/internal/config"
	"github.com/smartdoorlock/core/internal/database"
	"github.com/smartdoorlock/core/internal/middleware"
	"github.com/smartdoorlock/core/internal/modules/device"
	"github.com/smartdoorlock/core/internal/modules/gateway/lock"
	"github.com/smartdoorlock/core/internal/pkg/metrics"
	"github.com/smartdoorlock/core/internal/pkg/push"
	pkgredis "github.com/smartdoorlock/core/internal/pkg/redis"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	store   device.Store
	rc      *pkgredis.Client
	hub     *lock.Hub
	push    *push.Dispatcher
	logger  *zap.Logger
	started time.Time
}

// New initializes the application: config → store → Redis → push → routes.
func New(ctx context.Context, logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	store, err := database.Connect(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return build(ctx, logger, cfg, store)
}

// build wires everything on top of an open store. The store is closed if
// any later step fails.
func build(ctx context.Context, logger *zap.Logger, cfg *config.AppConfig, store device.Store) (*App, error) {
	metrics.MustRegister()

	var rc *pkgredis.Client
	if cfg.Redis.Enable {
		var err error
		rc, err = pkgredis.Connect(cfg.Redis.URL)
		if err != nil {
			_ = store.Close(context.Background())
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	sender, err := newPushSender(ctx, cfg.Push)
	if err != nil {
		_ = store.Close(context.Background())
		if rc != nil {
			_ = rc.Close()
		}
		return nil, fmt.Errorf("push: %w", err)
	}
	dispatcher := push.NewDispatcher(sender, logger.Named("push"))

	hubOpts := lock.Options{
		Store:             store,
		Notifier:          dispatcher,
		Logger:            logger,
		ReconcileInterval: cfg.Gateway.ReconcileInterval,
		PingInterval:      cfg.Gateway.PingInterval,
	}
	if rc != nil {
		hubOpts.Claimer = lock.NewRedisClaimer(rc)
	}
	hub := lock.NewHub(hubOpts)

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())
	router.Use(cors.New(corsConfig(cfg)))
	if cfg.RateLimitActive() {
		router.Use(middleware.RateLimit(rc.Raw(), cfg.RateLimit.PerSecond, logger))
	}

	app := &App{
		cfg:     cfg,
		router:  router,
		store:   store,
		rc:      rc,
		hub:     hub,
		push:    dispatcher,
		logger:  logger,
		started: time.Now(),
	}
	app.registerRoutes()
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown closes device sessions, which marks their records offline, then
// drains pending pushes and releases the backends.
func (a *App) Shutdown() {
	a.hub.Close()
	a.push.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		c.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		c.AllowOriginFunc = func(origin string) bool { return true }
	}
	return c
}
