package health

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartdoorlock/core/internal/modules/device"
	"github.com/smartdoorlock/core/internal/modules/gateway/lock"
	pkgredis "github.com/smartdoorlock/core/internal/pkg/redis"
)

const (
	checkTimeout = 2 * time.Second
	probeToken   = "__health__"
)

// Check reports whether one dependency is usable.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// StoreCheck probes the device store with a lookup that is expected to miss.
func StoreCheck(store device.Store) Check {
	return Check{Name: "store", Run: func(ctx context.Context) error {
		_, err := store.Get(ctx, probeToken)
		if err == nil || errors.Is(err, device.ErrNotFound) {
			return nil
		}
		return err
	}}
}

// RedisCheck pings Redis.
func RedisCheck(rc *pkgredis.Client) Check {
	return Check{Name: "redis", Run: func(ctx context.Context) error {
		return rc.Ping(ctx)
	}}
}

type report struct {
	Status  string          `json:"status"`
	Checks  map[string]bool `json:"checks"`
	Uptime  string          `json:"uptime"`
	Gateway lock.Stats      `json:"gateway"`
}

// RegisterRoutes mounts GET /health. Any failing check turns the status
// degraded with a 503.
func RegisterRoutes(rg *gin.RouterGroup, hub *lock.Hub, started time.Time, checks ...Check) {
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		defer cancel()

		rep := report{
			Status: "ok",
			Checks: make(map[string]bool, len(checks)),
			Uptime: humanizeDuration(time.Since(started)),
		}
		if hub != nil {
			rep.Gateway = hub.Stats()
		}
		code := http.StatusOK
		for _, check := range checks {
			ok := check.Run(ctx) == nil
			rep.Checks[check.Name] = ok
			if !ok {
				rep.Status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, rep)
	})
}

func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Truncate(time.Second).String()
	}
	if d < time.Hour {
		return d.Truncate(time.Minute).String()
	}
	if d < 24*time.Hour {
		return d.Truncate(time.Hour).String()
	}
	return d.Truncate(24 * time.Hour).String()
}
