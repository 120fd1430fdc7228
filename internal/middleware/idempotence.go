package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/smartdoorlock/core/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader  = "Idempotency-Key"
	idempotenceTTL     = 60 * time.Second
	idempotencePending = "\x00pending"
	idempotenceSettle  = 2 * time.Second
)

// Idempotence replays the first successful response to a non-GET request
// carrying the same Idempotency-Key for idempotenceTTL. A repeat that
// arrives while the first is still running gets 409. Requests without the
// header, and all requests while Redis is unreachable, pass through.
func Idempotence(rdb *redis.Client, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if c.Request.Method == http.MethodGet || raw == "" {
			c.Next()
			return
		}

		key := idempotenceKey(c, raw)
		ctx := c.Request.Context()

		fresh, err := rdb.SetNX(ctx, key, idempotencePending, idempotenceTTL).Result()
		if err != nil {
			if log != nil {
				log.Warn("idempotence store unavailable", zap.Error(err))
			}
			c.Next()
			return
		}
		if !fresh {
			val, err := rdb.Get(ctx, key).Result()
			switch {
			case err != nil:
				c.Next()
			case val == idempotencePending:
				response.Conflict(c)
			default:
				c.Header("Idempotent-Replayed", "true")
				c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(val))
				c.Abort()
			}
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		// The client may be gone by now; settle the key regardless.
		settleCtx, cancel := context.WithTimeout(context.Background(), idempotenceSettle)
		defer cancel()
		status := rec.Status()
		if status >= 200 && status < 300 {
			err = rdb.Set(settleCtx, key, rec.body.String(), redis.KeepTTL).Err()
		} else {
			err = rdb.Del(settleCtx, key).Err()
		}
		if err != nil && log != nil {
			log.Warn("idempotence key not settled", zap.Int("status", status), zap.Error(err))
		}
	}
}

// idempotenceKey scopes the client key to the route and caller so two
// devices cannot collide on the same key.
func idempotenceKey(c *gin.Context, raw string) string {
	scope := c.Request.Method + "|" + c.Request.URL.Path + "|" + raw + "|" + BearerToken(c) + "|" + c.ClientIP()
	h := sha256.Sum256([]byte(scope))
	return "doorlock:idempotence:" + hex.EncodeToString(h[:])
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
