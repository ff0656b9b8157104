package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/equinox/fleet-inspections/internal/config"
	"github.com/equinox/fleet-inspections/internal/logger"
)

// CacheStore keeps cached responses. Get returns an error on a miss.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache adapts a go-redis client to CacheStore.
type RedisCache struct {
	rdb redis.Cmdable
}

// NewRedisCache returns a CacheStore backed by rdb.
func NewRedisCache(rdb redis.Cmdable) *RedisCache { return &RedisCache{rdb: rdb} }

// Get returns the entry at key; redis.Nil on a miss.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	return r.rdb.Get(ctx, key).Bytes()
}

// Set stores value at key for ttl.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

// captureWriter copies the response body while forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.over {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.over = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// cacheKey scopes entries by method, route, query and the caller's role so
// responses for different roles never mix.
func cacheKey(prefix string, c echo.Context) string {
	r := c.Request()
	role, _ := c.Get(ctxRole).(string)
	sum := sha1.Sum([]byte(r.Method + ":" + c.Path() + ":" + r.URL.RawQuery + ":" + role))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// ResponseCache serves successful responses for the configured methods
// from store for cfg.TTL. A nil store or a disabled config turns it into a
// pass-through. Store failures are logged and never fail the request.
func ResponseCache(cfg config.CacheConfig, store CacheStore, log *logger.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || store == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	methods := make(map[string]bool, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods[strings.ToUpper(strings.TrimSpace(m))] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg.Prefix, c)

			if raw, err := store.Get(ctx, key); err == nil {
				var cr cachedResponse
				if err := json.Unmarshal(raw, &cr); err == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(cr.Status, cr.ContentType, cr.Body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.over {
				return nil
			}

			payload, err := json.Marshal(cachedResponse{
				Status:      cw.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        cw.buf.Bytes(),
			})
			if err != nil {
				return nil
			}
			// the request context may already be cancelled once the client has its answer
			if err := store.Set(context.WithoutCancel(ctx), key, payload, cfg.TTL); err != nil {
				log.Warn("failed to cache response", "key", key, "error", err)
			}
			return nil
		}
	}
}
