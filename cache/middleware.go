package cache

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"privateblog/metrics"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// PageCache serves repeated GETs of a route from a Store for ttl, counted
// from the miss that filled the entry.
type PageCache struct {
	name    string
	store   Store
	ttl     time.Duration
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPageCache(name string, store Store, ttl time.Duration, logger *zap.SugaredLogger, m *metrics.Metrics) *PageCache {
	return &PageCache{name: name, store: store, ttl: ttl, logger: logger, metrics: m, now: time.Now}
}

func (p *PageCache) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := Key(c.Request.URL.RequestURI())

		entry, err := p.store.Get(ctx, key)
		if err == nil {
			p.metrics.RecordCacheHit(ctx, p.name)
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, entry.ContentType, entry.Body)
			c.Abort()
			return
		}
		if !errors.Is(err, ErrMiss) {
			p.logger.Warnw("Page cache read failed", "key", key, "error", err)
		}

		missedAt := p.now()
		p.metrics.RecordCacheMiss(ctx, p.name)
		c.Header("X-Cache", "MISS")

		writer := &responseWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil)}
		c.Writer = writer

		c.Next()

		if writer.Status() != http.StatusOK {
			return
		}
		// the entry lives for ttl from the miss, not from the end of the handler
		remaining := p.ttl - p.now().Sub(missedAt)
		if remaining <= 0 {
			return
		}
		fresh := &Entry{ContentType: writer.Header().Get("Content-Type"), Body: writer.body.Bytes()}
		if err := p.store.Set(ctx, key, fresh, remaining); err != nil {
			p.logger.Warnw("Page cache write failed", "key", key, "error", err)
		}
	}
}

// Clear expires every cached page at once.
func (p *PageCache) Clear(ctx context.Context) error {
	return p.store.Clear(ctx)
}
