package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/uptrace/bunrouter"
	"github.com/wardenlabs/reportrelay/internal/server/middleware/ip"
	"github.com/wardenlabs/reportrelay/internal/setup/config"
	"go.uber.org/zap"
)

const headerRetryAfter = "Retry-After"

// Middleware applies sliding-window rate limiting to routes it wraps.
type Middleware struct {
	limiter *Limiter
	logger  *zap.Logger
}

// New creates a new rate limiting middleware from config.
func New(cfg *config.RateLimit, logger *zap.Logger) *Middleware {
	return &Middleware{
		limiter: NewLimiter(cfg.Requests, time.Duration(cfg.Window)*time.Second),
		logger:  logger,
	}
}

// AsRESTMiddleware returns a bunrouter middleware handler enforcing the
// rate limit per client IP. Rejections carry a Retry-After header equal
// to the window length.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		clientIP := ip.FromContext(req.Context())
		if !m.limiter.Admit(clientIP) {
			m.logger.Warn("Rate limit exceeded", zap.String("ip", clientIP))

			w.Header().Set(headerRetryAfter, fmt.Sprintf("%.0f", m.limiter.RetryAfter().Seconds()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, err := fmt.Fprint(w, `{"status":"error","message":"Rate limit exceeded"}`)
			return err
		}
		return next(w, req)
	}
}
