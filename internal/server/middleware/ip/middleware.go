package ip

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

type ipCtxKey struct{}

// UnknownIP is returned when no valid IP can be determined.
const UnknownIP = "unknown"

// FromContext retrieves the client IP from the context.
func FromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(ipCtxKey{}).(string); ok {
		return ip
	}
	return UnknownIP
}

// Middleware resolves the client IP and stores it in the request
// context for downstream rate limiting and logging.
type Middleware struct {
	trustProxyHeader bool
	logger           *zap.Logger
}

// New creates a new IP middleware. When trustProxyHeader is set, the
// leftmost X-Forwarded-For entry wins over the socket address.
func New(logger *zap.Logger, trustProxyHeader bool) *Middleware {
	return &Middleware{
		trustProxyHeader: trustProxyHeader,
		logger:           logger,
	}
}

// AsRESTMiddleware returns a bunrouter middleware handler storing the
// client IP in the context.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		clientIP := m.getClientIP(req.Request)
		ctx := context.WithValue(req.Context(), ipCtxKey{}, clientIP)
		return next(w, req.WithContext(ctx))
	}
}

// getClientIP extracts the client IP from the request.
func (m *Middleware) getClientIP(req *http.Request) string {
	if m.trustProxyHeader {
		if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
			first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
			m.logger.Debug("Invalid forwarded IP", zap.String("value", first))
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, e.g. in tests
		if net.ParseIP(req.RemoteAddr) != nil {
			return req.RemoteAddr
		}
		return UnknownIP
	}
	if net.ParseIP(host) == nil {
		return UnknownIP
	}

	return host
}
