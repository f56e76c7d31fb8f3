package session

import (
	"fmt"
	"net/http"

	"github.com/uptrace/bunrouter"
	"github.com/wardenlabs/reportrelay/internal/auth"
	"go.uber.org/zap"
)

// CookieName is the cookie carrying the admin session token.
const CookieName = "admin_session"

// Middleware gates routes behind a valid admin session cookie. The
// session store is consulted on every request, so logout and expiry
// take effect immediately.
type Middleware struct {
	authority *auth.Authority
	logger    *zap.Logger
}

// New creates a session-gating middleware.
func New(authority *auth.Authority, logger *zap.Logger) *Middleware {
	return &Middleware{
		authority: authority,
		logger:    logger,
	}
}

// AsRESTMiddleware returns a bunrouter middleware handler rejecting
// requests without a live session.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		token := ""
		if cookie, err := req.Cookie(CookieName); err == nil {
			token = cookie.Value
		}

		valid, err := m.authority.Validate(req.Context(), token)
		if err != nil {
			m.logger.Error("Failed to validate session", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, werr := fmt.Fprint(w, `{"status":"error","message":"Internal server error"}`)
			return werr
		}
		if !valid {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, werr := fmt.Fprint(w, `{"status":"error","message":"Unauthorized"}`)
			return werr
		}

		return next(w, req)
	}
}
