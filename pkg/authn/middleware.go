package authn

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Middleware resolves bearer tokens and places the actor on the request
// context. It authenticates only; authorization is the policy gate's job.
type Middleware struct {
	resolver *Resolver
	logger   *logrus.Logger
	optional bool // If true, allow unauthenticated requests through
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(resolver *Resolver, logger *logrus.Logger, optional bool) *Middleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Middleware{
		resolver: resolver,
		logger:   logger,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with token authentication.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			m.unauthorizedResponse(w, "missing authorization header")
			return
		}

		// Format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		actor, err := m.resolver.Resolve(r.Context(), parts[1])
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"path":   r.URL.Path,
				"reason": err.Error(),
			}).Debug("token resolution failed")
			m.unauthorizedResponse(w, "invalid or expired token")
			return
		}

		ctx := WithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
