package authz

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/authn"
	"github.com/porticohq/portico/pkg/contextkeys"
	"github.com/porticohq/portico/pkg/directory"
)

// DecisionRecorder receives the outcome of every gate evaluation, typically
// backed by a prometheus counter. Implementations must be cheap and must not
// block the request path.
type DecisionRecorder interface {
	RecordAuthzDecision(moduleSlug, outcome string)
}

// Gate is the HTTP enforcement point for the authorization engine. Handlers
// behind a gate can assume the actor has already cleared the module (and
// optionally permission) check.
type Gate struct {
	engine  *Engine
	audit   audit.Logger
	logger  *logrus.Logger
	metrics DecisionRecorder
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithAuditLogger attaches an audit logger; denials are recorded as
// authz.access_denied events.
func WithAuditLogger(auditLogger audit.Logger) GateOption {
	return func(g *Gate) { g.audit = auditLogger }
}

// WithDecisionRecorder attaches a metrics sink for allow/deny counts.
func WithDecisionRecorder(recorder DecisionRecorder) GateOption {
	return func(g *Gate) { g.metrics = recorder }
}

// NewGate creates a policy gate over the engine.
func NewGate(engine *Engine, logger *logrus.Logger, opts ...GateOption) *Gate {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	g := &Gate{
		engine: engine,
		audit:  audit.NoopLogger{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequireModule gates a route on module access. Requests without an
// authenticated actor get 401; denied actors get 403.
func (g *Gate) RequireModule(moduleSlug string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := authn.ActorFromContext(r.Context())
			if !ok {
				g.unauthorizedResponse(w)
				return
			}

			decision, err := g.engine.ExplainModuleAccess(r.Context(), actor.ID, moduleSlug)
			if err != nil {
				g.logger.WithError(err).WithField("module", moduleSlug).Error("authorization check failed")
				g.internalErrorResponse(w)
				return
			}
			if !decision.Allowed {
				g.recordDenial(r, actor, moduleSlug, decision.Reason)
				g.forbiddenResponse(w)
				return
			}

			g.record(moduleSlug, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireModulePermission gates a route on a specific permission token within
// the module. Use this for the write and delete routes of business modules.
func (g *Gate) RequireModulePermission(moduleSlug string, permission directory.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := authn.ActorFromContext(r.Context())
			if !ok {
				g.unauthorizedResponse(w)
				return
			}

			decision, err := g.engine.ExplainPermission(r.Context(), actor.ID, moduleSlug, permission)
			if err != nil {
				g.logger.WithError(err).WithFields(logrus.Fields{
					"module":     moduleSlug,
					"permission": permission,
				}).Error("authorization check failed")
				g.internalErrorResponse(w)
				return
			}
			if !decision.Allowed {
				g.recordDenial(r, actor, moduleSlug, decision.Reason)
				g.forbiddenResponse(w)
				return
			}

			g.record(moduleSlug, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) record(moduleSlug, outcome string) {
	if g.metrics != nil {
		g.metrics.RecordAuthzDecision(moduleSlug, outcome)
	}
}

func (g *Gate) recordDenial(r *http.Request, actor *directory.Actor, moduleSlug, reason string) {
	g.record(moduleSlug, "deny")

	event := audit.NewEvent(audit.EventTypeAccessDenied, audit.EventStatusDenied)
	event.ActorID = &actor.ID
	event.TenantID = actor.TenantID
	event.ModuleSlug = moduleSlug
	event.RequestID = contextkeys.RequestIDFromContext(r.Context())
	event.Method = r.Method
	event.Path = r.URL.Path
	event.IPAddress = r.RemoteAddr
	event.Message = reason
	if err := g.audit.Log(r.Context(), event); err != nil {
		g.logger.WithError(err).Warn("failed to write access denial audit event")
	}
}

func (g *Gate) unauthorizedResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"authentication required"}`))
}

func (g *Gate) forbiddenResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"access denied"}`))
}

func (g *Gate) internalErrorResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"error":"authorization check failed"}`))
}
