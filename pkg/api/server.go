package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/porticohq/portico/pkg/assistant"
	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/authn"
	"github.com/porticohq/portico/pkg/authz"
	"github.com/porticohq/portico/pkg/directory"
	"github.com/porticohq/portico/pkg/notes"
)

// Directory is the directory surface the API needs: the full store plus the
// transactional provisioning helpers. *directory.PostgresStore satisfies it.
type Directory interface {
	directory.Store
	ProvisionTenant(ctx context.Context, req directory.ProvisionTenantRequest) (*directory.Tenant, *directory.Actor, error)
	ProvisionMember(ctx context.Context, tenantID int64, username, email string) (*directory.Actor, error)
}

// Server is the Portico HTTP API.
type Server struct {
	router    *mux.Router
	logger    *logrus.Logger
	directory Directory
	engine    *authz.Engine
	manager   *authz.Manager
	gate      *authz.Gate
	authMW    *authn.Middleware
	resolver  *authn.Resolver
	audit     audit.Logger
	notes     *notes.Service
	assistant *assistant.Service

	// Optional outer middleware, applied outside authentication.
	rateLimiter func(http.Handler) http.Handler
	tracing     bool
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithRateLimiter installs a rate-limiting middleware around the API routes.
func WithRateLimiter(limiter func(http.Handler) http.Handler) ServerOption {
	return func(s *Server) { s.rateLimiter = limiter }
}

// WithAuditLogger attaches an audit logger for admin and tenant mutations.
func WithAuditLogger(auditLogger audit.Logger) ServerOption {
	return func(s *Server) { s.audit = auditLogger }
}

// WithTracing wraps the router in otelhttp instrumentation.
func WithTracing() ServerOption {
	return func(s *Server) { s.tracing = true }
}

// NewServer wires the API server. All collaborators are required except the
// options.
func NewServer(
	dir Directory,
	engine *authz.Engine,
	manager *authz.Manager,
	gate *authz.Gate,
	resolver *authn.Resolver,
	notesService *notes.Service,
	assistantService *assistant.Service,
	logger *logrus.Logger,
	opts ...ServerOption,
) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger,
		directory: dir,
		engine:    engine,
		manager:   manager,
		gate:      gate,
		resolver:  resolver,
		audit:     audit.NoopLogger{},
		notes:     notesService,
		assistant: assistantService,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.authMW = authn.NewMiddleware(resolver, logger, false)
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.middlewareChain()...)

	// Navigation: what can the caller see
	api.HandleFunc("/modules", s.listAvailableModules).Methods("GET")
	api.HandleFunc("/me", s.whoami).Methods("GET")

	// Admin routes: platform configuration, system admin only
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireRole(directory.RoleSystemAdmin))
	admin.HandleFunc("/tenants", s.provisionTenant).Methods("POST")
	admin.HandleFunc("/tenants", s.listTenants).Methods("GET")
	admin.HandleFunc("/tenants/{id}", s.getTenant).Methods("GET")
	admin.HandleFunc("/tenants/{id}/active", s.setTenantActive).Methods("PUT")
	admin.HandleFunc("/modules", s.listCatalog).Methods("GET")
	admin.HandleFunc("/modules/{slug}/active", s.setModuleActive).Methods("PUT")
	admin.HandleFunc("/grants", s.grantAccess).Methods("POST")
	admin.HandleFunc("/grants", s.revokeAccess).Methods("DELETE")
	admin.HandleFunc("/actors/{id}/tokens", s.createToken).Methods("POST")
	admin.HandleFunc("/actors/{id}/active", s.setActorActive).Methods("PUT")

	// Tenant routes: member and grant management, tenant owner only
	tenant := api.PathPrefix("/tenant").Subrouter()
	tenant.Use(s.requireRole(directory.RoleTenantOwner))
	tenant.HandleFunc("/members", s.provisionMember).Methods("POST")
	tenant.HandleFunc("/members", s.listMembers).Methods("GET")
	tenant.HandleFunc("/members/{id}/active", s.setMemberActive).Methods("PUT")
	tenant.HandleFunc("/grants", s.grantAccess).Methods("POST")
	tenant.HandleFunc("/grants", s.revokeAccess).Methods("DELETE")

	// Business modules, mounted behind the policy gate
	s.mountNotesRoutes(api)
	s.mountAssistantRoutes(api)
}

func (s *Server) middlewareChain() []mux.MiddlewareFunc {
	chain := []mux.MiddlewareFunc{s.authMW.Handler}
	if s.rateLimiter != nil {
		// Rate limiting keys on the resolved actor, so it sits inside authn.
		chain = append(chain, mux.MiddlewareFunc(s.rateLimiter))
	}
	return chain
}

func (s *Server) mountNotesRoutes(api *mux.Router) {
	r := api.PathPrefix("/notes").Subrouter()

	read := s.gate.RequireModulePermission(notes.ModuleSlug, directory.PermissionRead)
	write := s.gate.RequireModulePermission(notes.ModuleSlug, directory.PermissionWrite)
	del := s.gate.RequireModulePermission(notes.ModuleSlug, directory.PermissionDelete)

	r.Handle("", write(http.HandlerFunc(s.createNote))).Methods("POST")
	r.Handle("", read(http.HandlerFunc(s.listNotes))).Methods("GET")
	r.Handle("/{id}", read(http.HandlerFunc(s.getNote))).Methods("GET")
	r.Handle("/{id}", write(http.HandlerFunc(s.updateNote))).Methods("PUT")
	r.Handle("/{id}", del(http.HandlerFunc(s.deleteNote))).Methods("DELETE")
}

func (s *Server) mountAssistantRoutes(api *mux.Router) {
	r := api.PathPrefix("/assistant/conversations").Subrouter()

	read := s.gate.RequireModulePermission(assistant.ModuleSlug, directory.PermissionRead)
	write := s.gate.RequireModulePermission(assistant.ModuleSlug, directory.PermissionWrite)
	del := s.gate.RequireModulePermission(assistant.ModuleSlug, directory.PermissionDelete)

	r.Handle("", write(http.HandlerFunc(s.startConversation))).Methods("POST")
	r.Handle("", read(http.HandlerFunc(s.listConversations))).Methods("GET")
	r.Handle("/{id}", read(http.HandlerFunc(s.getConversation))).Methods("GET")
	r.Handle("/{id}/messages", write(http.HandlerFunc(s.sendMessage))).Methods("POST")
	r.Handle("/{id}", del(http.HandlerFunc(s.deleteConversation))).Methods("DELETE")
}

// requireRole rejects callers whose role differs from the required one. The
// policy gate handles module-level checks; this is the coarse route-group
// filter for the configuration surfaces.
func (s *Server) requireRole(role directory.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := authn.ActorFromContext(r.Context())
			if !ok {
				writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if actor.Role != role {
				writeErrorMessage(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Handler returns the root handler, instrumented when tracing is enabled.
func (s *Server) Handler() http.Handler {
	if s.tracing {
		return otelhttp.NewHandler(s.router, "portico.api")
	}
	return s.router
}

// Router exposes the underlying mux for tests and additional mounting.
func (s *Server) Router() *mux.Router {
	return s.router
}
