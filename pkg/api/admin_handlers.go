package api

import (
	"net/http"
	"time"

	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/authn"
	"github.com/porticohq/portico/pkg/directory"
	"github.com/porticohq/portico/pkg/httputil"
)

// ProvisionTenantRequest is the admin request to create a tenant with its
// owner.
type ProvisionTenantRequest struct {
	Name          string `json:"name"`
	Slug          string `json:"slug,omitempty"`
	OwnerUsername string `json:"owner_username"`
	OwnerEmail    string `json:"owner_email,omitempty"`
}

// ProvisionTenantResponse returns the created pair.
type ProvisionTenantResponse struct {
	Tenant *directory.Tenant `json:"tenant"`
	Owner  *directory.Actor  `json:"owner"`
}

func (s *Server) provisionTenant(w http.ResponseWriter, r *http.Request) {
	var req ProvisionTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" || req.OwnerUsername == "" {
		httputil.WriteBadRequest(w, "name and owner_username are required")
		return
	}

	tenant, owner, err := s.directory.ProvisionTenant(r.Context(), directory.ProvisionTenantRequest{
		Name:          req.Name,
		Slug:          req.Slug,
		OwnerUsername: req.OwnerUsername,
		OwnerEmail:    req.OwnerEmail,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditAdminEvent(r, audit.EventTypeTenantProvision, &owner.ID, &tenant.ID, "")
	httputil.WriteCreated(w, ProvisionTenantResponse{Tenant: tenant, Owner: owner})
}

func (s *Server) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.directory.ListTenants(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, tenants)
}

func (s *Server) getTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	tenant, err := s.directory.GetTenant(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, tenant)
}

// ActiveRequest toggles an active flag.
type ActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) setTenantActive(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req ActiveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.directory.SetTenantActive(r.Context(), id, req.Active); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) listCatalog(w http.ResponseWriter, r *http.Request) {
	modules, err := s.directory.ListModules(r.Context(), false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, modules)
}

// setModuleActive is the platform kill switch: deactivating a module denies
// every actor, system admins included.
func (s *Server) setModuleActive(w http.ResponseWriter, r *http.Request) {
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}
	var req ActiveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	module, err := s.directory.GetModuleBySlug(r.Context(), slug)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.directory.SetModuleActive(r.Context(), module.ID, req.Active); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditAdminEvent(r, audit.EventTypeModuleToggle, nil, nil, slug)
	httputil.WriteNoContent(w)
}

func (s *Server) setActorActive(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req ActiveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.directory.SetActorActive(r.Context(), id, req.Active); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditAdminEvent(r, audit.EventTypeActorDeactivate, &id, nil, "")
	httputil.WriteNoContent(w)
}

// CreateTokenRequest mints an API token for an actor.
type CreateTokenRequest struct {
	Name      string `json:"name,omitempty"`
	TTLHours  int    `json:"ttl_hours,omitempty"`
}

// CreateTokenResponse carries the plaintext token. It is shown exactly once;
// only the hash is stored.
type CreateTokenResponse struct {
	Token     string     `json:"token"`
	TokenID   int64      `json:"token_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	actorID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req CreateTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	// The target must exist; minting a token for a dangling ID is an error.
	if _, err := s.directory.GetActor(r.Context(), actorID); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, tokenHash, err := authn.GenerateToken()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	apiToken := &directory.APIToken{ActorID: actorID, TokenHash: tokenHash, Name: req.Name}
	if req.TTLHours > 0 {
		expires := time.Now().Add(time.Duration(req.TTLHours) * time.Hour).UTC()
		apiToken.ExpiresAt = &expires
	}
	if err := s.directory.CreateAPIToken(r.Context(), apiToken); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditAdminEvent(r, audit.EventTypeTokenCreate, &actorID, nil, "")
	httputil.WriteCreated(w, CreateTokenResponse{
		Token:     token,
		TokenID:   apiToken.ID,
		ExpiresAt: apiToken.ExpiresAt,
	})
}

func (s *Server) auditAdminEvent(r *http.Request, eventType audit.EventType, targetID, tenantID *int64, moduleSlug string) {
	event := audit.NewEvent(eventType, audit.EventStatusSuccess)
	if actor, ok := authn.ActorFromContext(r.Context()); ok {
		event.ActorID = &actor.ID
	}
	event.TargetActorID = targetID
	event.TenantID = tenantID
	event.ModuleSlug = moduleSlug
	event.Method = r.Method
	event.Path = r.URL.Path
	if err := s.audit.Log(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("failed to write admin audit event")
	}
}
