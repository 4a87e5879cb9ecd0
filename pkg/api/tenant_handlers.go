package api

import (
	"net/http"

	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/authn"
	"github.com/porticohq/portico/pkg/directory"
	"github.com/porticohq/portico/pkg/httputil"
)

// ProvisionMemberRequest adds an employee under the caller's tenant.
type ProvisionMemberRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func (s *Server) provisionMember(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	var req ProvisionMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Username == "" {
		httputil.WriteBadRequest(w, "username is required")
		return
	}

	member, err := s.directory.ProvisionMember(r.Context(), *actor.TenantID, req.Username, req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	event := audit.NewEvent(audit.EventTypeMemberProvision, audit.EventStatusSuccess)
	event.ActorID = &actor.ID
	event.TenantID = actor.TenantID
	event.TargetActorID = &member.ID
	if err := s.audit.Log(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("failed to write member provision audit event")
	}

	httputil.WriteCreated(w, member)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	members, err := s.directory.ListActorsByTenant(r.Context(), *actor.TenantID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

// setMemberActive deactivates or reactivates a member of the caller's own
// tenant. Owners cannot touch actors outside their tenant.
func (s *Server) setMemberActive(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req ActiveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	target, err := s.directory.GetActor(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if target.TenantID == nil || *target.TenantID != *actor.TenantID {
		httputil.WriteForbidden(w, "target belongs to a different tenant")
		return
	}

	if err := s.directory.SetActorActive(r.Context(), id, req.Active); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// GrantRequest asks the grant manager for a grant or revoke. The tier is
// decided by the caller's role, not by the request shape.
type GrantRequest struct {
	TargetActorID int64                  `json:"target_actor_id"`
	ModuleSlug    string                 `json:"module_slug"`
	Permissions   []directory.Permission `json:"permissions,omitempty"`
}

func (s *Server) grantAccess(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	var req GrantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.ModuleSlug == "" {
		httputil.WriteBadRequest(w, "module_slug is required")
		return
	}

	err := s.manager.GrantModuleAccess(r.Context(), actor.ID, req.TargetActorID, req.ModuleSlug, req.Permissions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) revokeAccess(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	var req GrantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.ModuleSlug == "" {
		httputil.WriteBadRequest(w, "module_slug is required")
		return
	}

	err := s.manager.RevokeModuleAccess(r.Context(), actor.ID, req.TargetActorID, req.ModuleSlug)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
