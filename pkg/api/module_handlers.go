package api

import (
	"net/http"

	"github.com/porticohq/portico/pkg/authn"
	"github.com/porticohq/portico/pkg/directory"
	"github.com/porticohq/portico/pkg/httputil"
)

// WhoamiResponse describes the authenticated caller.
type WhoamiResponse struct {
	Actor   *directory.Actor    `json:"actor"`
	Modules []*directory.Module `json:"modules"`
}

// whoami returns the caller and the modules they can open, for UI navigation.
func (s *Server) whoami(w http.ResponseWriter, r *http.Request) {
	actor, ok := authn.ActorFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	modules, err := s.engine.ListAvailableModules(r.Context(), actor.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if modules == nil {
		modules = []*directory.Module{}
	}
	httputil.WriteSuccess(w, WhoamiResponse{Actor: actor, Modules: modules})
}

// listAvailableModules returns just the module list.
func (s *Server) listAvailableModules(w http.ResponseWriter, r *http.Request) {
	actor, ok := authn.ActorFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	modules, err := s.engine.ListAvailableModules(r.Context(), actor.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if modules == nil {
		modules = []*directory.Module{}
	}
	httputil.WriteSuccess(w, modules)
}
