package api

import (
	"net/http"

	"github.com/porticohq/portico/pkg/authn"
	"github.com/porticohq/portico/pkg/httputil"
)

// NoteRequest is the create/update payload for a note.
type NoteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	var req NoteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	note, err := s.notes.CreateNote(r.Context(), actor, req.Title, req.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, note)
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	result, err := s.notes.ListNotes(r.Context(), actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	note, err := s.notes.GetNote(r.Context(), actor, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, note)
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req NoteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	note, err := s.notes.UpdateNote(r.Context(), actor, id, req.Title, req.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, note)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.notes.DeleteNote(r.Context(), actor, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
