package api

import (
	"net/http"

	"github.com/porticohq/portico/pkg/assistant"
	"github.com/porticohq/portico/pkg/authn"
	"github.com/porticohq/portico/pkg/httputil"
)

// StartConversationRequest opens a new assistant thread.
type StartConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// SendMessageRequest appends a user message to a conversation.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ConversationResponse bundles a conversation with its messages.
type ConversationResponse struct {
	Conversation *assistant.Conversation `json:"conversation"`
	Messages     []*assistant.Message    `json:"messages"`
}

func (s *Server) startConversation(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	var req StartConversationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	conv, err := s.assistant.StartConversation(r.Context(), actor, req.Title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, conv)
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	conversations, err := s.assistant.ListConversations(r.Context(), actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, conversations)
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	conv, messages, err := s.assistant.GetConversation(r.Context(), actor, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, ConversationResponse{Conversation: conv, Messages: messages})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	reply, err := s.assistant.SendMessage(r.Context(), actor, id, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, reply)
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	actor, _ := authn.ActorFromContext(r.Context())

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.assistant.DeleteConversation(r.Context(), actor, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
