package api

import (
	"errors"
	"net/http"

	"github.com/porticohq/portico/pkg/assistant"
	"github.com/porticohq/portico/pkg/authz"
	"github.com/porticohq/portico/pkg/directory"
	"github.com/porticohq/portico/pkg/httputil"
	"github.com/porticohq/portico/pkg/notes"
)

// writeError maps domain errors onto HTTP statuses. Infrastructure failures
// fall through to 500 and are never swallowed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		httputil.WriteForbidden(w, err.Error())
	case errors.Is(err, authz.ErrNotFound),
		errors.Is(err, directory.ErrNotFound),
		errors.Is(err, notes.ErrNoteNotFound),
		errors.Is(err, assistant.ErrConversationNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, notes.ErrValidation),
		errors.Is(err, assistant.ErrValidation):
		httputil.WriteValidationError(w, err.Error())
	default:
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		httputil.WriteInternalError(w, errors.New("internal error"))
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	httputil.WriteErrorMessage(w, status, message)
}
