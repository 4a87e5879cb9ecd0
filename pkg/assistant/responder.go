package assistant

import (
	"context"
	"fmt"
	"strings"
)

// Responder produces the assistant's reply to a user message, given the
// conversation so far. Implementations may call out to an inference backend;
// the in-tree EchoResponder exists so the module works without one.
type Responder interface {
	Respond(ctx context.Context, history []*Message, userMessage string) (string, error)
}

// EchoResponder is a canned responder for development and tests.
type EchoResponder struct{}

// Respond replies with a short acknowledgement quoting the user's message.
func (EchoResponder) Respond(ctx context.Context, history []*Message, userMessage string) (string, error) {
	trimmed := strings.TrimSpace(userMessage)
	if trimmed == "" {
		return "I did not catch that. Could you rephrase?", nil
	}
	return fmt.Sprintf("You said: %s", trimmed), nil
}
