package authn

import (
	"context"

	"github.com/porticohq/portico/pkg/contextkeys"
	"github.com/porticohq/portico/pkg/directory"
)

// ActorFromContext retrieves the authenticated actor placed by the middleware.
func ActorFromContext(ctx context.Context) (*directory.Actor, bool) {
	actor, ok := ctx.Value(contextkeys.ActorKey).(*directory.Actor)
	return actor, ok
}

// WithActor stores the actor in the context. Exposed for tests and for
// non-HTTP entry points (the admin CLI) that bypass the middleware.
func WithActor(ctx context.Context, actor *directory.Actor) context.Context {
	return contextkeys.WithActor(ctx, actor)
}
