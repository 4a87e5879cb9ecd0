package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/porticohq/portico/pkg/directory"
)

// Resolution errors. All four fold to a 401 at the transport layer; the split
// exists for logging and tests.
var (
	ErrTokenNotFound = errors.New("authn: token not found")
	ErrTokenRevoked  = errors.New("authn: token revoked")
	ErrTokenExpired  = errors.New("authn: token expired")
	ErrActorInactive = errors.New("authn: actor inactive")
)

// cachedResolution is what the LRU holds per token hash. The actor snapshot is
// only trusted for cacheTTL; after that the resolver re-reads the directory so
// revocations and deactivations take effect promptly.
type cachedResolution struct {
	actor     *directory.Actor
	tokenID   int64
	expiresAt *time.Time
	cachedAt  time.Time
}

// Resolver turns bearer tokens into directory actors. It caches positive
// resolutions in a bounded LRU keyed by token hash; negative results are never
// cached.
type Resolver struct {
	store    directory.Store
	cache    *lru.Cache[string, cachedResolution]
	cacheTTL time.Duration
	now      func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCacheTTL overrides the default 30s positive-cache TTL.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) { r.cacheTTL = ttl }
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a token resolver backed by the directory store.
func NewResolver(store directory.Store, cacheSize int, opts ...ResolverOption) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, cachedResolution](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache: %w", err)
	}
	r := &Resolver{
		store:    store,
		cache:    cache,
		cacheTTL: 30 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve maps a raw bearer token to its actor. Unknown, revoked, and expired
// tokens, and tokens whose actor has been deactivated, all fail resolution.
func (r *Resolver) Resolve(ctx context.Context, token string) (*directory.Actor, error) {
	if err := ValidateTokenFormat(token); err != nil {
		return nil, ErrTokenNotFound
	}
	hash := HashToken(token)
	now := r.now()

	if cached, ok := r.cache.Get(hash); ok {
		if now.Sub(cached.cachedAt) < r.cacheTTL {
			if cached.expiresAt != nil && now.After(*cached.expiresAt) {
				r.cache.Remove(hash)
				return nil, ErrTokenExpired
			}
			return cached.actor, nil
		}
		r.cache.Remove(hash)
	}

	apiToken, err := r.store.GetAPITokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if apiToken.Revoked() {
		return nil, ErrTokenRevoked
	}
	if apiToken.Expired(now) {
		return nil, ErrTokenExpired
	}

	actor, err := r.store.GetActor(ctx, apiToken.ActorID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to load token actor: %w", err)
	}
	if !actor.IsActive {
		return nil, ErrActorInactive
	}

	r.cache.Add(hash, cachedResolution{
		actor:     actor,
		tokenID:   apiToken.ID,
		expiresAt: apiToken.ExpiresAt,
		cachedAt:  now,
	})
	return actor, nil
}

// Invalidate drops any cached resolution for the token hash. Called after
// token revocation so the old credential stops working within one request.
func (r *Resolver) Invalidate(tokenHash string) {
	r.cache.Remove(tokenHash)
}
