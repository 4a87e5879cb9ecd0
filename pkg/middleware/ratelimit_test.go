package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticohq/portico/pkg/authn"
	"github.com/porticohq/portico/pkg/directory"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("actor:1"), "request %d should be allowed", i)
	}
	assert.False(t, rl.Allow("actor:1"))

	// Other keys are independent
	assert.True(t, rl.Allow("actor:2"))
}

func TestRateLimiterRemaining(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	assert.Equal(t, 5, rl.Remaining("actor:1"))
	rl.Allow("actor:1")
	assert.Equal(t, 4, rl.Remaining("actor:1"))
}

func TestRateLimitMiddlewareAnonymous(t *testing.T) {
	m := &RateLimitMiddleware{
		actorLimiter:     NewRateLimiter(ActorRateLimitConfig()),
		adminLimiter:     NewRateLimiter(AdminRateLimitConfig()),
		anonymousLimiter: NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute, BurstSize: 0}),
	}

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/modules", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitMiddlewareActorKeying(t *testing.T) {
	m := &RateLimitMiddleware{
		actorLimiter:     NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute, BurstSize: 0}),
		adminLimiter:     NewRateLimiter(AdminRateLimitConfig()),
		anonymousLimiter: NewRateLimiter(DefaultRateLimitConfig()),
	}

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	makeReq := func(actorID int64) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/modules", nil)
		actor := &directory.Actor{ID: actorID, Role: directory.RoleTenantMember, IsActive: true}
		return req.WithContext(authn.WithActor(req.Context(), actor))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, makeReq(1))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, makeReq(1))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different actor has their own bucket
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, makeReq(2))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDistributedRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "actor:1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = rl.Allow(ctx, "actor:1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = rl.Allow(ctx, "actor:1")
	require.NoError(t, err)
	assert.False(t, allowed)

	remaining, err := rl.Remaining(ctx, "actor:1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	// Window expiry resets the counter
	mr.FastForward(2 * time.Minute)
	allowed, err = rl.Allow(ctx, "actor:1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestDistributedRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	rl := NewDistributedRateLimiter(client, nil, "test")

	allowed, err := rl.Allow(context.Background(), "actor:1")
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestDistributedRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	m := NewDistributedRateLimitMiddleware(client)
	m.anonymousLimiter = NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "ratelimit:anon")

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/modules", nil)
	req.RemoteAddr = "10.0.0.9:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
