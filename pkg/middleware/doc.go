// Package middleware provides HTTP middleware for request identity and rate limiting.
//
// # Overview
//
// This package implements the cross-cutting request plumbing: request ID
// assignment and rate limiting (in-memory and Redis-backed). Authentication
// lives in pkg/authn and authorization enforcement in pkg/authz; both are
// middleware too, but they carry domain logic and stay with their domains.
//
// # Middleware Components
//
// RequestID: assigns or propagates X-Request-ID
//
//	router.Use(middleware.RequestID)
//
// RateLimitMiddleware: In-memory rate limiting
//
//	rl := middleware.NewRateLimitMiddleware()
//	router.Use(rl.Handler)
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting
//
//	rl := middleware.NewDistributedRateLimitMiddleware(redisClient)
//	router.Use(rl.Handler)
//
// # Rate Limiting
//
// Default (Anonymous): 100 req/min, 10 burst
// Per-Actor: 1000 req/min, 50 burst
// System Admin: 5000 req/min, 100 burst
//
// # Related Packages
//
//   - pkg/authn: Token authentication middleware
//   - pkg/authz: Policy gate middleware
package middleware
