// Package middleware provides authentication and rate limiting for the
// chapter admin API.
//
// AuthMiddleware parses "Authorization: Bearer <token>", verifies it with an
// identity.Authenticator and stores the resulting contextkeys.Caller in the
// request context:
//
//	auth := middleware.NewAuthMiddleware(authenticator, false)
//	api.Use(auth.Handler)
//
// RateLimitMiddleware applies an in-process token bucket per caller, or per
// client address for anonymous requests.
package middleware
