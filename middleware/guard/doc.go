// Package guard is the HTTP authentication and scope authorization middleware.
//
// The gates run in order and stop at the first failure:
//
//	no Authorization header   401 Authorization Header not found
//	no bearer token           401 No token provided
//	token fails verification  401 Invalid token
//	verifier fault            500 <error message>
//	token has no scope claim  403 No scopes defined in JWT
//	scope not granted         403 No access to scope
//
// Guard itself is transport agnostic and returns a Decision; RequireScope and
// ProjectFields adapt it to net/http (and chi), FiberRequireScope and
// FiberProjectFields to fiber, RouterRequireScope and RouterProjectFields to
// go-router.
//
// Claims verified by one gate are reused by later gates of the same request,
// so stacking ProjectFields and RequireScope verifies the token once.
//
//	g := guard.New(guard.Config{Verifier: verifier})
//	r.With(g.RequireScope("inventory:get")).Get("/inventory", list)
package guard
