// Package jwtguard verifies Auth0-issued bearer tokens and exposes their
// claims to HTTP handlers.
//
// Pipeline:
//   - provider/auth0.Verifier resolves the token issuer against a list of
//     trusted issuers, fetches the issuer JWKS through a cache.Pool, checks
//     signature, algorithm, audience and expiry, and returns Claims.
//   - Projector copies selected claims, optionally under a namespace URI,
//     into a field map merged into the request context.
//   - middleware/guard chains header extraction, verification, scope checks
//     and projection, and maps every failure to a status and message.
//
// Caching:
//   - cache.Pool is a PSR-6 style item pool over a Repository (memory, Redis or
//     SQL). Writes can be deferred and committed at the end of a request;
//     pool I/O errors turn into false results and never fail a request.
//
// Errors are go-errors values with text codes. IsInvalidToken groups every
// token validation failure into the single kind the HTTP boundary needs.
package jwtguard
