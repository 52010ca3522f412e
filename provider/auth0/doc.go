// Package auth0 verifies Auth0-issued JWTs and obtains client credentials
// access tokens.
//
// A Verifier trusts the issuers listed in Config.Domains. For each token it
// resolves the issuer from the unverified payload, loads that issuer's JWKS
// through a KeySetFetcher (cached in a cache.Repository) and validates the
// signature, audience and lifetime:
//
//	cfg, err := auth0.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	verifier, err := auth0.NewVerifier(cfg, redisstore.NewStore(client, "jwtguard_"))
//	claims, err := verifier.Verify(ctx, raw)
//
// Failures are go-errors values; use jwtguard.IsInvalidToken and
// jwtguard.IsKeyRetrievalError to classify them.
package auth0
