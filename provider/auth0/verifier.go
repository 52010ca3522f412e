package auth0

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-jwtguard"
	"github.com/goliatone/go-jwtguard/cache"
)

// KeySetSource resolves the key set of a trusted issuer.
type KeySetSource interface {
	Fetch(ctx context.Context, issuer string) (*keyfunc.JWKS, error)
	Refresh(ctx context.Context, issuer string) (*keyfunc.JWKS, error)
}

// Verifier validates Auth0-issued JWTs against the JWKS of the issuer
// named in the token.
type Verifier struct {
	config Config
	keys   KeySetSource
	now    func() time.Time
	logger jwtguard.Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithKeySetSource replaces the default KeySetFetcher.
func WithKeySetSource(src KeySetSource) VerifierOption {
	return func(v *Verifier) {
		if src != nil {
			v.keys = src
		}
	}
}

// WithClock overrides the clock used for exp and nbf checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger jwtguard.Logger) VerifierOption {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVerifier creates a verifier. store caches JWKS documents; a nil store
// uses a process local cache.MemoryStore.
func NewVerifier(cfg Config, store cache.Repository, opts ...VerifierOption) (*Verifier, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = DefaultAlgorithm
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	v := &Verifier{
		config: cfg,
		now:    time.Now,
		logger: jwtguard.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.keys == nil {
		if store == nil {
			store = cache.NewMemoryStore(nil)
		}
		v.keys = NewKeySetFetcher(store, cfg.TTL(), cfg.JWKSTimeout,
			WithFetcherClock(v.now),
			WithFetcherLogger(v.logger),
		)
	}
	return v, nil
}

// Config returns the configuration the verifier was built with.
func (v *Verifier) Config() Config {
	return v.config
}

// Verify checks the token's issuer, signature, audience and lifetime and
// returns its claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (jwtguard.Claims, error) {
	unverified, err := v.peek(raw)
	if err != nil {
		return nil, err
	}

	issuer, ok := v.config.trusts(unverified.Issuer())
	if !ok {
		return nil, jwtguard.NewError(jwtguard.ErrUntrustedIssuer, nil, map[string]any{
			"provider": "auth0",
			"issuer":   unverified.Issuer(),
		})
	}

	// exp is rejected before any key fetch so an expired token is reported
	// as expired even when its signature is also bad.
	if exp := unverified.ExpiresAt(); !exp.IsZero() && !v.now().Before(exp.Add(v.config.Leeway)) {
		return nil, jwtguard.NewError(jwtguard.ErrExpiredToken, nil, map[string]any{
			"provider":   "auth0",
			"expired_at": exp.UTC().Format(time.RFC3339),
		})
	}

	jwks, err := v.keys.Fetch(ctx, issuer)
	if err != nil {
		return nil, err
	}

	// iss was trust checked above; the parser must match the token's own
	// spelling, not the normalized issuer used for the JWKS URL.
	claims, err := v.parse(raw, unverified.Issuer(), jwks)
	if err != nil && stderrors.Is(err, keyfunc.ErrKIDNotFound) {
		v.logger.Debug("unknown kid, refreshing jwks", "issuer", issuer)
		if jwks, err = v.keys.Refresh(ctx, issuer); err != nil {
			return nil, err
		}
		claims, err = v.parse(raw, unverified.Issuer(), jwks)
	}
	if err != nil {
		return nil, normalizeValidationError(err)
	}
	return claims, nil
}

func (v *Verifier) peek(raw string) (jwtguard.Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, jwtguard.NewError(jwtguard.ErrMalformedToken, err, map[string]any{
			"provider": "auth0",
			"cause":    err.Error(),
		})
	}
	return jwtguard.Claims(claims), nil
}

func (v *Verifier) parse(raw, issuer string, jwks *keyfunc.JWKS) (jwtguard.Claims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, jwks.Keyfunc,
		jwt.WithValidMethods([]string{v.config.Algorithm}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(v.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.config.Leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, err
	}
	return jwtguard.Claims(claims), nil
}

func normalizeValidationError(err error) error {
	if err == nil {
		return nil
	}

	base := jwtguard.ErrMalformedToken
	switch {
	case stderrors.Is(err, jwt.ErrTokenExpired):
		base = jwtguard.ErrExpiredToken
	case stderrors.Is(err, jwt.ErrTokenNotValidYet):
		base = jwtguard.ErrTokenNotYetValid
	case stderrors.Is(err, jwt.ErrTokenInvalidAudience):
		base = jwtguard.ErrAudienceMismatch
	case stderrors.Is(err, jwt.ErrTokenInvalidIssuer):
		base = jwtguard.ErrUntrustedIssuer
	case stderrors.Is(err, jwt.ErrTokenSignatureInvalid),
		stderrors.Is(err, jwt.ErrTokenUnverifiable):
		base = jwtguard.ErrInvalidSignature
	}

	return jwtguard.NewError(base, err, map[string]any{
		"provider": "auth0",
		"cause":    err.Error(),
	})
}
