package auth0

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"

	"github.com/goliatone/go-jwtguard"
	"github.com/goliatone/go-jwtguard/cache"
)

const (
	jwksPath         = ".well-known/jwks.json"
	jwksCachePrefix  = "auth0_jwks_"
	maxJWKSBodyBytes = 1 << 20
)

// KeySetFetcher retrieves an issuer's JWKS document, caching the raw
// document in a cache.Repository.
type KeySetFetcher struct {
	client  *http.Client
	store   cache.Repository
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  jwtguard.Logger
}

// FetcherOption configures a KeySetFetcher.
type FetcherOption func(*KeySetFetcher)

// WithHTTPClient sets the client used for JWKS requests.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *KeySetFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithFetcherClock overrides the clock used for cache expiry.
func WithFetcherClock(now func() time.Time) FetcherOption {
	return func(f *KeySetFetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger jwtguard.Logger) FetcherOption {
	return func(f *KeySetFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewKeySetFetcher creates a fetcher caching documents for ttl. Each fetch
// is bounded by timeout.
func NewKeySetFetcher(store cache.Repository, ttl, timeout time.Duration, opts ...FetcherOption) *KeySetFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL * time.Second
	}
	if timeout <= 0 {
		timeout = DefaultJWKSTimeout
	}
	f := &KeySetFetcher{
		client:  http.DefaultClient,
		store:   store,
		ttl:     ttl,
		timeout: timeout,
		now:     time.Now,
		logger:  jwtguard.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// JWKSURL returns the key set location for a normalized issuer.
func JWKSURL(issuer string) string {
	return normalizeIssuer(issuer) + jwksPath
}

// CacheKey returns the cache key a JWKS document is stored under.
func CacheKey(uri string) string {
	sum := sha256.Sum256([]byte(uri))
	return jwksCachePrefix + hex.EncodeToString(sum[:])
}

// Fetch returns the key set for issuer. A cached document is used when
// present; otherwise it is downloaded, parsed, and staged in a pool that is
// committed before Fetch returns.
func (f *KeySetFetcher) Fetch(ctx context.Context, issuer string) (*keyfunc.JWKS, error) {
	return f.fetch(ctx, issuer, false)
}

// Refresh downloads the key set for issuer, replacing any cached copy.
func (f *KeySetFetcher) Refresh(ctx context.Context, issuer string) (*keyfunc.JWKS, error) {
	return f.fetch(ctx, issuer, true)
}

func (f *KeySetFetcher) fetch(ctx context.Context, issuer string, force bool) (*keyfunc.JWKS, error) {
	uri := JWKSURL(issuer)
	key := CacheKey(uri)

	pool := cache.NewPool(f.store, cache.WithClock(f.now), cache.WithLogger(f.logger))
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			f.logger.Warn("jwks cache commit failed", "uri", uri, "error", cerr)
		}
	}()

	item, err := pool.GetItem(ctx, key)
	if err != nil {
		return nil, jwtguard.NewError(jwtguard.ErrKeyRetrieval, err, map[string]any{"uri": uri})
	}

	if !force && item.IsHit() {
		if raw, ok := item.Get().([]byte); ok {
			if cached, err := keyfunc.NewJSON(raw); err == nil {
				f.logger.Debug("jwks cache hit", "uri", uri)
				return cached, nil
			}
			f.logger.Warn("discarding unparsable cached jwks", "uri", uri)
		}
	}

	raw, err := f.download(ctx, uri)
	if err != nil {
		return nil, err
	}

	jwks, err := keyfunc.NewJSON(raw)
	if err != nil {
		return nil, jwtguard.NewError(jwtguard.ErrKeyRetrieval, err, map[string]any{
			"uri":   uri,
			"cause": err.Error(),
		})
	}

	item.Set(raw).ExpiresAt(f.now().Add(f.ttl))
	pool.SaveDeferred(item)

	f.logger.Debug("jwks fetched", "uri", uri, "ttl", f.ttl.String())
	return jwks, nil
}

func (f *KeySetFetcher) download(ctx context.Context, uri string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, jwtguard.NewError(jwtguard.ErrKeyRetrieval, err, map[string]any{"uri": uri})
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, jwtguard.NewError(jwtguard.ErrKeyRetrieval, err, map[string]any{
			"uri":   uri,
			"cause": err.Error(),
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, jwtguard.NewError(jwtguard.ErrKeyRetrieval, nil, map[string]any{
			"uri":    uri,
			"status": resp.StatusCode,
			"cause":  fmt.Sprintf("unexpected status %d", resp.StatusCode),
		})
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBodyBytes))
	if err != nil {
		return nil, jwtguard.NewError(jwtguard.ErrKeyRetrieval, err, map[string]any{
			"uri":   uri,
			"cause": err.Error(),
		})
	}
	return raw, nil
}
