package auth0

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/goliatone/go-jwtguard"
	"github.com/goliatone/go-jwtguard/cache"
)

const (
	accessTokenCachePrefix = "auth0_jwt_"
	// accessTokenLeeway is subtracted from the token lifetime so a cached
	// token is never handed out right before it expires.
	accessTokenLeeway = 10 * time.Second
)

// TokenClient obtains machine to machine access tokens with the client
// credentials grant and caches them until shortly before they expire.
type TokenClient struct {
	audience   string
	client     ClientConfig
	store      cache.Repository
	ttl        time.Duration
	httpClient *http.Client
	now        func() time.Time
	logger     jwtguard.Logger
}

// TokenClientOption configures a TokenClient.
type TokenClientOption func(*TokenClient)

// WithTokenHTTPClient sets the client used for token requests.
func WithTokenHTTPClient(client *http.Client) TokenClientOption {
	return func(c *TokenClient) {
		c.httpClient = client
	}
}

// WithTokenClock overrides the clock used for cache expiry.
func WithTokenClock(now func() time.Time) TokenClientOption {
	return func(c *TokenClient) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTokenLogger sets the logger.
func WithTokenLogger(logger jwtguard.Logger) TokenClientOption {
	return func(c *TokenClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewTokenClient creates a client for cfg.Audience using cfg.Client.
// Missing credentials, audience or token URL fail with ErrConfiguration.
func NewTokenClient(cfg Config, store cache.Repository, opts ...TokenClientOption) (*TokenClient, error) {
	if cfg.Client.GrantType == "" {
		cfg.Client.GrantType = DefaultGrantType
	}
	if err := cfg.Client.Validate(); err != nil {
		return nil, err
	}
	if cfg.Audience == "" {
		return nil, jwtguard.ConfigError("AUTH0_AUDIENCE", nil)
	}
	if store == nil {
		store = cache.NewMemoryStore(nil)
	}

	c := &TokenClient{
		audience: cfg.Audience,
		client:   cfg.Client,
		store:    store,
		ttl:      cfg.TTL(),
		now:      time.Now,
		logger:   jwtguard.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Audience returns the audience tokens are requested for.
func (c *TokenClient) Audience() string {
	return c.audience
}

// WithAudience returns a copy of the client requesting tokens for audience.
// The cache is shared.
func (c *TokenClient) WithAudience(audience string) *TokenClient {
	clone := *c
	clone.audience = audience
	return &clone
}

// CacheKey returns the cache key for the client's audience.
func (c *TokenClient) CacheKey() string {
	return accessTokenCachePrefix + cache.SafeKey(c.audience)
}

// Token returns a cached access token or requests a new one.
func (c *TokenClient) Token(ctx context.Context) (string, error) {
	if c.audience == "" {
		return "", jwtguard.ConfigError("AUTH0_AUDIENCE", nil)
	}

	key := c.CacheKey()
	pool := cache.NewPool(c.store, cache.WithClock(c.now), cache.WithLogger(c.logger))
	defer func() {
		if err := pool.Close(); err != nil {
			c.logger.Warn("access token cache commit failed", "key", key, "error", err)
		}
	}()

	item, err := pool.GetItem(ctx, key)
	if err != nil {
		return "", err
	}
	if item.IsHit() {
		if token, ok := item.Get().(string); ok && token != "" {
			c.logger.Debug("access token cache hit", "audience", c.audience)
			return token, nil
		}
	}

	tok, err := c.request(ctx)
	if err != nil {
		return "", err
	}

	expiresAt := c.now().Add(c.ttl)
	if !tok.Expiry.IsZero() {
		expiresAt = tok.Expiry.Add(-accessTokenLeeway)
	}
	if expiresAt.After(c.now()) {
		item.Set(tok.AccessToken).ExpiresAt(expiresAt)
		pool.SaveDeferred(item)
	}

	return tok.AccessToken, nil
}

func (c *TokenClient) request(ctx context.Context) (*oauth2.Token, error) {
	conf := clientcredentials.Config{
		ClientID:     c.client.ClientID,
		ClientSecret: c.client.ClientSecret,
		TokenURL:     c.client.OAuthURL,
		EndpointParams: url.Values{
			"audience": {c.audience},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}

	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}

	tok, err := conf.Token(ctx)
	if err != nil {
		return nil, tokenRequestError(err, c.audience)
	}
	return tok, nil
}

func tokenRequestError(err error, audience string) error {
	clone := jwtguard.ErrTokenRequest.Clone()
	clone.Source = err

	meta := map[string]any{
		"provider": "auth0",
		"audience": audience,
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			clone.Code = retrieveErr.Response.StatusCode
			meta["status"] = retrieveErr.Response.StatusCode
		}
		if retrieveErr.ErrorCode != "" {
			clone.Message = retrieveErr.ErrorCode
		}
		if retrieveErr.ErrorDescription != "" {
			meta["description"] = retrieveErr.ErrorDescription
		}
	} else {
		clone.Code = goerrors.CodeInternal
		meta["cause"] = err.Error()
	}

	return clone.WithMetadata(meta)
}
