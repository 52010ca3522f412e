package auth0

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/joho/godotenv"

	"github.com/goliatone/go-jwtguard"
)

const (
	DefaultAlgorithm   = "RS256"
	DefaultCacheTTL    = 1800
	DefaultJWKSTimeout = 10 * time.Second
	DefaultGrantType   = "client_credentials"
)

// SupportedAlgorithms are the asymmetric algorithms keyfunc can resolve from
// a JWKS document.
var SupportedAlgorithms = []any{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// Config holds Auth0 configuration for token validation.
type Config struct {
	// Domains are the trusted issuers, in order. Bare domains such as
	// "example.us.auth0.com" resolve to "https://example.us.auth0.com/".
	Domains []string `env:"AUTH0_DOMAIN" envSeparator:","`

	// Audience is the API identifier tokens must be issued for.
	Audience string `env:"AUTH0_AUDIENCE"`

	// Algorithm is the only signing algorithm accepted.
	Algorithm string `env:"AUTH0_ALGORITHM" envDefault:"RS256"`

	// Namespace prefixes custom claims.
	Namespace string `env:"AUTH0_JWT_NAMESPACE" envDefault:"https://platform.autotrader.com.au/"`

	// CacheTTL is how long, in seconds, to cache JWKS documents.
	CacheTTL int `env:"AUTH0_CACHE_TTL" envDefault:"1800"`

	// JWKSTimeout bounds a single JWKS fetch.
	JWKSTimeout time.Duration `env:"AUTH0_JWKS_TIMEOUT" envDefault:"10s"`

	// Leeway is the clock skew tolerated on exp and nbf.
	Leeway time.Duration `env:"AUTH0_LEEWAY" envDefault:"0s"`

	// Client is only required by TokenClient.
	Client ClientConfig
}

// ClientConfig holds the client credentials flow settings.
type ClientConfig struct {
	ClientID     string `env:"AUTH0_JWT_CLIENTID"`
	ClientSecret string `env:"AUTH0_JWT_CLIENTSECRET"`
	OAuthURL     string `env:"AUTH0_OAUTH_URL"`
	GrantType    string `env:"AUTH0_GRANT_TYPE" envDefault:"client_credentials"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(audience string, domains ...string) Config {
	return Config{
		Domains:     domains,
		Audience:    audience,
		Algorithm:   DefaultAlgorithm,
		Namespace:   jwtguard.DefaultNamespace,
		CacheTTL:    DefaultCacheTTL,
		JWKSTimeout: DefaultJWKSTimeout,
		Client: ClientConfig{
			GrantType: DefaultGrantType,
		},
	}
}

// LoadConfig reads the optional .env files and the process environment.
// The result is validated; a missing or invalid setting is an
// ErrConfiguration naming the setting.
func LoadConfig(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, jwtguard.ConfigError(".env", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, jwtguard.ConfigError("environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings needed to verify tokens.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Domains, validation.Required),
		validation.Field(&c.Audience, validation.Required),
		validation.Field(&c.Algorithm, validation.Required, validation.In(SupportedAlgorithms...)),
		validation.Field(&c.CacheTTL, validation.Min(1)),
		validation.Field(&c.JWKSTimeout, validation.Min(1)),
		validation.Field(&c.Leeway, validation.Min(0)),
	)
	if err != nil {
		return validationError(err)
	}

	for _, issuer := range c.Issuers() {
		if err := validation.Validate(issuer, is.URL); err != nil {
			return jwtguard.ConfigError("AUTH0_DOMAIN", fmt.Errorf("%s: %w", issuer, err))
		}
	}
	return nil
}

// Validate checks the settings needed by the client credentials flow.
func (c ClientConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.ClientSecret, validation.Required),
		validation.Field(&c.OAuthURL, validation.Required, is.URL),
		validation.Field(&c.GrantType, validation.Required, validation.In(DefaultGrantType)),
	)
	if err != nil {
		return validationError(err)
	}
	return nil
}

// Issuers returns the normalized trusted issuer URLs.
func (c Config) Issuers() []string {
	out := make([]string, 0, len(c.Domains))
	for _, domain := range c.Domains {
		if issuer := issuerURL(domain); issuer != "" {
			out = append(out, issuer)
		}
	}
	return out
}

// TTL returns CacheTTL as a duration.
func (c Config) TTL() time.Duration {
	if c.CacheTTL <= 0 {
		return DefaultCacheTTL * time.Second
	}
	return time.Duration(c.CacheTTL) * time.Second
}

func (c Config) trusts(issuer string) (string, bool) {
	issuer = normalizeIssuer(issuer)
	if issuer == "" {
		return "", false
	}
	for _, trusted := range c.Issuers() {
		if trusted == issuer {
			return trusted, true
		}
	}
	return "", false
}

func issuerURL(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}

	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return normalizeIssuer(domain)
	}

	return fmt.Sprintf("https://%s/", strings.TrimSuffix(domain, "/"))
}

func normalizeIssuer(issuer string) string {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return issuer
	}
	if strings.HasSuffix(issuer, "/") {
		return issuer
	}
	return issuer + "/"
}

// validationError turns ozzo field errors into an ErrConfiguration naming the
// first offending field.
func validationError(err error) error {
	var fields validation.Errors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return jwtguard.ConfigError("config", err)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return jwtguard.NewError(jwtguard.ErrConfiguration, err, map[string]any{
		"setting": names[0],
		"fields":  names,
		"cause":   err.Error(),
	})
}
