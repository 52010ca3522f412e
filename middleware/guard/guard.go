package guard

import (
	"context"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/goliatone/go-jwtguard"
)

const (
	MessageHeaderNotFound = "Authorization Header not found"
	MessageNoToken        = "No token provided"
	MessageInvalidToken   = "Invalid token"
	MessageNoScopes       = "No scopes defined in JWT"
	MessageNoAccess       = "No access to scope"
)

// Verifier turns a raw bearer token into verified claims.
type Verifier interface {
	Verify(ctx context.Context, raw string) (jwtguard.Claims, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, raw string) (jwtguard.Claims, error)

func (f VerifierFunc) Verify(ctx context.Context, raw string) (jwtguard.Claims, error) {
	return f(ctx, raw)
}

// Mode controls what happens when a field projection request cannot be
// authenticated.
type Mode int

const (
	// ModeReject answers with the failing gate's status and message.
	ModeReject Mode = iota
	// ModePassThrough lets the request continue with every requested field
	// projected as nil.
	ModePassThrough
)

func (m Mode) String() string {
	switch m {
	case ModePassThrough:
		return "pass-through"
	default:
		return "reject"
	}
}

// Credentials is what a transport adapter extracted from the request.
type Credentials struct {
	// HeaderPresent is true when an Authorization header was sent, even if empty.
	HeaderPresent bool
	// Token is the bearer token without the scheme, or empty.
	Token string
	// Claims are set when an earlier gate already verified Token for this
	// request. Verification is skipped when present.
	Claims jwtguard.Claims
}

// Decision is the outcome of running the gates for one request.
type Decision struct {
	Status  int
	Message string
	Claims  jwtguard.Claims
	Fields  map[string]any
	Err     error
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Status == http.StatusOK
}

func deny(status int, message string, err error) Decision {
	return Decision{Status: status, Message: message, Err: err}
}

type Config struct {
	Verifier  Verifier
	Projector jwtguard.Projector
	Mode      Mode
	Logger    jwtguard.Logger
	// ContextKey is the fiber Locals key for the verified claims.
	ContextKey string
	// FieldsKey is the fiber Locals key for the projected fields.
	FieldsKey string
	// OnDenied replaces the default JSON error response of the net/http adapter.
	OnDenied func(w http.ResponseWriter, r *http.Request, d Decision)
}

// Guard runs the authentication and authorization gates.
type Guard struct {
	cfg Config
}

// New creates a Guard. It panics when no Verifier is configured.
func New(config ...Config) *Guard {
	return &Guard{cfg: GetDefaultConfig(config...)}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Verifier == nil {
		panic(jwtguard.ConfigError("Verifier", nil))
	}

	if cfg.Logger == nil {
		cfg.Logger = jwtguard.DefaultLogger()
	}

	if cfg.Projector.Mode == jwtguard.ProjectNamespaced && cfg.Projector.Namespace == "" {
		cfg.Projector.Namespace = jwtguard.DefaultNamespace
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "claims"
	}

	if cfg.FieldsKey == "" {
		cfg.FieldsKey = "fields"
	}

	return cfg
}

// Config returns the resolved configuration.
func (g *Guard) Config() Config {
	return g.cfg
}

// Authenticate runs the header, token and verification gates.
func (g *Guard) Authenticate(ctx context.Context, creds Credentials) Decision {
	if !creds.HeaderPresent {
		return deny(http.StatusUnauthorized, MessageHeaderNotFound, nil)
	}

	if creds.Token == "" {
		return deny(http.StatusUnauthorized, MessageNoToken, nil)
	}

	if creds.Claims != nil {
		return Decision{Status: http.StatusOK, Claims: creds.Claims}
	}

	claims, err := g.cfg.Verifier.Verify(ctx, creds.Token)
	if err != nil {
		if jwtguard.IsInvalidToken(err) {
			return deny(http.StatusUnauthorized, MessageInvalidToken, err)
		}
		return deny(http.StatusInternalServerError, errorMessage(err), err)
	}

	return Decision{Status: http.StatusOK, Claims: claims}
}

// Authorize authenticates the request and requires scope to be granted.
func (g *Guard) Authorize(ctx context.Context, creds Credentials, scope string) Decision {
	d := g.Authenticate(ctx, creds)
	if !d.Allowed() {
		return d
	}

	if d.Claims.Scope() == "" {
		return deny(http.StatusForbidden, MessageNoScopes,
			jwtguard.NewError(jwtguard.ErrScopeDenied, nil, map[string]any{"scope": scope}))
	}

	if !d.Claims.HasScope(scope) {
		return deny(http.StatusForbidden, MessageNoAccess,
			jwtguard.NewError(jwtguard.ErrScopeDenied, nil, map[string]any{
				"scope":   scope,
				"granted": d.Claims.Scopes(),
			}))
	}

	return d
}

// Project authenticates the request and projects fields from its claims.
// In ModePassThrough a failed authentication still proceeds, with nil fields.
func (g *Guard) Project(ctx context.Context, creds Credentials, fields []string) Decision {
	d := g.Authenticate(ctx, creds)
	if !d.Allowed() {
		if g.cfg.Mode != ModePassThrough {
			return d
		}
		return Decision{
			Status: http.StatusOK,
			Fields: g.cfg.Projector.Project(nil, fields),
			Err:    d.Err,
		}
	}

	d.Fields = g.cfg.Projector.Project(d.Claims, fields)
	return d
}

// logDecision records a denial. Operational failures are warnings.
func (g *Guard) logDecision(requestID string, d Decision) {
	if d.Allowed() {
		if d.Err != nil {
			g.cfg.Logger.Debug("authentication failed, proceeding",
				"request_id", requestID,
				"error", errorMessage(d.Err),
			)
		}
		return
	}

	args := []any{
		"request_id", requestID,
		"status", d.Status,
		"message", d.Message,
	}
	if d.Err != nil {
		args = append(args, "error", d.Err.Error())
		if meta := errorMetadata(d.Err); meta != "" {
			args = append(args, "metadata", meta)
		}
	}

	if d.Status == http.StatusUnauthorized {
		g.cfg.Logger.Info("request denied", args...)
		return
	}
	g.cfg.Logger.Warn("request denied", args...)
}

func errorMessage(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}
	return err.Error()
}

func errorMetadata(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && len(richErr.Metadata) > 0 {
		return print.MaybePrettyJSON(richErr.Metadata)
	}
	return ""
}
