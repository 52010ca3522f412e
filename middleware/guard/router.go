package guard

import (
	"strings"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/goliatone/go-jwtguard"
)

// RouterCredentials reads the Authorization header through a go-router
// context. An empty header counts as missing.
func RouterCredentials(c router.Context) Credentials {
	header := c.GetString(HeaderAuthorization, "")
	creds := Credentials{HeaderPresent: header != ""}
	if !creds.HeaderPresent {
		return creds
	}

	creds.Token = BearerToken(header)
	if claims, ok := jwtguard.GetClaims(c.Context()); ok && creds.Token != "" {
		creds.Claims = claims
	}
	return creds
}

// RouterRequireScope is RequireScope as a go-router middleware. Claims are
// stored in c.Locals(ContextKey) and in the request context.
func (g *Guard) RouterRequireScope(scope string) router.MiddlewareFunc {
	if strings.TrimSpace(scope) == "" {
		panic(jwtguard.ConfigError("scope", nil))
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			d := g.Authorize(c.Context(), RouterCredentials(c), scope)
			return g.serveRouter(c, d, next)
		}
	}
}

// RouterProjectFields is ProjectFields as a go-router middleware. Fields are
// stored in c.Locals(FieldsKey).
func (g *Guard) RouterProjectFields(fields string) router.MiddlewareFunc {
	names := jwtguard.ParseFields(fields)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			d := g.Project(c.Context(), RouterCredentials(c), names)
			return g.serveRouter(c, d, next)
		}
	}
}

func (g *Guard) serveRouter(c router.Context, d Decision, next router.HandlerFunc) error {
	id := c.GetString(HeaderRequestID, "")
	if id == "" {
		id = uuid.NewString()
	}
	g.logDecision(id, d)

	if !d.Allowed() {
		return c.JSON(d.Status, map[string]string{"message": d.Message})
	}

	ctx := c.Context()
	if d.Claims != nil {
		c.Locals(g.cfg.ContextKey, d.Claims)
		ctx = jwtguard.WithClaimsContext(ctx, d.Claims)
	}
	if d.Fields != nil {
		ctx = jwtguard.WithFields(ctx, d.Fields)
		c.Locals(g.cfg.FieldsKey, jwtguard.GetFields(ctx))
	}
	c.SetContext(ctx)

	return next(c)
}
