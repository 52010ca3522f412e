package guard

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/goliatone/go-jwtguard"
)

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case insensitively.
func BearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// FiberCredentials reads the Authorization header of c, along with claims a
// previous guard handler stored in the user context.
func FiberCredentials(c *fiber.Ctx) Credentials {
	values := c.GetReqHeaders()[HeaderAuthorization]
	creds := Credentials{HeaderPresent: len(values) > 0}
	if creds.HeaderPresent {
		creds.Token = BearerToken(values[0])
	}
	if claims, ok := jwtguard.GetClaims(c.UserContext()); ok && creds.Token != "" {
		creds.Claims = claims
	}
	return creds
}

// FiberRequireScope is RequireScope for fiber. Claims are stored in
// c.Locals(ContextKey).
func (g *Guard) FiberRequireScope(scope string) fiber.Handler {
	if strings.TrimSpace(scope) == "" {
		panic(jwtguard.ConfigError("scope", nil))
	}

	return func(c *fiber.Ctx) error {
		d := g.Authorize(c.UserContext(), FiberCredentials(c), scope)
		return g.serveFiber(c, d)
	}
}

// FiberProjectFields is ProjectFields for fiber. Fields are stored in
// c.Locals(FieldsKey).
func (g *Guard) FiberProjectFields(fields string) fiber.Handler {
	names := jwtguard.ParseFields(fields)

	return func(c *fiber.Ctx) error {
		d := g.Project(c.UserContext(), FiberCredentials(c), names)
		return g.serveFiber(c, d)
	}
}

func (g *Guard) serveFiber(c *fiber.Ctx, d Decision) error {
	id := c.Get(HeaderRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	g.logDecision(id, d)

	if !d.Allowed() {
		return c.Status(d.Status).JSON(fiber.Map{"message": d.Message})
	}

	ctx := c.UserContext()
	if d.Claims != nil {
		c.Locals(g.cfg.ContextKey, d.Claims)
		ctx = jwtguard.WithClaimsContext(ctx, d.Claims)
	}
	if d.Fields != nil {
		ctx = jwtguard.WithFields(ctx, d.Fields)
		c.Locals(g.cfg.FieldsKey, jwtguard.GetFields(ctx))
	}
	c.SetUserContext(ctx)

	return c.Next()
}
