package guard

import (
	"encoding/json"
	"net/http"
	"strings"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/goliatone/go-jwtguard"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
)

// HTTPCredentials reads the Authorization header of r, along with claims a
// previous guard middleware stored in the request context.
func HTTPCredentials(r *http.Request) Credentials {
	creds := Credentials{
		HeaderPresent: len(r.Header.Values(HeaderAuthorization)) > 0,
	}
	if !creds.HeaderPresent {
		return creds
	}

	token, err := jwtmiddleware.AuthHeaderTokenExtractor(r)
	if err == nil {
		creds.Token = strings.TrimSpace(token)
	}
	if claims, ok := jwtguard.GetClaims(r.Context()); ok && creds.Token != "" {
		creds.Claims = claims
	}
	return creds
}

// RequireScope returns net/http middleware that only lets requests through
// when their token grants scope. An empty scope panics.
func (g *Guard) RequireScope(scope string) func(http.Handler) http.Handler {
	if strings.TrimSpace(scope) == "" {
		panic(jwtguard.ConfigError("scope", nil))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Authorize(r.Context(), HTTPCredentials(r), scope)
			g.serve(w, r, d, next)
		})
	}
}

// ProjectFields returns net/http middleware that projects the colon separated
// claim names in fields into the request context.
func (g *Guard) ProjectFields(fields string) func(http.Handler) http.Handler {
	names := jwtguard.ParseFields(fields)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Project(r.Context(), HTTPCredentials(r), names)
			g.serve(w, r, d, next)
		})
	}
}

func (g *Guard) serve(w http.ResponseWriter, r *http.Request, d Decision, next http.Handler) {
	g.logDecision(requestID(r), d)

	if !d.Allowed() {
		if g.cfg.OnDenied != nil {
			g.cfg.OnDenied(w, r, d)
			return
		}
		WriteError(w, d.Status, d.Message)
		return
	}

	ctx := r.Context()
	if d.Claims != nil {
		ctx = jwtguard.WithClaimsContext(ctx, d.Claims)
	}
	if d.Fields != nil {
		ctx = jwtguard.WithFields(ctx, d.Fields)
	}
	next.ServeHTTP(w, r.WithContext(ctx))
}

type errorBody struct {
	Message string `json:"message"`
}

// WriteError writes {"message": message} with status.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Message: message})
}

func requestID(r *http.Request) string {
	if id := r.Header.Get(HeaderRequestID); id != "" {
		return id
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}
