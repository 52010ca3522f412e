package jwtguard

import (
	"encoding/json"
	"strings"
	"time"
)

// Claims is the decoded claim set of a verified token.
type Claims map[string]any

// Get returns the raw value of a claim.
func (c Claims) Get(name string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c[name]
	return v, ok
}

// String returns a claim as string, or "" when absent or not a string.
func (c Claims) String(name string) string {
	v, ok := c.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (c Claims) Issuer() string {
	return c.String("iss")
}

func (c Claims) Subject() string {
	return c.String("sub")
}

// Audience returns aud as a list, whether the token carried a string or an array.
func (c Claims) Audience() []string {
	v, ok := c.Get("aud")
	if !ok {
		return nil
	}
	switch aud := v.(type) {
	case string:
		return []string{aud}
	case []string:
		return aud
	case []any:
		out := make([]string, 0, len(aud))
		for _, a := range aud {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ExpiresAt returns the exp claim, zero time if missing.
func (c Claims) ExpiresAt() time.Time {
	return c.numericDate("exp")
}

// NotBefore returns the nbf claim, zero time if missing.
func (c Claims) NotBefore() time.Time {
	return c.numericDate("nbf")
}

func (c Claims) numericDate(name string) time.Time {
	v, ok := c.Get(name)
	if !ok {
		return time.Time{}
	}
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0)
	case int64:
		return time.Unix(n, 0)
	case int:
		return time.Unix(int64(n), 0)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return time.Unix(i, 0)
		}
	}
	return time.Time{}
}

// Scope returns the raw space separated scope claim.
func (c Claims) Scope() string {
	return c.String("scope")
}

// Scopes splits the scope claim.
func (c Claims) Scopes() []string {
	return strings.Fields(c.Scope())
}

// HasScope reports whether scope is granted by the token.
func (c Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes() {
		if s == scope {
			return true
		}
	}
	return false
}

// Namespaced returns the custom claims under the namespace prefix, keyed by
// their short name.
func (c Claims) Namespaced(namespace string) map[string]any {
	out := map[string]any{}
	if namespace == "" {
		return out
	}
	for k, v := range c {
		if name, ok := strings.CutPrefix(k, namespace); ok && name != "" {
			out[name] = v
		}
	}
	return out
}

// ToMap exports the claims as a plain map. The copy is shallow.
func (c Claims) ToMap() map[string]any {
	out := make(map[string]any, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
