package jwtguard_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-jwtguard"
)

func TestClaims_RegisteredAccessors(t *testing.T) {
	claims := jwtguard.Claims{
		"iss": "https://tenant.auth0.com/",
		"sub": "auth0|user123",
		"aud": "https://api.test",
		"exp": float64(1_700_000_000),
		"nbf": int64(1_600_000_000),
	}

	assert.Equal(t, "https://tenant.auth0.com/", claims.Issuer())
	assert.Equal(t, "auth0|user123", claims.Subject())
	assert.Equal(t, []string{"https://api.test"}, claims.Audience())
	assert.Equal(t, time.Unix(1_700_000_000, 0), claims.ExpiresAt())
	assert.Equal(t, time.Unix(1_600_000_000, 0), claims.NotBefore())
}

func TestClaims_Audience(t *testing.T) {
	tests := []struct {
		name string
		aud  any
		want []string
	}{
		{name: "string", aud: "a", want: []string{"a"}},
		{name: "strings", aud: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "decoded json", aud: []any{"a", "b"}, want: []string{"a", "b"}},
		{name: "missing", aud: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := jwtguard.Claims{}
			if tt.aud != nil {
				claims["aud"] = tt.aud
			}
			assert.Equal(t, tt.want, claims.Audience())
		})
	}
}

func TestClaims_ExpiresAtJSONNumber(t *testing.T) {
	claims := jwtguard.Claims{"exp": json.Number("1700000000")}
	assert.Equal(t, time.Unix(1_700_000_000, 0), claims.ExpiresAt())

	assert.True(t, jwtguard.Claims{}.ExpiresAt().IsZero())
	assert.True(t, jwtguard.Claims{"exp": "soon"}.ExpiresAt().IsZero())
}

func TestClaims_Scopes(t *testing.T) {
	claims := jwtguard.Claims{"scope": "inventory:get  inventory:post"}

	assert.Equal(t, "inventory:get  inventory:post", claims.Scope())
	assert.Equal(t, []string{"inventory:get", "inventory:post"}, claims.Scopes())
	assert.True(t, claims.HasScope("inventory:post"))
	assert.False(t, claims.HasScope("inventory:delete"))
	assert.False(t, claims.HasScope("inventory"))

	empty := jwtguard.Claims{}
	assert.Equal(t, "", empty.Scope())
	assert.Empty(t, empty.Scopes())
	assert.False(t, empty.HasScope(""))
}

func TestClaims_Namespaced(t *testing.T) {
	ns := "https://platform.autotrader.com.au/"
	claims := jwtguard.Claims{
		ns + "dealer_id": "d-1",
		ns + "roles":     []any{"admin"},
		"sub":            "user",
		ns:               "bare",
	}

	assert.Equal(t, map[string]any{
		"dealer_id": "d-1",
		"roles":     []any{"admin"},
	}, claims.Namespaced(ns))
	assert.Empty(t, claims.Namespaced(""))
}

func TestClaims_GetAndToMap(t *testing.T) {
	claims := jwtguard.Claims{"sub": "user", "n": 1}

	v, ok := claims.Get("sub")
	assert.True(t, ok)
	assert.Equal(t, "user", v)

	_, ok = claims.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, "", claims.String("n"))

	exported := claims.ToMap()
	exported["sub"] = "changed"
	assert.Equal(t, "user", claims["sub"])
}
