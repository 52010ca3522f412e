package jwtguard

import (
	"context"
	"strings"
)

var claimsCtxKey = &contextKey{"claims"}
var fieldsCtxKey = &contextKey{"fields"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the verified Claims in the given context
func WithClaimsContext(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the verified Claims from the context
func GetClaims(ctx context.Context) (Claims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(Claims)
	return raw, ok
}

// WithFields merges fields into the projected fields already in ctx.
// Existing fields are kept.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	current := GetFields(ctx)
	return context.WithValue(ctx, fieldsCtxKey, Merge(current, fields))
}

// GetFields returns a copy of the projected fields in ctx, never nil.
func GetFields(ctx context.Context) map[string]any {
	raw, ok := ctx.Value(fieldsCtxKey).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return Merge(nil, raw)
}

// Field is a convenience lookup of a dotted path in the projected fields,
// e.g. "jwt.namespace.dealer_id".
func Field(ctx context.Context, path string) (any, bool) {
	var current any = GetFields(ctx)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
