package jwtguard

import "strings"

// DefaultNamespace is the prefix of custom claims when none is configured.
const DefaultNamespace = "https://platform.autotrader.com.au/"

// ProjectionMode selects the shape of projected fields.
type ProjectionMode int

const (
	// ProjectFlat projects {name: value}.
	ProjectFlat ProjectionMode = iota
	// ProjectNamespaced looks up namespace+name and projects
	// {"jwt": {"namespace": {name: value}}}.
	ProjectNamespaced
)

// Projector copies selected claims into a field map attached to the request.
type Projector struct {
	Namespace string
	Mode      ProjectionMode
}

// NewProjector returns a Projector, using DefaultNamespace for namespaced mode
// when namespace is empty.
func NewProjector(mode ProjectionMode, namespace string) Projector {
	if mode == ProjectNamespaced && namespace == "" {
		namespace = DefaultNamespace
	}
	return Projector{Namespace: namespace, Mode: mode}
}

// ParseFields splits a colon separated field list.
func ParseFields(fields string) []string {
	parts := strings.Split(fields, ":")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Project builds the field map for the requested claim names. Missing claims
// are projected as nil. A nil claim set projects every field as nil.
func (p Projector) Project(claims Claims, fields []string) map[string]any {
	values := make(map[string]any, len(fields))
	for _, field := range fields {
		name := field
		if p.Mode == ProjectNamespaced {
			name = p.Namespace + field
		}
		v, _ := claims.Get(name)
		values[field] = v
	}

	if p.Mode != ProjectNamespaced {
		return values
	}

	return map[string]any{
		"jwt": map[string]any{
			"namespace": values,
		},
	}
}

// Merge deep merges src into dst and returns dst. Nested maps are merged key
// by key so existing fields are never dropped.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = Merge(cloneMap(dstMap), srcMap)
			continue
		}
		if srcIsMap {
			dst[k] = Merge(nil, srcMap)
			continue
		}
		dst[k] = v
	}
	return dst
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
