package providers

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
)

// ErrUnknownTool indicates a run request for a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Provider port (interface untuk analysis tools). The engine never
// inspects the result; it is forwarded opaquely to persistence and
// the read cache.
type Provider interface {
	Run(ctx context.Context, query string) (json.RawMessage, error)
}

// InputKind declares what shape of query a provider accepts. The HTTP
// surface sanitizes each query per kind before the run; a query that
// fails its kind's sanitizer never reaches the provider.
type InputKind string

const (
	InputText     InputKind = "text"
	InputHostname InputKind = "hostname"
	InputIP       InputKind = "ip"
	InputURL      InputKind = "url"
	InputEmail    InputKind = "email"
)

type registration struct {
	provider Provider
	kind     InputKind
}

// Registry maps tool keys to providers and their declared input kind.
// Populated once at startup, read-only afterwards.
type Registry struct {
	m map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]registration)}
}

func (r *Registry) Register(tool string, kind InputKind, p Provider) {
	if kind == "" {
		kind = InputText
	}
	r.m[tool] = registration{provider: p, kind: kind}
}

func (r *Registry) Get(tool string) (Provider, InputKind, bool) {
	reg, ok := r.m[tool]
	return reg.provider, reg.kind, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.m))
	for k := range r.m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
