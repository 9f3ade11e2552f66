package provider

import (
	"errors"
	"strings"
	"sync"

	"github.com/cdnboot/cdnboot/internal/location"
)

// ErrNoProvider is returned when a descriptor carries no provider and
// neither a default base nor any fallback is configured.
var ErrNoProvider = errors.New("no provider resolves for descriptor")

// Mode classifies the execution context for provider selection.
type Mode int

const (
	// ModeDirect is the normal, unrestricted network context.
	ModeDirect Mode = iota
	// ModeProxy is a restricted or CI-like context preferring the
	// descriptor's CI provider.
	ModeProxy
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	if m == ModeProxy {
		return "proxy"
	}
	return "direct"
}

// Hints are the provider fields a module descriptor or dynamic rule may
// carry. Explicit always wins; CI and Production are chosen by mode.
type Hints struct {
	Explicit   string
	Production string
	CI         string
}

// Resolver ranks and normalizes candidate provider base URLs. Aliases,
// default base, and fallback list come from the manifest and are applied
// once per session.
type Resolver struct {
	mu           sync.RWMutex
	aliases      map[string]string
	defaultBase  string
	fallbacks    []string
	modeOverride *Mode
	loc          *location.Location
}

// NewResolver creates an empty provider resolver.
func NewResolver() *Resolver {
	return &Resolver{aliases: map[string]string{}}
}

// SetAliases registers the alias table. Aliases resolve before raw strings
// are treated as hostnames.
func (r *Resolver) SetAliases(aliases map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases = map[string]string{}
	for k, v := range aliases {
		r.aliases[k] = v
	}
}

// SetDefaultBase registers the default provider base URL.
func (r *Resolver) SetDefaultBase(base string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultBase = base
}

// SetFallbackProviders registers the ordered fallback provider list.
func (r *Resolver) SetFallbackProviders(bases []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append([]string(nil), bases...)
}

// SetModeOverride forces the proxy-mode classification. Pass nil to return
// to the host heuristic.
func (r *Resolver) SetModeOverride(mode *Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mode == nil {
		r.modeOverride = nil
		return
	}
	m := *mode
	r.modeOverride = &m
}

// SetLocation supplies the page location used by the host heuristic.
func (r *Resolver) SetLocation(loc location.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loc = &loc
}

// Mode returns the proxy-mode classification: an explicit override wins,
// else a loopback or CI-like hostname means proxy.
func (r *Resolver) Mode() Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.modeOverride != nil {
		return *r.modeOverride
	}
	if r.loc != nil && r.loc.IsCILike() {
		return ModeProxy
	}
	return ModeDirect
}

// NormalizeBase turns a provider reference into a usable base URL: a
// registered alias is substituted, a scheme is prepended when absent, and
// a trailing separator is guaranteed. Idempotent.
func (r *Resolver) NormalizeBase(input string) string {
	r.mu.RLock()
	if resolved, ok := r.aliases[input]; ok {
		input = resolved
	}
	r.mu.RUnlock()

	if input == "" {
		return ""
	}
	if !strings.Contains(input, "://") {
		input = "https://" + input
	}
	if !strings.HasSuffix(input, "/") {
		input += "/"
	}
	return input
}

// ResolveProvider resolves the hints to a single provider base: the
// explicit provider when set, else the CI provider under proxy mode or the
// production provider otherwise, else the default base.
func (r *Resolver) ResolveProvider(h Hints) (string, error) {
	if h.Explicit != "" {
		return r.NormalizeBase(h.Explicit), nil
	}
	if alt := r.alternative(h); alt != "" {
		return r.NormalizeBase(alt), nil
	}

	r.mu.RLock()
	base := r.defaultBase
	hasFallback := len(r.fallbacks) > 0
	r.mu.RUnlock()

	if base != "" {
		return r.NormalizeBase(base), nil
	}
	if hasFallback {
		return "", nil
	}
	return "", ErrNoProvider
}

// Candidates returns the ordered, deduplicated candidate bases for the
// hints: explicit provider, proxy-aware alternative, each fallback
// provider, default base. Every entry is normalized. The order is
// deterministic for identical input.
func (r *Resolver) Candidates(h Hints) []string {
	r.mu.RLock()
	fallbacks := append([]string(nil), r.fallbacks...)
	defaultBase := r.defaultBase
	r.mu.RUnlock()

	raw := make([]string, 0, len(fallbacks)+3)
	if h.Explicit != "" {
		raw = append(raw, h.Explicit)
	}
	if alt := r.alternative(h); alt != "" {
		raw = append(raw, alt)
	}
	raw = append(raw, fallbacks...)
	if defaultBase != "" {
		raw = append(raw, defaultBase)
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, base := range raw {
		normalized := r.NormalizeBase(base)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// alternative picks the proxy-aware provider field for the current mode.
func (r *Resolver) alternative(h Hints) string {
	if r.Mode() == ModeProxy {
		return h.CI
	}
	return h.Production
}
