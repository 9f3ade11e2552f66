package require

import (
	"context"
	"errors"
	"strings"

	"github.com/cdnboot/cdnboot/internal/manifest"
	"github.com/cdnboot/cdnboot/internal/registry"
)

// LocalLoader loads a locally-relative source reference. It receives the
// require function so compiled local modules can resolve their own
// dependencies, and the registry so it can record what it loaded.
type LocalLoader func(ctx context.Context, key, fromDir string, req *Require, reg *registry.Registry) (any, error)

// DynamicLoader loads a prefix-routed dynamic module under its matched
// rule and records the result in the registry.
type DynamicLoader func(ctx context.Context, key string, rule manifest.DynamicRule, reg *registry.Registry) (any, error)

// Options wires a require function.
type Options struct {
	Registry *registry.Registry
	Manifest *manifest.Manifest
	EntryDir string
	Local    LocalLoader
	Dynamic  DynamicLoader
}

// Require resolves module keys for application code. Call is the
// synchronous, registry-only path; Async additionally dispatches to the
// local and dynamic loaders. The dispatcher itself never mutates the
// registry.
type Require struct {
	registry *registry.Registry
	manifest *manifest.Manifest
	entryDir string
	local    LocalLoader
	dynamic  DynamicLoader
}

// Build constructs the require function for one session.
func Build(opts Options) (*Require, error) {
	if opts.Registry == nil {
		return nil, errors.New("require: registry is required")
	}
	if opts.Manifest == nil {
		return nil, errors.New("require: manifest is required")
	}
	return &Require{
		registry: opts.Registry,
		manifest: opts.Manifest,
		entryDir: opts.EntryDir,
		local:    opts.Local,
		dynamic:  opts.Dynamic,
	}, nil
}

// Call returns an already-loaded module. Absent keys fail with
// NotLoadedError; nothing is loaded on this path.
func (r *Require) Call(key string) (any, error) {
	if v, ok := r.registry.Get(key); ok {
		return v, nil
	}
	return nil, &NotLoadedError{Key: key}
}

// Async resolves a key, loading it when necessary: a registry hit is
// returned as-is; a locally-relative reference goes to the local loader;
// a key routed by a dynamic module rule goes to the dynamic loader; and
// anything else fails with UnregisteredModuleError.
func (r *Require) Async(ctx context.Context, key string, fromDir string) (any, error) {
	if v, ok := r.registry.Get(key); ok {
		return v, nil
	}

	if IsLocalRef(key) {
		if r.local == nil {
			return nil, errors.New("require: no local module loader configured")
		}
		dir := fromDir
		if dir == "" {
			dir = r.entryDir
		}
		return r.local(ctx, key, dir, r, r.registry)
	}

	rule, err := r.manifest.Rule(key)
	if errors.Is(err, manifest.ErrNoRule) {
		return nil, &UnregisteredModuleError{Key: key}
	}
	if err != nil {
		return nil, err
	}
	if r.dynamic == nil {
		return nil, errors.New("require: no dynamic module loader configured")
	}
	return r.dynamic(ctx, key, rule, r.registry)
}

// EntryDir returns the directory async lookups resolve local references
// against when no explicit origin is given.
func (r *Require) EntryDir() string {
	return r.entryDir
}

// IsLocalRef classifies a key as a locally-relative source reference.
func IsLocalRef(key string) bool {
	return strings.HasPrefix(key, "./") || strings.HasPrefix(key, "../")
}
