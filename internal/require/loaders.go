package require

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cdnboot/cdnboot/internal/manifest"
	"github.com/cdnboot/cdnboot/internal/registry"
	"github.com/cdnboot/cdnboot/internal/resolve"
	"github.com/cdnboot/cdnboot/internal/script"
)

// formatLoader loads one dynamic bundle format.
type formatLoader func(ctx context.Context, key string, rule manifest.DynamicRule, url string, scripts *script.Loader) (any, error)

// formatLoaders is the dispatch table over dynamic rule formats. An
// unlisted format is a manifest error, not a fallback.
var formatLoaders = map[manifest.Format]formatLoader{
	manifest.FormatGlobal: loadGlobalFormat,
	manifest.FormatModule: loadModuleFormat,
}

// NewDynamicLoader builds the production dynamic module loader: the rule's
// file pattern is resolved against ranked providers, the bundle is
// executed, and the value is read per the rule's format. The loaded value
// is recorded in the registry under the requested key.
func NewDynamicLoader(resolver *resolve.Resolver, scripts *script.Loader) DynamicLoader {
	return func(ctx context.Context, key string, rule manifest.DynamicRule, reg *registry.Registry) (any, error) {
		load, ok := formatLoaders[rule.Format]
		if !ok {
			return nil, fmt.Errorf("dynamic rule %q has unsupported format %q", rule.Prefix, rule.Format)
		}

		suffix := rule.Suffix(key)
		url, err := resolver.ResolveRuleURL(ctx, rule, suffix)
		if err != nil {
			return nil, err
		}

		val, err := load(ctx, key, rule, url, scripts)
		if err != nil {
			return nil, err
		}
		reg.Set(key, val)
		return val, nil
	}
}

func loadGlobalFormat(ctx context.Context, key string, rule manifest.DynamicRule, url string, scripts *script.Loader) (any, error) {
	global := manifest.ExpandPattern(rule.GlobalPattern, rule.Suffix(key))
	if global == "" {
		return nil, fmt.Errorf("dynamic rule %q has no global pattern", rule.Prefix)
	}
	return scripts.LoadGlobal(ctx, url, global)
}

func loadModuleFormat(ctx context.Context, key string, rule manifest.DynamicRule, url string, scripts *script.Loader) (any, error) {
	return scripts.LoadModule(ctx, url)
}

// NewLocalLoader builds the production local module loader: the relative
// reference is joined to its origin directory, read from disk, and
// evaluated as a module in the execution context. The loaded value is
// recorded under the original key.
func NewLocalLoader(scripts *script.Loader) LocalLoader {
	return func(ctx context.Context, key, fromDir string, req *Require, reg *registry.Registry) (any, error) {
		path := filepath.Join(fromDir, filepath.FromSlash(key))
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("local module %q: %w", key, err)
		}

		val, err := evalModuleSource(ctx, scripts, path, string(src))
		if err != nil {
			return nil, err
		}
		reg.Set(key, val)
		return val, nil
	}
}

// evalModuleSource evaluates local source the same way remote module
// bundles are evaluated.
func evalModuleSource(ctx context.Context, scripts *script.Loader, name, src string) (any, error) {
	wrapped := "(function() { var module = {exports: {}}; (function(module, exports) {\n" + src + "\n})(module, module.exports); return module.exports; })()"
	val, err := scripts.Engine().Run(ctx, name, wrapped)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	return val.Export(), nil
}
