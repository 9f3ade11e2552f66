package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cdnboot/cdnboot/internal/manifest"
	"github.com/cdnboot/cdnboot/internal/page"
	"github.com/cdnboot/cdnboot/internal/registry"
	"github.com/cdnboot/cdnboot/internal/require"
	"github.com/cdnboot/cdnboot/internal/resolve"
	"github.com/cdnboot/cdnboot/internal/script"
)

// ScriptModuleLoader loads declared modules into the registry by resolving
// each descriptor and evaluating its bundle in the execution context.
type ScriptModuleLoader struct {
	Resolver *resolve.Resolver
	Scripts  *script.Loader
}

// LoadModules resolves and evaluates every declared module, registering
// its exports under the module name.
func (l *ScriptModuleLoader) LoadModules(ctx context.Context, modules []manifest.Module, reg *registry.Registry) error {
	for _, m := range modules {
		url, err := l.Resolver.ResolveModuleURL(ctx, m)
		if err != nil {
			return err
		}
		val, err := l.Scripts.LoadModule(ctx, url)
		if err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
		reg.Set(m.Name, val)
	}
	return nil
}

// LoadTools resolves and executes auxiliary tool bundles for their side
// effects on the execution context.
func (l *ScriptModuleLoader) LoadTools(ctx context.Context, tools []manifest.Module) error {
	for _, t := range tools {
		url, err := l.Resolver.ResolveModuleURL(ctx, t)
		if err != nil {
			return err
		}
		if err := l.Scripts.LoadScript(ctx, url); err != nil {
			return fmt.Errorf("tool %q: %w", t.Name, err)
		}
	}
	return nil
}

// FileStyles is the stand-in style compiler: it reads the stylesheet from
// disk and injects it into the page head verbatim. Real SCSS compilation
// lives behind the same interface in the host toolchain.
type FileStyles struct {
	BaseDir  string
	Document *page.Document
}

// CompileSCSS reads the stylesheet source.
func (s *FileStyles) CompileSCSS(ctx context.Context, path string) (string, error) {
	css, err := os.ReadFile(filepath.Join(s.BaseDir, filepath.FromSlash(path)))
	if err != nil {
		return "", err
	}
	return string(css), nil
}

// InjectCSS appends the compiled CSS to the page head.
func (s *FileStyles) InjectCSS(ctx context.Context, css string) error {
	if s.Document != nil {
		s.Document.InjectStyle(css)
	}
	return nil
}

// EngineComponents compiles the entry source by evaluating it in the
// execution context with the require function bound. The entry's exported
// value is the component.
type EngineComponents struct {
	Scripts *script.Loader
	BaseDir string
}

// CompileTSX evaluates the entry module with require bound as a global.
func (c *EngineComponents) CompileTSX(ctx context.Context, path string, req *require.Require, baseDir string) (any, error) {
	engine := c.Scripts.Engine()
	if err := engine.SetGlobal("require", func(key string) (any, error) {
		return req.Call(key)
	}); err != nil {
		return nil, err
	}

	full := filepath.Join(c.BaseDir, filepath.FromSlash(path))
	src, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read entry %q: %w", path, err)
	}

	wrapped := "(function() { var module = {exports: {}}; (function(module, exports) {\n" + string(src) + "\n})(module, module.exports); return module.exports; })()"
	val, err := engine.Run(ctx, path, wrapped)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	return val.Export(), nil
}

// PageRenderer writes the compiled component into the page's root element.
type PageRenderer struct {
	Document *page.Document
}

// Render serializes the component into the root element. String components
// are treated as markup; everything else renders as text.
func (r *PageRenderer) Render(ctx context.Context, m *manifest.Manifest, reg *registry.Registry, component any) error {
	if r.Document == nil {
		return nil
	}
	switch v := component.(type) {
	case string:
		r.Document.WriteRootHTML(v)
	default:
		r.Document.WriteRoot(fmt.Sprint(v))
	}
	return nil
}
