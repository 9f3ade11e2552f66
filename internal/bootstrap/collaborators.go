package bootstrap

import (
	"context"

	"github.com/cdnboot/cdnboot/internal/manifest"
	"github.com/cdnboot/cdnboot/internal/registry"
	"github.com/cdnboot/cdnboot/internal/require"
)

// StyleCompiler compiles and injects the application stylesheet. External
// collaborator; the bootstrapper only sequences it.
type StyleCompiler interface {
	CompileSCSS(ctx context.Context, path string) (string, error)
	InjectCSS(ctx context.Context, css string) error
}

// ComponentCompiler compiles the entry source into a renderable component.
// External collaborator behind a narrow interface.
type ComponentCompiler interface {
	CompileTSX(ctx context.Context, path string, req *require.Require, baseDir string) (any, error)
}

// Renderer hands the compiled component to the host framework.
type Renderer interface {
	Render(ctx context.Context, m *manifest.Manifest, reg *registry.Registry, component any) error
}

// ModuleLoader loads the manifest's declared modules into the session
// registry.
type ModuleLoader interface {
	LoadModules(ctx context.Context, modules []manifest.Module, reg *registry.Registry) error
}

// ToolLoader prepares auxiliary tool bundles before compilation begins.
type ToolLoader interface {
	LoadTools(ctx context.Context, tools []manifest.Module) error
}
