package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"go.uber.org/zap"

	"github.com/cdnboot/cdnboot/internal/location"
	"github.com/cdnboot/cdnboot/internal/logging"
	"github.com/cdnboot/cdnboot/internal/manifest"
	"github.com/cdnboot/cdnboot/internal/monitoring"
	"github.com/cdnboot/cdnboot/internal/page"
	"github.com/cdnboot/cdnboot/internal/provider"
	"github.com/cdnboot/cdnboot/internal/registry"
	"github.com/cdnboot/cdnboot/internal/require"
	"github.com/cdnboot/cdnboot/internal/telemetry"
)

// State tracks the bootstrap lifecycle.
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateBootstrapping
	StateRendered
	StateErrored
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateBootstrapping:
		return "bootstrapping"
	case StateRendered:
		return "rendered"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ErrAlreadyInitialized reports Initialize being called twice. Re-entry is
// a programming error and fails fast.
var ErrAlreadyInitialized = errors.New("bootstrapper already initialized")

// Config wires the bootstrapper's collaborators.
type Config struct {
	Cache     *manifest.Cache
	Fetch     manifest.FetchFunc
	Providers *provider.Resolver
	Telemetry *telemetry.Client
	Log       *logging.Logger
	Metrics   *monitoring.Metrics
	Location  location.Location
	Document  *page.Document

	Styles     StyleCompiler
	Components ComponentCompiler
	Renderer   Renderer
	Modules    ModuleLoader
	Tools      ToolLoader
	Local      require.LocalLoader
	Dynamic    require.DynamicLoader
}

// Bootstrapper orchestrates the startup sequence: configuration
// acquisition, provider setup, asset preparation, module preparation, and
// the compile-and-render handoff. A failed bootstrap is terminal for the
// session and is reported, never retried.
type Bootstrapper struct {
	mu    sync.Mutex
	state State
	cfg   Config
}

// New creates a bootstrapper in the created state.
func New() *Bootstrapper {
	return &Bootstrapper{state: StateCreated}
}

// State returns the current lifecycle state.
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Initialize wires collaborators. Calling it more than once is fatal.
func (b *Bootstrapper) Initialize(cfg Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateCreated {
		return ErrAlreadyInitialized
	}
	if cfg.Cache == nil || cfg.Fetch == nil || cfg.Providers == nil {
		return errors.New("bootstrapper needs cache, fetch, and providers")
	}
	if cfg.Log == nil {
		cfg.Log = logging.NewNop()
	}

	b.cfg = cfg
	b.state = StateInitialized
	return nil
}

// Bootstrap runs the startup sequence. It never returns an error: every
// failure is funneled into error handling, which logs the cause and
// renders a minimal message into the root element. The terminal state is
// returned for observability.
func (b *Bootstrapper) Bootstrap(ctx context.Context) State {
	b.mu.Lock()
	if b.state != StateInitialized {
		err := fmt.Errorf("bootstrap called in state %q", b.state)
		b.state = StateErrored
		b.mu.Unlock()
		b.handleBootstrapError(ctx, err)
		return StateErrored
	}
	b.state = StateBootstrapping
	b.mu.Unlock()

	terminal := StateRendered
	if err := b.run(ctx); err != nil {
		b.handleBootstrapError(ctx, err)
		terminal = StateErrored
	}

	b.mu.Lock()
	b.state = terminal
	b.mu.Unlock()

	b.cfg.Metrics.IncBootstrap(terminal.String())
	return terminal
}

func (b *Bootstrapper) run(ctx context.Context) error {
	m, err := b.loadConfig(ctx)
	if err != nil {
		return err
	}

	b.configureProviders(m)

	if err := b.prepareAssets(ctx, m); err != nil {
		return err
	}

	reg, req, err := b.prepareModules(ctx, m)
	if err != nil {
		return err
	}

	return b.compileAndRender(ctx, m, reg, req)
}

// loadConfig fetches the manifest through the shared cache slot: a cached
// value is returned immediately, an in-flight fetch is joined, and only
// the first caller performs the request.
func (b *Bootstrapper) loadConfig(ctx context.Context) (*manifest.Manifest, error) {
	return b.cfg.Cache.GetOrFetch(ctx, b.cfg.Fetch)
}

// configureProviders applies the manifest's provider settings, then
// evaluates and enables CI logging.
func (b *Bootstrapper) configureProviders(m *manifest.Manifest) {
	b.cfg.Providers.SetFallbackProviders(m.FallbackProviders)
	b.cfg.Providers.SetDefaultBase(m.Providers.Default)
	b.cfg.Providers.SetAliases(m.Providers.Aliases)
	b.cfg.Providers.SetLocation(b.cfg.Location)

	if b.cfg.Telemetry != nil {
		enabled := telemetry.DetectCILogging(m.CI, &b.cfg.Location)
		b.cfg.Telemetry.SetCILoggingEnabled(enabled)
		b.cfg.Log.Debug("ci logging evaluated", zap.Bool("enabled", enabled))
	}
}

// prepareAssets loads auxiliary tool bundles, compiles the stylesheet, and
// injects the result.
func (b *Bootstrapper) prepareAssets(ctx context.Context, m *manifest.Manifest) error {
	if b.cfg.Tools != nil && len(m.Tools) > 0 {
		if err := b.cfg.Tools.LoadTools(ctx, m.Tools); err != nil {
			return fmt.Errorf("prepare assets: %w", err)
		}
	}

	if m.Styles == "" || b.cfg.Styles == nil {
		return nil
	}
	css, err := b.cfg.Styles.CompileSCSS(ctx, m.Styles)
	if err != nil {
		return fmt.Errorf("compile styles %q: %w", m.Styles, err)
	}
	if err := b.cfg.Styles.InjectCSS(ctx, css); err != nil {
		return fmt.Errorf("inject styles: %w", err)
	}
	return nil
}

// prepareModules loads declared registry entries, derives the entry
// directory from the entry file's path, and builds the require function.
func (b *Bootstrapper) prepareModules(ctx context.Context, m *manifest.Manifest) (*registry.Registry, *require.Require, error) {
	reg := registry.New()

	if b.cfg.Modules != nil {
		if err := b.cfg.Modules.LoadModules(ctx, m.Modules, reg); err != nil {
			return nil, nil, fmt.Errorf("load modules: %w", err)
		}
	}

	req, err := require.Build(require.Options{
		Registry: reg,
		Manifest: m,
		EntryDir: path.Dir(m.Entry),
		Local:    b.cfg.Local,
		Dynamic:  b.cfg.Dynamic,
	})
	if err != nil {
		return nil, nil, err
	}

	b.cfg.Log.Info("modules prepared",
		zap.Int("loaded", reg.Len()),
		zap.String("session", reg.ID()),
	)
	return reg, req, nil
}

// compileAndRender compiles the entry source and hands the component to
// the host render callback.
func (b *Bootstrapper) compileAndRender(ctx context.Context, m *manifest.Manifest, reg *registry.Registry, req *require.Require) error {
	if m.Entry == "" {
		return errors.New("manifest declares no entry")
	}
	if b.cfg.Components == nil || b.cfg.Renderer == nil {
		return errors.New("component compiler and renderer are required")
	}

	component, err := b.cfg.Components.CompileTSX(ctx, m.Entry, req, req.EntryDir())
	if err != nil {
		return fmt.Errorf("compile entry %q: %w", m.Entry, err)
	}
	if err := b.cfg.Renderer.Render(ctx, m, reg, component); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// handleBootstrapError is the single place failures are swallowed: the
// cause goes to the logger and telemetry, and the root element gets a
// short inline message when present. It never fails further.
func (b *Bootstrapper) handleBootstrapError(ctx context.Context, err error) {
	log := b.cfg.Log
	if log == nil {
		log = logging.NewNop()
	}
	log.Error("bootstrap failed", zap.Error(err))
	b.cfg.Telemetry.LogClient(ctx, "bootstrap_failed", err, "error")

	if b.cfg.Document != nil {
		b.cfg.Document.WriteRoot("Bootstrap error: " + err.Error())
	}
}
