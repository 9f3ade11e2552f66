package script

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/go-resty/resty/v2"

	"github.com/cdnboot/cdnboot/internal/monitoring"
	"github.com/cdnboot/cdnboot/internal/telemetry"
)

// MissingGlobalError reports that a bundle executed but never defined the
// global it declared. This is the loader's own contract violation, distinct
// from a fetch or execution failure.
type MissingGlobalError struct {
	URL    string
	Global string
}

func (e *MissingGlobalError) Error() string {
	return fmt.Sprintf("bundle %s did not define global %q", e.URL, e.Global)
}

// Loader fetches bundles and executes them in the engine.
type Loader struct {
	client  *resty.Client
	engine  *Engine
	metrics *monitoring.Metrics

	// globalRecheck is the grace period before a missing declared global
	// is treated as a contract violation.
	globalRecheck time.Duration
}

// NewLoader creates a bundle loader over the given HTTP client and engine.
func NewLoader(client *resty.Client, engine *Engine, metrics *monitoring.Metrics) *Loader {
	return &Loader{
		client:        client,
		engine:        engine,
		metrics:       metrics,
		globalRecheck: 50 * time.Millisecond,
	}
}

// Engine returns the execution context bundles run in.
func (l *Loader) Engine() *Engine {
	return l.engine
}

// LoadScript fetches a non-module bundle and executes it for its side
// effects on the global namespace.
func (l *Loader) LoadScript(ctx context.Context, url string) error {
	src, err := l.fetch(ctx, url)
	if err != nil {
		l.metrics.IncScriptLoad("fetch_error")
		return err
	}
	if _, err := l.engine.Run(ctx, url, src); err != nil {
		l.metrics.IncScriptLoad("exec_error")
		return err
	}
	l.metrics.IncScriptLoad("success")
	return nil
}

// LoadGlobal loads a bundle and reads the declared global it is expected
// to define. A global still missing after one short recheck is a
// MissingGlobalError.
func (l *Loader) LoadGlobal(ctx context.Context, url, global string) (any, error) {
	if err := l.LoadScript(ctx, url); err != nil {
		return nil, err
	}

	if val, ok := l.engine.Global(global); ok {
		return val, nil
	}
	// The bundle may publish asynchronously through a stubbed scheduler;
	// give it one grace period.
	telemetry.Wait(ctx, l.globalRecheck)
	if val, ok := l.engine.Global(global); ok {
		return val, nil
	}
	return nil, &MissingGlobalError{URL: url, Global: global}
}

// LoadModule loads a CommonJS-style bundle and returns its exports. The
// source is wrapped in a module function so it cannot leak locals into the
// shared namespace.
func (l *Loader) LoadModule(ctx context.Context, url string) (any, error) {
	src, err := l.fetch(ctx, url)
	if err != nil {
		l.metrics.IncScriptLoad("fetch_error")
		return nil, err
	}

	wrapped := "(function() { var module = {exports: {}}; (function(module, exports) {\n" + src + "\n})(module, module.exports); return module.exports; })()"

	val, err := l.engine.Run(ctx, url, wrapped)
	if err != nil {
		l.metrics.IncScriptLoad("exec_error")
		return nil, err
	}
	l.metrics.IncScriptLoad("success")
	if val == nil || goja.IsUndefined(val) {
		return nil, nil
	}
	return val.Export(), nil
}

func (l *Loader) fetch(ctx context.Context, url string) (string, error) {
	resp, err := l.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch bundle %s: %w", url, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("fetch bundle %s: status %d", url, resp.StatusCode())
	}
	return resp.String(), nil
}
