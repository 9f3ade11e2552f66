package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/cdnboot/cdnboot/internal/logging"
)

// Engine wraps a goja runtime serving as the execution context that loaded
// bundles run in. Bundles mutate the global namespace; the engine exposes
// declared globals back to Go.
type Engine struct {
	vm      *goja.Runtime
	log     *logging.Logger
	timeout time.Duration
	mu      sync.Mutex
}

// NewEngine creates an execution context. The timeout bounds each script
// execution; zero means no interrupt.
func NewEngine(log *logging.Logger, timeout time.Duration) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	e := &Engine{
		vm:      goja.New(),
		log:     log,
		timeout: timeout,
	}
	e.setupGlobals()
	return e
}

// Run executes source in the context. The name tags interrupt and error
// messages, usually the bundle URL.
func (e *Engine) Run(ctx context.Context, name, src string) (goja.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A previous run's watchdog may have fired after its script finished;
	// the stale interrupt must not poison this run.
	e.vm.ClearInterrupt()

	done := make(chan struct{})
	defer close(done)

	if e.timeout > 0 {
		timer := time.NewTimer(e.timeout)
		go func() {
			defer timer.Stop()
			select {
			case <-timer.C:
				e.vm.Interrupt("execution timeout exceeded")
			case <-ctx.Done():
				e.vm.Interrupt("context cancelled")
			case <-done:
			}
		}()
	}

	val, err := e.vm.RunScript(name, src)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	return val, nil
}

// Global reads a declared global, reporting whether it is defined.
func (e *Engine) Global(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	val := e.vm.GlobalObject().Get(name)
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, false
	}
	return val.Export(), true
}

// SetGlobal publishes a Go value into the execution context.
func (e *Engine) SetGlobal(name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.Set(name, value)
}

// setupGlobals wires a console backed by the runtime logger and stubs the
// scheduling functions bundles occasionally reference.
func (e *Engine) setupGlobals() {
	console := e.vm.NewObject()
	console.Set("log", e.makeConsoleFunc(func(msg string) { e.log.Info(msg, zap.String("source", "script")) }))
	console.Set("info", e.makeConsoleFunc(func(msg string) { e.log.Info(msg, zap.String("source", "script")) }))
	console.Set("warn", e.makeConsoleFunc(func(msg string) { e.log.Warn(msg, zap.String("source", "script")) }))
	console.Set("error", e.makeConsoleFunc(func(msg string) { e.log.Error(msg, zap.String("source", "script")) }))
	e.vm.Set("console", console)

	e.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	e.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
}

func (e *Engine) makeConsoleFunc(emit func(string)) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}
		emit(msg)
		return goja.Undefined()
	}
}
