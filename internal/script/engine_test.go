package script

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("evaluates source", func(t *testing.T) {
		e := NewEngine(nil, time.Second)
		v, err := e.Run(ctx, "test.js", "1 + 2")
		require.NoError(t, err)
		assert.Equal(t, int64(3), v.ToInteger())
	})

	t.Run("syntax error surfaces", func(t *testing.T) {
		e := NewEngine(nil, time.Second)
		_, err := e.Run(ctx, "bad.js", "var = ;")
		assert.Error(t, err)
	})

	t.Run("runaway script is interrupted", func(t *testing.T) {
		e := NewEngine(nil, 50*time.Millisecond)
		start := time.Now()
		_, err := e.Run(ctx, "loop.js", "while (true) {}")
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("cancellation interrupts", func(t *testing.T) {
		e := NewEngine(nil, 10*time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		_, err := e.Run(ctx, "loop.js", "while (true) {}")
		assert.Error(t, err)
	})
}

func TestEngineGlobals(t *testing.T) {
	ctx := context.Background()

	t.Run("declared global is readable", func(t *testing.T) {
		e := NewEngine(nil, time.Second)
		_, err := e.Run(ctx, "lib.js", `var LIB = {version: "1.0.0"};`)
		require.NoError(t, err)

		v, ok := e.Global("LIB")
		require.True(t, ok)
		exported, ok := v.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "1.0.0", exported["version"])
	})

	t.Run("undefined and null globals are absent", func(t *testing.T) {
		e := NewEngine(nil, time.Second)
		_, err := e.Run(ctx, "lib.js", `var NOPE = null;`)
		require.NoError(t, err)

		_, ok := e.Global("NEVER_SET")
		assert.False(t, ok)
		_, ok = e.Global("NOPE")
		assert.False(t, ok)
	})

	t.Run("go value published into the context", func(t *testing.T) {
		e := NewEngine(nil, time.Second)
		called := false
		require.NoError(t, e.SetGlobal("notify", func() { called = true }))
		_, err := e.Run(ctx, "call.js", "notify()")
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("console and scheduler stubs exist", func(t *testing.T) {
		e := NewEngine(nil, time.Second)
		_, err := e.Run(ctx, "console.js", `console.log("hi", 42); console.warn("w"); setTimeout(function(){}, 0); setInterval(function(){}, 0);`)
		assert.NoError(t, err)
	})
}
