package require

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdnboot/cdnboot/internal/manifest"
	"github.com/cdnboot/cdnboot/internal/registry"
)

func newTestRequire(t *testing.T, m *manifest.Manifest, local LocalLoader, dynamic DynamicLoader) (*Require, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	r, err := Build(Options{
		Registry: reg,
		Manifest: m,
		EntryDir: "src",
		Local:    local,
		Dynamic:  dynamic,
	})
	require.NoError(t, err)
	return r, reg
}

func TestBuild(t *testing.T) {
	_, err := Build(Options{Manifest: &manifest.Manifest{}})
	assert.Error(t, err)
	_, err = Build(Options{Registry: registry.New()})
	assert.Error(t, err)
}

func TestCall(t *testing.T) {
	r, reg := newTestRequire(t, &manifest.Manifest{}, nil, nil)
	reg.Set("react", "react-value")

	t.Run("loaded module returns", func(t *testing.T) {
		v, err := r.Call("react")
		require.NoError(t, err)
		assert.Equal(t, "react-value", v)
	})

	t.Run("absent key fails without loading", func(t *testing.T) {
		_, err := r.Call("lodash")
		var nerr *NotLoadedError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, "lodash", nerr.Key)
		assert.False(t, reg.Has("lodash"))
	})
}

func TestAsync(t *testing.T) {
	ctx := context.Background()
	iconRule := manifest.DynamicRule{
		Prefix:        "icon:",
		Package:       "feather-icons",
		Version:       "4.29.0",
		FilePattern:   "dist/icons/{icon}.svg.js",
		GlobalPattern: "ICON_{icon}",
		Format:        manifest.FormatGlobal,
	}
	m := &manifest.Manifest{DynamicModules: []manifest.DynamicRule{iconRule}}

	t.Run("registry hit short-circuits the loaders", func(t *testing.T) {
		local := func(ctx context.Context, key, fromDir string, req *Require, reg *registry.Registry) (any, error) {
			t.Fatal("local loader should not run")
			return nil, nil
		}
		r, reg := newTestRequire(t, m, local, nil)
		reg.Set("./app.js", "cached")

		v, err := r.Async(ctx, "./app.js", "")
		require.NoError(t, err)
		assert.Equal(t, "cached", v)
	})

	t.Run("local reference dispatches with the entry dir default", func(t *testing.T) {
		var gotKey, gotDir string
		local := func(ctx context.Context, key, fromDir string, req *Require, reg *registry.Registry) (any, error) {
			gotKey, gotDir = key, fromDir
			return "loaded", nil
		}
		r, _ := newTestRequire(t, m, local, nil)

		v, err := r.Async(ctx, "./app.js", "")
		require.NoError(t, err)
		assert.Equal(t, "loaded", v)
		assert.Equal(t, "./app.js", gotKey)
		assert.Equal(t, "src", gotDir)
	})

	t.Run("explicit origin overrides the entry dir", func(t *testing.T) {
		var gotDir string
		local := func(ctx context.Context, key, fromDir string, req *Require, reg *registry.Registry) (any, error) {
			gotDir = fromDir
			return nil, nil
		}
		r, _ := newTestRequire(t, m, local, nil)

		_, err := r.Async(ctx, "../util.js", "src/components")
		require.NoError(t, err)
		assert.Equal(t, "src/components", gotDir)
	})

	t.Run("prefixed key dispatches to its dynamic rule", func(t *testing.T) {
		var gotRule manifest.DynamicRule
		dynamic := func(ctx context.Context, key string, rule manifest.DynamicRule, reg *registry.Registry) (any, error) {
			gotRule = rule
			reg.Set(key, "star-icon")
			return "star-icon", nil
		}
		r, reg := newTestRequire(t, m, nil, dynamic)

		v, err := r.Async(ctx, "icon:star", "")
		require.NoError(t, err)
		assert.Equal(t, "star-icon", v)
		assert.Equal(t, "icon:", gotRule.Prefix)
		assert.True(t, reg.Has("icon:star"))
	})

	t.Run("unrouted key is unregistered", func(t *testing.T) {
		r, _ := newTestRequire(t, m, nil, nil)
		_, err := r.Async(ctx, "lodash", "")
		var uerr *UnregisteredModuleError
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, "lodash", uerr.Key)
	})

	t.Run("ambiguous rules propagate, not unregistered", func(t *testing.T) {
		amb := &manifest.Manifest{DynamicModules: []manifest.DynamicRule{
			{Prefix: "icon:"},
			{Prefix: "icon:s"},
		}}
		r, _ := newTestRequire(t, amb, nil, nil)
		_, err := r.Async(ctx, "icon:star", "")
		require.Error(t, err)
		var uerr *UnregisteredModuleError
		assert.False(t, errors.As(err, &uerr))
	})

	t.Run("dynamic loader failure propagates", func(t *testing.T) {
		boom := errors.New("provider down")
		dynamic := func(ctx context.Context, key string, rule manifest.DynamicRule, reg *registry.Registry) (any, error) {
			return nil, boom
		}
		r, _ := newTestRequire(t, m, nil, dynamic)
		_, err := r.Async(ctx, "icon:star", "")
		assert.ErrorIs(t, err, boom)
	})
}

func TestIsLocalRef(t *testing.T) {
	assert.True(t, IsLocalRef("./app.js"))
	assert.True(t, IsLocalRef("../util.js"))
	assert.False(t, IsLocalRef("react"))
	assert.False(t, IsLocalRef("icon:star"))
	assert.False(t, IsLocalRef(".hidden"))
	assert.False(t, IsLocalRef("/abs/path.js"))
}
