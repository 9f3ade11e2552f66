package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdnboot/cdnboot/internal/manifest"
	"github.com/cdnboot/cdnboot/internal/provider"
)

// fakeProber responds true only for URLs in its alive set and records the
// order it was asked in.
type fakeProber struct {
	alive  map[string]bool
	probed []string
}

func (f *fakeProber) ProbeURL(_ context.Context, url string) bool {
	f.probed = append(f.probed, url)
	return f.alive[url]
}

func newTestResolver(fp *fakeProber, configure func(*provider.Resolver)) *Resolver {
	providers := provider.NewResolver()
	if configure != nil {
		configure(providers)
	}
	return NewResolver(providers, fp, nil, nil)
}

func TestResolveModuleURL(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit url passes through without probing", func(t *testing.T) {
		fp := &fakeProber{}
		r := newTestResolver(fp, nil)

		got, err := r.ResolveModuleURL(ctx, manifest.Module{Name: "lib", URL: "https://pinned.example.com/lib.js"})
		require.NoError(t, err)
		assert.Equal(t, "https://pinned.example.com/lib.js", got)
		assert.Empty(t, fp.probed)
	})

	t.Run("first responding candidate wins", func(t *testing.T) {
		fp := &fakeProber{alive: map[string]bool{
			"https://cdn1/pkg@1.0.0/f.js": true,
		}}
		r := newTestResolver(fp, func(p *provider.Resolver) {
			p.SetFallbackProviders([]string{"https://cdn1/"})
			p.SetDefaultBase("https://cdn2/")
		})

		got, err := r.ResolveModuleURL(ctx, manifest.Module{
			Name: "lib", Package: "pkg", Version: "1.0.0", File: "f.js",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn1/pkg@1.0.0/f.js", got)
		assert.Equal(t, []string{"https://cdn1/pkg@1.0.0/f.js"}, fp.probed)
	})

	t.Run("failed fallback advances to the default base", func(t *testing.T) {
		fp := &fakeProber{alive: map[string]bool{
			"https://cdn2/pkg@1.0.0/f.js": true,
		}}
		r := newTestResolver(fp, func(p *provider.Resolver) {
			p.SetFallbackProviders([]string{"https://cdn1/"})
			p.SetDefaultBase("https://cdn2/")
		})

		got, err := r.ResolveModuleURL(ctx, manifest.Module{
			Name: "lib", Package: "pkg", Version: "1.0.0", File: "f.js",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn2/pkg@1.0.0/f.js", got)
		assert.Equal(t, []string{
			"https://cdn1/pkg@1.0.0/f.js",
			"https://cdn2/pkg@1.0.0/f.js",
		}, fp.probed)
	})

	t.Run("exhausted candidates yield a resolution error", func(t *testing.T) {
		fp := &fakeProber{}
		r := newTestResolver(fp, func(p *provider.Resolver) {
			p.SetFallbackProviders([]string{"https://cdn1/"})
			p.SetDefaultBase("https://cdn2/")
		})

		_, err := r.ResolveModuleURL(ctx, manifest.Module{
			Name: "lib", Package: "pkg", Version: "1.0.0", File: "f.js",
		})
		var rerr *ResolutionError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "lib", rerr.Module)
		assert.Len(t, rerr.Candidates, 2)
	})

	t.Run("incomplete descriptor is rejected", func(t *testing.T) {
		r := newTestResolver(&fakeProber{}, nil)
		_, err := r.ResolveModuleURL(ctx, manifest.Module{Name: "lib", Package: "pkg"})
		assert.Error(t, err)
	})

	t.Run("candidate order is deterministic", func(t *testing.T) {
		r := newTestResolver(&fakeProber{}, func(p *provider.Resolver) {
			p.SetFallbackProviders([]string{"https://cdn1/", "https://cdn3/"})
			p.SetDefaultBase("https://cdn2/")
		})
		m := manifest.Module{Name: "lib", Package: "pkg", Version: "1.0.0", File: "f.js"}

		var first []string
		for i := 0; i < 5; i++ {
			fp := &fakeProber{}
			r.prober = fp
			_, err := r.ResolveModuleURL(ctx, m)
			assert.Error(t, err)
			if first == nil {
				first = fp.probed
				continue
			}
			assert.Equal(t, first, fp.probed)
		}
	})
}

func TestResolveRuleURL(t *testing.T) {
	fp := &fakeProber{alive: map[string]bool{
		"https://cdn1/feather-icons@4.29.0/dist/icons/star.svg.js": true,
	}}
	r := newTestResolver(fp, func(p *provider.Resolver) {
		p.SetDefaultBase("https://cdn1/")
	})

	rule := manifest.DynamicRule{
		Prefix:      "icon:",
		Package:     "feather-icons",
		Version:     "4.29.0",
		FilePattern: "dist/icons/{icon}.svg.js",
	}
	got, err := r.ResolveRuleURL(context.Background(), rule, "star")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn1/feather-icons@4.29.0/dist/icons/star.svg.js", got)
}

func TestPackageURL(t *testing.T) {
	assert.Equal(t, "https://cdn1/pkg@1.0.0/f.js", PackageURL("https://cdn1/", "pkg", "1.0.0", "f.js"))
	assert.Equal(t, "https://cdn1/pkg@1.0.0/dist/f.js", PackageURL("https://cdn1/", "pkg", "1.0.0", "/dist/f.js"))
}
