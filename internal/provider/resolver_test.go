package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cdnboot/cdnboot/internal/location"
)

func TestNormalizeBase(t *testing.T) {
	r := NewResolver()
	r.SetAliases(map[string]string{"jsdelivr": "https://cdn.jsdelivr.net/npm"})

	t.Run("adds scheme and trailing separator", func(t *testing.T) {
		assert.Equal(t, "https://unpkg.com/", r.NormalizeBase("unpkg.com"))
	})

	t.Run("substitutes alias before treating as hostname", func(t *testing.T) {
		assert.Equal(t, "https://cdn.jsdelivr.net/npm/", r.NormalizeBase("jsdelivr"))
	})

	t.Run("idempotent", func(t *testing.T) {
		once := r.NormalizeBase("cdn.example.com/base")
		assert.Equal(t, once, r.NormalizeBase(once))
	})

	t.Run("preserves existing scheme", func(t *testing.T) {
		assert.Equal(t, "http://cdn.example.com/", r.NormalizeBase("http://cdn.example.com"))
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		assert.Equal(t, "", r.NormalizeBase(""))
	})
}

func TestMode(t *testing.T) {
	t.Run("loopback hostnames classify as proxy", func(t *testing.T) {
		for _, host := range []string{"localhost", "127.0.0.1"} {
			r := NewResolver()
			r.SetLocation(location.Location{Hostname: host})
			assert.Equal(t, ModeProxy, r.Mode(), host)
		}
	})

	t.Run("public hostname classifies as direct", func(t *testing.T) {
		r := NewResolver()
		r.SetLocation(location.Location{Hostname: "app.example.com"})
		assert.Equal(t, ModeDirect, r.Mode())
	})

	t.Run("explicit override wins", func(t *testing.T) {
		r := NewResolver()
		r.SetLocation(location.Location{Hostname: "localhost"})
		direct := ModeDirect
		r.SetModeOverride(&direct)
		assert.Equal(t, ModeDirect, r.Mode())
	})
}

func TestResolveProvider(t *testing.T) {
	t.Run("explicit provider wins regardless of mode", func(t *testing.T) {
		for _, host := range []string{"localhost", "app.example.com"} {
			r := NewResolver()
			r.SetLocation(location.Location{Hostname: host})
			r.SetDefaultBase("https://default.example.com/")

			base, err := r.ResolveProvider(Hints{
				Explicit:   "https://explicit.example.com/",
				Production: "https://prod.example.com/",
				CI:         "https://ci.example.com/",
			})
			assert.NoError(t, err)
			assert.Equal(t, "https://explicit.example.com/", base)
		}
	})

	t.Run("proxy mode selects ci provider", func(t *testing.T) {
		r := NewResolver()
		r.SetLocation(location.Location{Hostname: "localhost"})
		base, err := r.ResolveProvider(Hints{
			Production: "https://prod.example.com/",
			CI:         "https://ci-mirror.example.com/",
		})
		assert.NoError(t, err)
		assert.Equal(t, "https://ci-mirror.example.com/", base)
	})

	t.Run("direct mode selects production provider", func(t *testing.T) {
		r := NewResolver()
		r.SetLocation(location.Location{Hostname: "app.example.com"})
		base, err := r.ResolveProvider(Hints{
			Production: "https://prod.example.com/",
			CI:         "https://ci-mirror.example.com/",
		})
		assert.NoError(t, err)
		assert.Equal(t, "https://prod.example.com/", base)
	})

	t.Run("falls through to default base", func(t *testing.T) {
		r := NewResolver()
		r.SetDefaultBase("default.example.com")
		base, err := r.ResolveProvider(Hints{})
		assert.NoError(t, err)
		assert.Equal(t, "https://default.example.com/", base)
	})

	t.Run("fails when nothing resolves", func(t *testing.T) {
		r := NewResolver()
		_, err := r.ResolveProvider(Hints{})
		assert.ErrorIs(t, err, ErrNoProvider)
	})
}

func TestCandidates(t *testing.T) {
	newConfigured := func() *Resolver {
		r := NewResolver()
		r.SetFallbackProviders([]string{"https://cdn1/"})
		r.SetDefaultBase("https://cdn2/")
		return r
	}

	t.Run("fallbacks rank before the default base", func(t *testing.T) {
		r := newConfigured()
		assert.Equal(t, []string{"https://cdn1/", "https://cdn2/"}, r.Candidates(Hints{}))
	})

	t.Run("explicit provider ranks first", func(t *testing.T) {
		r := newConfigured()
		got := r.Candidates(Hints{Explicit: "https://explicit/"})
		assert.Equal(t, []string{"https://explicit/", "https://cdn1/", "https://cdn2/"}, got)
	})

	t.Run("proxy-aware alternative ranks after explicit", func(t *testing.T) {
		r := newConfigured()
		got := r.Candidates(Hints{Explicit: "https://explicit/", Production: "https://prod/"})
		assert.Equal(t, []string{"https://explicit/", "https://prod/", "https://cdn1/", "https://cdn2/"}, got)
	})

	t.Run("duplicates collapse preserving rank", func(t *testing.T) {
		r := newConfigured()
		got := r.Candidates(Hints{Explicit: "https://cdn2/"})
		assert.Equal(t, []string{"https://cdn2/", "https://cdn1/"}, got)
	})

	t.Run("deterministic across repeated calls", func(t *testing.T) {
		r := newConfigured()
		h := Hints{Production: "https://prod/"}
		first := r.Candidates(h)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, r.Candidates(h))
		}
	})
}
