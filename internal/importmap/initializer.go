package importmap

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/cdnboot/cdnboot/internal/logging"
	"github.com/cdnboot/cdnboot/internal/manifest"
	"github.com/cdnboot/cdnboot/internal/page"
	"github.com/cdnboot/cdnboot/internal/provider"
	"github.com/cdnboot/cdnboot/internal/resolve"
)

// Initializer publishes the specifier-to-URL resolution table into the
// shell page before the module graph executes. It runs once per page load;
// duplicate Run calls return the first outcome. The manifest comes through
// the shared configuration cache, so the round-trip is shared with the
// bootstrapper.
type Initializer struct {
	cache     *manifest.Cache
	fetch     manifest.FetchFunc
	providers *provider.Resolver
	resolver  *resolve.Resolver
	log       *logging.Logger

	once sync.Once
	err  error
}

// New creates an import map initializer.
func New(cache *manifest.Cache, fetch manifest.FetchFunc, providers *provider.Resolver, resolver *resolve.Resolver, log *logging.Logger) *Initializer {
	if log == nil {
		log = logging.NewNop()
	}
	return &Initializer{
		cache:     cache,
		fetch:     fetch,
		providers: providers,
		resolver:  resolver,
		log:       log,
	}
}

// Run fills the page's import-map placeholder. A page without a
// placeholder is a no-op. Any module that fails to resolve fails the whole
// initialization, naming the module.
func (i *Initializer) Run(ctx context.Context, doc *page.Document) error {
	i.once.Do(func() {
		i.err = i.run(ctx, doc)
	})
	return i.err
}

func (i *Initializer) run(ctx context.Context, doc *page.Document) error {
	if !doc.HasPlaceholder() {
		i.log.Debug("no import map placeholder, skipping")
		return nil
	}

	m, err := i.cache.GetOrFetch(ctx, i.fetch)
	if err != nil {
		return fmt.Errorf("import map: %w", err)
	}

	i.providers.SetFallbackProviders(m.FallbackProviders)
	i.providers.SetDefaultBase(m.Providers.Default)
	i.providers.SetAliases(m.Providers.Aliases)

	imports, err := i.buildImports(ctx, m)
	if err != nil {
		return err
	}

	payload, err := sonic.Marshal(map[string]any{"imports": imports})
	if err != nil {
		return fmt.Errorf("import map: serialize: %w", err)
	}
	if err := doc.WriteImportMap(string(payload)); err != nil {
		return fmt.Errorf("import map: %w", err)
	}

	i.log.Info("import map published", zap.Int("specifiers", len(imports)))
	return nil
}

func (i *Initializer) buildImports(ctx context.Context, m *manifest.Manifest) (map[string]string, error) {
	imports := make(map[string]string, len(m.Modules))
	for _, mod := range m.Modules {
		url := mod.URL
		if url == "" {
			resolved, err := i.resolver.ResolveModuleURL(ctx, mod)
			if err != nil {
				return nil, fmt.Errorf("import map: module %q did not resolve: %w", mod.Name, err)
			}
			url = resolved
		}
		if url == "" {
			return nil, fmt.Errorf("import map: module %q resolved to an empty URL", mod.Name)
		}
		for _, spec := range mod.Specifiers() {
			imports[spec] = url
		}
	}
	return imports, nil
}
