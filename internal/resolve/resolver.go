package resolve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cdnboot/cdnboot/internal/logging"
	"github.com/cdnboot/cdnboot/internal/manifest"
	"github.com/cdnboot/cdnboot/internal/monitoring"
	"github.com/cdnboot/cdnboot/internal/provider"
)

// ResolutionError reports that no provider candidate responded for a
// module. It is fatal for the requesting module load.
type ResolutionError struct {
	Module     string
	Candidates []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no provider candidate responded for module %q (%d tried)", e.Module, len(e.Candidates))
}

// Prober is the existence-check dependency; false means "advance to the
// next candidate".
type Prober interface {
	ProbeURL(ctx context.Context, url string) bool
}

// Resolver turns module descriptors into concrete download URLs by probing
// ranked provider candidates strictly in order.
type Resolver struct {
	providers *provider.Resolver
	prober    Prober
	log       *logging.Logger
	metrics   *monitoring.Metrics
}

// NewResolver creates a module resolver.
func NewResolver(providers *provider.Resolver, prober Prober, log *logging.Logger, metrics *monitoring.Metrics) *Resolver {
	if log == nil {
		log = logging.NewNop()
	}
	return &Resolver{providers: providers, prober: prober, log: log, metrics: metrics}
}

// ResolveModuleURL resolves a declared module to a URL. A descriptor with
// an explicit URL passes through untouched. Otherwise each candidate base
// is combined with the package coordinates and probed sequentially; the
// first responder wins. Candidate order is deterministic for identical
// input.
func (r *Resolver) ResolveModuleURL(ctx context.Context, m manifest.Module) (string, error) {
	if m.URL != "" {
		return m.URL, nil
	}
	if m.Package == "" || m.File == "" {
		r.metrics.IncResolution("invalid")
		return "", fmt.Errorf("module %q needs either url or package+file", m.Name)
	}

	candidates := r.providers.Candidates(provider.Hints{
		Explicit:   m.Provider,
		Production: m.ProductionProvider,
		CI:         m.CIProvider,
	})
	urls := make([]string, 0, len(candidates))
	for _, base := range candidates {
		urls = append(urls, PackageURL(base, m.Package, m.Version, m.File))
	}

	for _, u := range urls {
		if r.prober.ProbeURL(ctx, u) {
			r.metrics.IncResolution("success")
			r.log.Debug("module resolved",
				zap.String("module", m.Name),
				zap.String("url", u),
			)
			return u, nil
		}
	}

	r.metrics.IncResolution("failure")
	return "", &ResolutionError{Module: m.Name, Candidates: urls}
}

// ResolveRuleURL resolves a dynamic rule for the given key suffix: the
// rule's file pattern is expanded with the suffix, then resolved like a
// declared module.
func (r *Resolver) ResolveRuleURL(ctx context.Context, rule manifest.DynamicRule, suffix string) (string, error) {
	m := manifest.Module{
		Name:               rule.Prefix + suffix,
		Package:            rule.Package,
		Version:            rule.Version,
		File:               manifest.ExpandPattern(rule.FilePattern, suffix),
		Provider:           rule.Provider,
		ProductionProvider: rule.ProductionProvider,
		CIProvider:         rule.CIProvider,
	}
	return r.ResolveModuleURL(ctx, m)
}

// PackageURL builds the conventional package file URL:
// base + package + "@" + version + "/" + file.
func PackageURL(base, pkg, version, file string) string {
	return base + pkg + "@" + version + "/" + strings.TrimPrefix(file, "/")
}
