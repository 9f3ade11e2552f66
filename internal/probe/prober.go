package probe

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/cdnboot/cdnboot/internal/monitoring"
	"github.com/cdnboot/cdnboot/internal/telemetry"
)

// Options configures probe behavior.
type Options struct {
	// Retries is the number of additional attempts after the first
	// network failure.
	Retries int
	// Backoff is the cooperative delay between attempts.
	Backoff time.Duration
	// RPS rate-limits probe traffic; zero means unlimited.
	RPS float64
	// Breaker configures per-provider health tracking.
	Breaker BreakerSettings
}

// Prober performs bounded-retry existence checks against candidate URLs.
// A probe never returns an error: exhausted attempts collapse to false and
// the caller advances to the next candidate.
type Prober struct {
	client    *resty.Client
	limiter   *rate.Limiter
	retries   int
	backoff   time.Duration
	breakers  *breakerSet
	telemetry *telemetry.Client
	metrics   *monitoring.Metrics
}

// NewProber creates a prober over the given HTTP client.
func NewProber(client *resty.Client, opts Options, tel *telemetry.Client, metrics *monitoring.Metrics) *Prober {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), int(opts.RPS)+1)
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Prober{
		client:    client,
		limiter:   limiter,
		retries:   opts.Retries,
		backoff:   opts.Backoff,
		breakers:  newBreakerSet(opts.Breaker),
		telemetry: tel,
		metrics:   metrics,
	}
}

// ShouldRetryStatus reports whether a response status is worth another
// attempt: server errors and throttling, nothing else.
func (p *Prober) ShouldRetryStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// ProbeURL checks whether a URL exists. It sends a lightweight HEAD
// request, falls back to a single full GET on a method-not-allowed-class
// response, and retries network failures and retryable statuses up to the
// bound with backoff. Each exhausted attempt is reported to telemetry.
func (p *Prober) ProbeURL(ctx context.Context, target string) bool {
	host := hostOf(target)
	brk := p.breakers.get(host)
	if !brk.Allow() {
		p.metrics.IncProbe("skipped")
		return false
	}

	ok := p.probe(ctx, target)
	brk.Record(ok)
	return ok
}

func (p *Prober) probe(ctx context.Context, target string) bool {
	for attempt := 0; ; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return false
		}

		start := time.Now()
		ok, retryable := p.attempt(ctx, target)
		if ok {
			p.metrics.IncProbe("success")
			p.metrics.ObserveProbe("success", time.Since(start))
			return true
		}
		p.metrics.ObserveProbe("failure", time.Since(start))

		if !retryable || attempt >= p.retries {
			p.metrics.IncProbe("failure")
			p.telemetry.LogClient(ctx, "probe_exhausted", map[string]any{
				"url":      target,
				"attempts": attempt + 1,
			}, "warn")
			return false
		}

		p.metrics.IncProbe("retry")
		telemetry.Wait(ctx, p.backoff)
	}
}

// attempt runs one probe round. The second return value reports whether
// the failure is worth retrying.
func (p *Prober) attempt(ctx context.Context, target string) (ok, retryable bool) {
	resp, err := p.client.R().SetContext(ctx).Head(target)
	if err != nil {
		return false, ctx.Err() == nil
	}

	status := resp.StatusCode()
	if isMethodRejected(status) {
		// Some providers refuse HEAD; one full request settles it.
		resp, err = p.client.R().SetContext(ctx).Get(target)
		if err != nil {
			return false, ctx.Err() == nil
		}
		status = resp.StatusCode()
	}

	if status >= 200 && status < 400 {
		return true, false
	}
	return false, p.ShouldRetryStatus(status)
}

// isMethodRejected reports the method-not-allowed class of statuses.
func isMethodRejected(status int) bool {
	return status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return target
	}
	return u.Host
}
