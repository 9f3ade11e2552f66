package manifest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-yaml"

	"github.com/cdnboot/cdnboot/internal/monitoring"
)

// FetchError reports an unreachable or non-success manifest fetch. It is
// fatal for the bootstrap and never auto-retried; the message is the one
// surfaced to the user verbatim.
type FetchError struct {
	URL    string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	return "Failed to load config.json"
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Fetcher retrieves the deployment manifest with cache-bypass semantics.
type Fetcher struct {
	client  *resty.Client
	url     string
	metrics *monitoring.Metrics
}

// NewFetcher creates a manifest fetcher for the given document URL.
func NewFetcher(client *resty.Client, url string, metrics *monitoring.Metrics) *Fetcher {
	return &Fetcher{client: client, url: url, metrics: metrics}
}

// Fetch retrieves and decodes the manifest. The request carries a
// timestamped query parameter and no-cache headers so a stale intermediary
// copy is never observed.
func (f *Fetcher) Fetch(ctx context.Context) (*Manifest, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("_ts", strconv.FormatInt(time.Now().UnixNano(), 10)).
		SetHeader("Cache-Control", "no-cache").
		Get(f.url)
	if err != nil {
		f.metrics.IncManifestFetch("error")
		return nil, &FetchError{URL: f.url, Cause: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		f.metrics.IncManifestFetch("error")
		return nil, &FetchError{URL: f.url, Status: resp.StatusCode()}
	}

	m, err := Decode(resp.Body(), resp.Header().Get("Content-Type"), f.url)
	if err != nil {
		f.metrics.IncManifestFetch("error")
		return nil, &FetchError{URL: f.url, Cause: err}
	}
	f.metrics.IncManifestFetch("success")
	return m, nil
}

// Decode parses a manifest document. YAML is accepted for local
// development; everything else is treated as JSON.
func Decode(body []byte, contentType, url string) (*Manifest, error) {
	var m Manifest
	if isYAML(contentType, url) {
		if err := yaml.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		return &m, nil
	}
	if err := sonic.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

func isYAML(contentType, url string) bool {
	if strings.Contains(contentType, "yaml") {
		return true
	}
	trimmed := strings.SplitN(url, "?", 2)[0]
	return strings.HasSuffix(trimmed, ".yaml") || strings.HasSuffix(trimmed, ".yml")
}
