package probe

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// NewClient creates the HTTP client used for probes and bundle fetches:
// a resty client over a retryablehttp transport. Transport-level retries
// cover connection churn; probe-level retries and backoff are handled by
// the Prober so each attempt is observable.
func NewClient(timeout time.Duration) *resty.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	client := resty.New()
	client.
		SetTimeout(timeout).
		SetHeader("User-Agent", "cdnboot/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	return client
}
