package location

import (
	"net/url"
	"strings"
)

// Location describes where the shell page is being served from. It carries
// the pieces of the request URL that drive environment classification:
// the hostname and the query string.
type Location struct {
	Hostname string
	Query    url.Values
}

// FromURL extracts a Location from a full request URL.
func FromURL(u *url.URL) Location {
	return Location{
		Hostname: u.Hostname(),
		Query:    u.Query(),
	}
}

// IsLoopback reports whether the page is served from a loopback host.
func (l Location) IsLoopback() bool {
	host := strings.ToLower(l.Hostname)
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// IsCILike reports whether the hostname looks like a CI or restricted
// environment. Loopback hosts count, as do hostnames carrying a "ci"
// label ("ci.example.com", "ci-runner-3").
func (l Location) IsCILike() bool {
	if l.IsLoopback() {
		return true
	}
	host := strings.ToLower(l.Hostname)
	for _, part := range strings.FieldsFunc(host, func(r rune) bool {
		return r == '.' || r == '-'
	}) {
		if part == "ci" {
			return true
		}
	}
	return false
}

// QueryFlag reports whether the named query parameter carries a truthy
// token. Matching is case-insensitive.
func (l Location) QueryFlag(name string) bool {
	return Truthy(l.Query.Get(name))
}

// Truthy reports whether a string is one of the accepted truthy tokens.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
