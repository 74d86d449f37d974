package common

import (
	_ "embed"
	"net/http"
	"strings"
	"time"
)

//go:embed VERSION
var version string

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone so we never mutate headers on a request the caller may reuse.
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// Version returns the build version baked into the binary.
func Version() string {
	return strings.TrimSpace(version)
}

// HTTPClient returns an http client with a timeout and our user-agent set.
// The vendor API has no cancellation of its own, so the timeout here is the
// only bound on a stuck request.
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{
			transport: http.DefaultTransport,
			userAgent: "fwhmon/" + Version(),
		},
		Timeout: timeout,
	}
}
