package catalog

import (
	"net"
	"net/http"
	"time"
)

// Identity is the client identification sent with every outbound request.
type Identity struct {
	UserAgent      string
	AcceptLanguage string
}

// identityTransport stamps browser-like headers on requests that do not
// already carry them.
type identityTransport struct {
	base     http.RoundTripper
	identity Identity
}

// NewTransport wraps base (http.DefaultTransport when nil) so every request
// carries the identity headers.
func NewTransport(identity Identity, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = defaultBaseTransport()
	}
	return &identityTransport{base: base, identity: identity}
}

func (t *identityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.identity.UserAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.identity.UserAgent)
	}
	if t.identity.AcceptLanguage != "" && clone.Header.Get("Accept-Language") == "" {
		clone.Header.Set("Accept-Language", t.identity.AcceptLanguage)
	}
	return t.base.RoundTrip(clone)
}

// NewHTTPClient builds a client for metadata requests. timeout bounds the
// whole exchange, which is only appropriate for small bodies.
func NewHTTPClient(identity Identity, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(identity, nil),
	}
}

func defaultBaseTransport() http.RoundTripper {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}
	clone := transport.Clone()
	clone.DialContext = (&net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	return clone
}
