package apiclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/proxy"
)

// RequestIDHeader carries a per-request UUID for backend log correlation.
const RequestIDHeader = "X-Request-ID"

// bearerTransport injects the per-request headers. The token is read from the
// owning Client when RoundTrip runs, never when the transport is built.
type bearerTransport struct {
	base      http.RoundTripper
	tokens    interface{ Token() string }
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if token := t.tokens.Token(); token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	} else {
		clone.Header.Del("Authorization")
	}

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	clone.Header.Set("Accept", "application/json")
	if clone.Header.Get(RequestIDHeader) == "" {
		clone.Header.Set(RequestIDHeader, uuid.NewString())
	}

	return t.base.RoundTrip(clone)
}

// newBaseTransport returns the transport below bearerTransport.
// A non-empty proxyAddress routes every connection through that SOCKS5 proxy.
func newBaseTransport(proxyAddress string) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 60 * time.Second

	if proxyAddress == "" {
		return transport, nil
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}
