// Package timeout builds *http.Client values with explicit connect, read,
// and idle timeouts, so a stalled origin can never hang a File session
// forever. It deliberately does not configure HTTP/2: this library only
// ever issues a single request per connection attempt, and multiplexing
// is outside its scope.
package timeout

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Default timeouts, matching htfs.DefaultConfig's transport hints.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultIdleTimeout    = 30 * time.Second
)

// NewDefaultClient builds a client using the default timeouts.
func NewDefaultClient() *http.Client {
	return NewClient(DefaultConnectTimeout, DefaultReadTimeout, DefaultIdleTimeout)
}

// NewClient builds an *http.Client whose Transport dials with
// connectTimeout, reports idleTimeout to the OS keep-alive pool, and whose
// overall Client.Timeout is capped at readTimeout. Passing 0 for any
// argument disables that particular guard.
func NewClient(connectTimeout, readTimeout, idleTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: idleTimeout,
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		IdleConnTimeout:       idleTimeout,
		// HTTP/2 is never configured here: every request this library
		// makes is a single bounded Range GET or HEAD, so there is
		// nothing to multiplex.
		ForceAttemptHTTP2: false,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   readTimeout,
	}
}
