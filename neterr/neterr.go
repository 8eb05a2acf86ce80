// Package neterr classifies errors as network-class (DNS, dial, I/O,
// timeout) versus everything else, so retrycontext-driven loops only
// retry failures that have a real chance of succeeding on a later
// attempt.
package neterr

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	perrors "github.com/pkg/errors"
)

// causer matches github.com/pkg/errors' Cause() interface without
// importing it as a hard dependency on that exact type.
type causer interface {
	Cause() error
}

// IsNetworkError reports whether err represents a transient, retryable
// network failure: DNS resolution, connection refused/reset, dial
// timeout, read/write timeout, or a closed connection. A nil error is
// never a network error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	err = unwrap(err)

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return IsNetworkError(urlErr.Err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// fast path: a handful of stdlib network errors surface only as
	// plain strings by the time they reach here (e.g. after crossing
	// an io.Reader boundary that doesn't preserve the original type).
	msg := err.Error()
	for _, suffix := range networkErrorSuffixes {
		if strings.HasSuffix(msg, suffix) {
			return true
		}
	}

	return false
}

var networkErrorSuffixes = []string{
	"i/o timeout",
	"connection refused",
	"connection reset by peer",
	"use of closed network connection",
	"no such host",
	"EOF",
	"broken pipe",
}

// unwrap walks both the stdlib errors.Unwrap chain and pkg/errors'
// Cause() chain, since this codebase's own errors are built with
// pkg/errors but transport failures often come straight from net/http.
func unwrap(err error) error {
	for {
		if c, ok := err.(causer); ok {
			if cause := c.Cause(); cause != nil && cause != err {
				err = cause
				continue
			}
		}
		if u := perrors.Unwrap(err); u != nil && u != err {
			err = u
			continue
		}
		return err
	}
}
