package htfs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error: it is what retry loops and callers switch
// on, never the error's text.
type Kind int

const (
	// KindNetwork is a transport-level failure eligible for retry: DNS,
	// connect, I/O, or any non-2xx status other than the ones the
	// transport contract assigns special meaning (206/416/200).
	KindNetwork Kind = iota
	// KindProtocol is a semantic violation by the server: 200 for a
	// range request, a wrong range start, an empty-progress refill loop.
	// Never retried: it signals a broken peer, not a flaky one.
	KindProtocol
	// KindIO is a local invalid input: unknown mode, a null argument at
	// the C ABI, a request the transport cannot build.
	KindIO
	// KindFileClosed means an operation was attempted after Close.
	KindFileClosed
	// KindUnsupportedProtocol means the URL scheme is neither http nor
	// https.
	KindUnsupportedProtocol
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindIO:
		return "io"
	case KindFileClosed:
		return "file closed"
	case KindUnsupportedProtocol:
		return "unsupported protocol"
	default:
		return "unknown"
	}
}

// Error is the error type every exported htfs operation returns. Kind
// drives retry eligibility and C-ABI error-code mapping; Message is
// human-readable detail. Server, when non-nil, gives a Protocol-kind
// error extra structure for callers that want to branch on the specific
// server misbehavior rather than parse Message.
type Error struct {
	Kind    Kind
	Message string
	Server  *ServerError
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// newError builds an *Error, formatting Message like fmt.Sprintf.
func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsNetwork reports whether err is (or wraps) a Network-kind Error.
func IsNetwork(err error) bool {
	return hasKind(err, KindNetwork)
}

// IsProtocol reports whether err is (or wraps) a Protocol-kind Error.
func IsProtocol(err error) bool {
	return hasKind(err, KindProtocol)
}

// IsFileClosed reports whether err is (or wraps) a FileClosed-kind Error.
func IsFileClosed(err error) bool {
	return hasKind(err, KindFileClosed)
}

func hasKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == kind
		}
		cause := errors.Cause(err)
		if cause == err {
			return false
		}
		err = cause
	}
	return false
}

// ServerErrorCode further classifies a Protocol-kind Error raised
// because of a specific, recognizable misbehavior, for callers that want
// to branch on it ("this origin doesn't support Range requests at all"
// is worth distinguishing from a generic protocol violation).
type ServerErrorCode int

const (
	ServerErrorCodeUnknown ServerErrorCode = iota
	// ServerErrorCodeNoRangeSupport means the origin answered a ranged
	// GET with a full 200 instead of a partial 206.
	ServerErrorCodeNoRangeSupport
	// ServerErrorCodeBadRangeStart means the origin's Content-Range
	// start did not match the requested start.
	ServerErrorCodeBadRangeStart
)

// ServerError carries the offending HTTP status and a ServerErrorCode for
// callers that want to branch on a specific server misbehavior without
// parsing an Error's Message. The default transport (package `transport`)
// populates this on the two recognizable Protocol violations: a 200
// reply to a range request, and a Content-Range start that doesn't match
// what was requested.
type ServerError struct {
	Code       ServerErrorCode
	StatusCode int
}
