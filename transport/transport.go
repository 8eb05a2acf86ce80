// Package transport is the default net/http-backed implementation of
// htfs.Transport: HEAD for content length, ranged GET for data, with
// strict status-code and Content-Range handling.
package transport

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rhythmcache/pravaha/htfs"
	"github.com/rhythmcache/pravaha/neterr"
	"github.com/rhythmcache/pravaha/rate"
	"github.com/rhythmcache/pravaha/timeout"
)

// Options configures the default Transport.
type Options struct {
	Client            *http.Client
	RequestsPerSecond int
}

type defaultTransport struct {
	client  *http.Client
	limiter *rate.Limiter
}

// New builds the default htfs.Transport from a Config, deriving its
// *http.Client from the Config's timeouts.
func New(cfg htfs.Config) htfs.Transport {
	client := timeout.NewClient(cfg.ConnectTimeout, cfg.ReadTimeout, cfg.IdleTimeout)
	return &defaultTransport{
		client:  client,
		limiter: rate.NewLimiter(rate.LimiterOpts{RequestsPerSecond: cfg.RequestsPerSecond}),
	}
}

// NewWithOptions builds a Transport from an explicit *http.Client, for
// callers (tests, embedders) that want full control over dialing/TLS.
func NewWithOptions(opts Options) htfs.Transport {
	client := opts.Client
	if client == nil {
		client = timeout.NewDefaultClient()
	}
	return &defaultTransport{
		client:  client,
		limiter: rate.NewLimiter(rate.LimiterOpts{RequestsPerSecond: opts.RequestsPerSecond}),
	}
}

func (t *defaultTransport) GetContentLength(url string) (*uint64, error) {
	t.limiter.Wait()

	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return nil, &htfs.Error{Kind: htfs.KindIO, Message: "building HEAD request: " + err.Error()}
	}

	res, err := t.client.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return nil, nil
	}
	if res.ContentLength < 0 {
		return nil, nil
	}
	n := uint64(res.ContentLength)
	return &n, nil
}

func (t *defaultTransport) GetRange(url string, start, end uint64) (*htfs.RangeResponse, error) {
	t.limiter.Wait()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, &htfs.Error{Kind: htfs.KindIO, Message: "building GET request: " + err.Error()}
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	res, err := t.client.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer res.Body.Close()

	crStart, crEnd := parseContentRange(res.Header.Get("Content-Range"))

	switch res.StatusCode {
	case http.StatusPartialContent:
		if crStart != nil && *crStart != start {
			return nil, &htfs.Error{
				Kind:    htfs.KindProtocol,
				Message: "server returned incorrect range start",
				Server:  &htfs.ServerError{Code: htfs.ServerErrorCodeBadRangeStart, StatusCode: res.StatusCode},
			}
		}
		data, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, networkError(err)
		}
		return &htfs.RangeResponse{
			Data:              data,
			Status:            res.StatusCode,
			ContentLength:     contentLengthPtr(res),
			ContentRangeStart: crStart,
			ContentRangeEnd:   crEnd,
		}, nil

	case http.StatusRequestedRangeNotSatisfiable:
		return &htfs.RangeResponse{Data: nil, Status: res.StatusCode}, nil

	case http.StatusOK:
		return nil, &htfs.Error{
			Kind:    htfs.KindProtocol,
			Message: "server does not support Range requests (returned 200 instead of 206); this library requires strict Range semantics",
			Server:  &htfs.ServerError{Code: htfs.ServerErrorCodeNoRangeSupport, StatusCode: res.StatusCode},
		}

	default:
		// Any status outside {206, 416, 200} is Network, not Protocol:
		// unlike a client.Do failure, a bare status code carries no
		// error value for neterr to classify, and a 5xx today may well
		// succeed on a retry.
		return nil, &htfs.Error{Kind: htfs.KindNetwork, Message: fmt.Sprintf("HTTP error: %d", res.StatusCode)}
	}
}

func contentLengthPtr(res *http.Response) *uint64 {
	if res.ContentLength < 0 {
		return nil
	}
	n := uint64(res.ContentLength)
	return &n
}

// parseContentRange parses a "Content-Range: bytes S-E/T" (or "*")
// header: split on whitespace, require the leading token to be "bytes",
// split the second token on '/', then split its first part on '-'. Any
// malformed field yields (nil, nil), never an error.
func parseContentRange(header string) (*uint64, *uint64) {
	if header == "" {
		return nil, nil
	}

	fields := strings.Fields(header)
	if len(fields) != 2 || fields[0] != "bytes" {
		return nil, nil
	}

	rangePart := strings.SplitN(fields[1], "/", 2)[0]
	bounds := strings.SplitN(rangePart, "-", 2)
	if len(bounds) != 2 {
		return nil, nil
	}

	start, err := strconv.ParseUint(bounds[0], 10, 64)
	if err != nil {
		return nil, nil
	}
	end, err := strconv.ParseUint(bounds[1], 10, 64)
	if err != nil {
		return nil, nil
	}
	return &start, &end
}

// networkError classifies a failed client.Do() using neterr: genuine
// network-class failures (dial, DNS, timeout, connection reset) become a
// retry-eligible htfs.KindNetwork error. Anything else client.Do can fail
// with (a bad TLS cert, too many redirects, an unsupported scheme) is a
// standing condition retrying will not fix, so it surfaces as
// htfs.KindProtocol instead.
func networkError(err error) error {
	if neterr.IsNetworkError(err) {
		return &htfs.Error{Kind: htfs.KindNetwork, Message: err.Error()}
	}
	return &htfs.Error{Kind: htfs.KindProtocol, Message: err.Error()}
}
