// Package htfs implements the remote random-access reader core: a single
// current-chunk buffer, a shared LRU range cache, a single-slot background
// prefetch, exponential-backoff retry, and end-of-file detection without a
// reliable content length, all driving a byte-addressable, seekable File
// session over an HTTP(S) resource.
package htfs

import (
	"strings"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/rhythmcache/pravaha/rangecache"
	"github.com/rhythmcache/pravaha/retrycontext"
)

// Filesystem holds the configuration, the Transport collaborator, and the
// shared range cache. It opens File sessions; the cache it holds outlives
// every session opened from it.
type Filesystem struct {
	cfg       Config
	transport Transport
	cache     *rangecache.Cache
}

// NewFilesystem builds a Filesystem over a Transport and Config. The URL
// scheme dispatch that picks "this is an HTTP filesystem" in the first
// place happens one level up, in the package-level Create/Open helpers;
// by the time NewFilesystem runs, the caller has already committed to
// HTTP.
func NewFilesystem(cfg Config, t Transport) *Filesystem {
	return &Filesystem{
		cfg:       cfg,
		transport: t,
		cache:     rangecache.New(cfg.CacheMaxEntries, cfg.CacheMaxBytes),
	}
}

// Open accepts only modes "r" and "rb"; any other mode fails with an
// IO-kind invalid-argument error.
func (fs *Filesystem) Open(url string, mode string) (*File, error) {
	if mode != "r" && mode != "rb" {
		return nil, newError(KindIO, "invalid mode %q: only \"r\" and \"rb\" are supported", mode)
	}

	f := &File{
		id:        uuid.NewV4().String(),
		url:       url,
		transport: fs.transport,
		cfg:       fs.cfg,
		cache:     fs.cache,
	}
	return f, nil
}

// Create builds a Filesystem over url, failing with UnsupportedProtocol
// if the scheme is neither http nor https. The returned Filesystem still
// needs Open to produce a usable File.
func Create(url string, cfg Config, t Transport) (*Filesystem, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, newError(KindUnsupportedProtocol, "unsupported URL scheme in %q: only http and https are recognized", url)
	}
	return NewFilesystem(cfg, t), nil
}

// Open is equivalent to Create(url, cfg, t) followed by
// Filesystem.Open(url, mode).
func Open(url, mode string, cfg Config, t Transport) (*File, error) {
	fs, err := Create(url, cfg, t)
	if err != nil {
		return nil, err
	}
	return fs.Open(url, mode)
}

// FilesystemStats reports the filesystem-wide shared range cache's current
// occupancy, letting a long-lived embedder watch the cache that every File
// opened from this Filesystem draws on without reaching into package
// rangecache directly.
type FilesystemStats struct {
	CacheEntries int
	CacheBytes   int64
}

// Stats returns a snapshot of the shared range cache's occupancy.
func (fs *Filesystem) Stats() FilesystemStats {
	return FilesystemStats{
		CacheEntries: fs.cache.Len(),
		CacheBytes:   fs.cache.OccupiedBytes(),
	}
}

// newRetryContext builds a fresh retry loop driver, one per retrying
// operation, so attempt counts never leak between unrelated operations.
func (cfg Config) newRetryContext() *retrycontext.Context {
	return retrycontext.New(retrycontext.Settings{
		MaxTries:  cfg.RetryMaxAttempts,
		BaseDelay: cfg.RetryBaseDelay,
		MaxDelay:  cfg.RetryMaxDelay,
	})
}

// shouldRetryErr reports whether err is eligible for another attempt:
// only Network-kind errors are.
func shouldRetryErr(err error) bool {
	cause := errors.Cause(err)
	e, ok := cause.(*Error)
	return ok && e.Kind == KindNetwork
}
