package htfs

import "time"

// LogFunc receives formatted log lines from a Filesystem and its File
// sessions: a caller-supplied printf-style function rather than a hard
// dependency on a specific logging library, so embedding applications
// can route these lines wherever they already log.
type LogFunc func(format string, args ...interface{})

// Config carries every knob a Filesystem and its File sessions use. It
// is immutable once passed to Create/Open: every File session sees the
// same values for its whole lifetime.
type Config struct {
	// ChunkSize is the range length requested per refill, in bytes. Must
	// be >= 1.
	ChunkSize uint64

	// ReadAhead is the master switch for background prefetch.
	ReadAhead bool
	// ReadAheadTrigger schedules a prefetch of the next chunk once
	// buffer_end - offset <= ReadAheadTrigger. Must be >= 1.
	ReadAheadTrigger uint64

	// CacheMaxEntries and CacheMaxBytes bound the shared range cache.
	// Either being 0 disables caching entirely.
	CacheMaxEntries int
	CacheMaxBytes   int64

	// RetryMaxAttempts is the number of *additional* attempts after the
	// first (so total attempts = 1 + RetryMaxAttempts).
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	// ConnectTimeout, ReadTimeout, and IdleTimeout are hints passed to
	// the transport; the core itself imposes no wall-clock deadline.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	IdleTimeout    time.Duration

	// RequestsPerSecond, when > 0, paces the default transport's
	// outgoing requests. Zero means unlimited.
	RequestsPerSecond int

	// Log receives diagnostic lines. A nil Log discards them.
	Log LogFunc
}

// DefaultConfig returns a configuration suited to sequential reads of
// large remote files: 256KiB chunks, read-ahead on, a 32MiB cache.
func DefaultConfig() Config {
	return Config{
		ChunkSize:        256 * 1024,
		ReadAhead:        true,
		ReadAheadTrigger: 128 * 1024,
		CacheMaxEntries:  64,
		CacheMaxBytes:    32 * 1024 * 1024,
		RetryMaxAttempts: 3,
		RetryBaseDelay:   50 * time.Millisecond,
		RetryMaxDelay:    2 * time.Second,
		ConnectTimeout:   10 * time.Second,
		ReadTimeout:      30 * time.Second,
		IdleTimeout:      30 * time.Second,
	}
}

func (c Config) log(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log(format, args...)
	}
}
