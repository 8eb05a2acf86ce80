// Package retrycontext implements the exponential-backoff retry loop used
// everywhere pravaha talks to the network: probing content length,
// fetching a range in the foreground, and fetching a range from a
// prefetch worker.
package retrycontext

import "time"

// Settings configures a retry Context.
type Settings struct {
	// MaxTries is the number of *additional* attempts after the first
	// (so total attempts = 1 + MaxTries).
	MaxTries int

	// BaseDelay and MaxDelay parametrize the exponential backoff: the
	// sleep before attempt a+1 (a counted from 0) is
	// min(MaxDelay, BaseDelay * 2^min(a, 20)).
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// NoSleep skips the actual sleep, for fast tests.
	NoSleep bool
}

// DefaultSettings matches htfs.DefaultConfig's retry knobs.
func DefaultSettings() Settings {
	return Settings{
		MaxTries:  3,
		BaseDelay: 50 * time.Millisecond,
		MaxDelay:  2 * time.Second,
	}
}

// Context drives a single retry loop.
type Context struct {
	Settings Settings

	// Tries counts the failed attempts recorded by Retry so far; it is 0
	// during the first attempt.
	Tries int

	// LastError holds the most recent failure passed to Retry.
	LastError error
}

// New creates a Context with explicit settings.
func New(settings Settings) *Context {
	return &Context{Settings: settings}
}

// NewDefault creates a Context with DefaultSettings.
func NewDefault() *Context {
	return New(DefaultSettings())
}

// ShouldTry reports whether another attempt should be made. It must be
// called before every attempt, including the first.
func (c *Context) ShouldTry() bool {
	return c.Tries <= c.Settings.MaxTries
}

// Retry records a failed attempt and sleeps for the computed backoff
// delay before returning. reason is kept only as LastError; callers pass
// the error that made the attempt fail.
func (c *Context) Retry(reason error) {
	c.LastError = reason

	if !c.Settings.NoSleep {
		time.Sleep(c.delay())
	}

	c.Tries++
}

// delay computes the sleep before the next attempt, using the number of
// retries already performed (Tries) as the attempt index.
func (c *Context) delay() time.Duration {
	return backoff(c.Settings.BaseDelay, c.Settings.MaxDelay, c.Tries)
}

// backoff computes min(max, base*2^min(attempt,20)), saturating instead
// of overflowing for large attempt counts or large base delays.
func backoff(base, max time.Duration, attempt int) time.Duration {
	if max <= 0 {
		return 0
	}

	shift := attempt
	if shift > 20 {
		shift = 20
	}

	// base * 2^shift, saturating at max instead of overflowing.
	delay := base
	for i := 0; i < shift; i++ {
		if delay >= max {
			return max
		}
		delay *= 2
	}

	if delay > max {
		return max
	}
	return delay
}
