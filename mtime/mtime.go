// Package mtime provides monotonic timing helpers used to record simple
// duration stats (connect wait, retry wait, total read time) without ever
// being vulnerable to wall-clock adjustments.
package mtime

import "time"

// epoch is a process-lifetime reference point. Every Instant is stored as
// the elapsed time.Duration since epoch, computed via time.Since (which
// uses the monotonic reading time.Time carries), so Instant is a plain
// ordered integer type usable with < and > while still being immune to
// wall-clock adjustments.
var epoch = time.Now()

// Instant is a monotonic point in time, comparable with < and >.
type Instant time.Duration

// Now returns the current monotonic instant.
func Now() Instant {
	return Instant(time.Since(epoch))
}

// Add returns the instant offset by d (d may be negative).
func (i Instant) Add(d time.Duration) Instant {
	return i + Instant(d)
}

// Sub returns the duration between i and other (i - other).
func (i Instant) Sub(other Instant) time.Duration {
	return time.Duration(i - other)
}

// Stopwatch starts a monotonic timer and returns a function reporting the
// elapsed duration since the call to Stopwatch, each time it's invoked.
func Stopwatch() func() time.Duration {
	start := Now()
	return func() time.Duration {
		return Now().Sub(start)
	}
}
