package htfs

import (
	"sync"

	"github.com/rhythmcache/pravaha/mtime"
	"github.com/rhythmcache/pravaha/rangecache"
)

// maxRefillAttempts bounds how many consecutive refills a single Read
// call tolerates without copying any bytes out.
const maxRefillAttempts = 3

// sizeProbe is the three-state lazy content-length probe: not yet
// probed, probed-and-unknown, probed-and-known(n).
type sizeProbe struct {
	done  bool
	value *uint64
}

// File is a single byte-addressable, seekable reader over one HTTP(S)
// resource. Calling Read/Seek/Size concurrently with one another from
// multiple goroutines is not safe and remains undefined; the Filesystem
// it was opened from may be shared freely across many Files and
// goroutines. mu guards every mutable field below so that Close can
// always be called safely from a different goroutine than the one
// driving Read/Seek/Size, without corrupting the buffer or prefetch
// slot: Close either runs before the next call (which then observes
// closed and fails with FileClosed) or waits for the in-flight call to
// finish before tearing state down. stats gets its own mutex rather
// than sharing mu: a background prefetch worker (spawned by
// maybePrefetchNext) keeps running after the call that spawned it
// releases mu, and updates TransportCalls/TransportWait/Retries
// concurrently with whatever the foreground goroutine is doing.
type File struct {
	id        string
	url       string
	transport Transport
	cfg       Config
	cache     *rangecache.Cache

	mu sync.Mutex

	buffer      rangeBuffer
	offset      uint64
	eofReached  bool
	closed      bool
	cachedSize  sizeProbe
	prefetch    *prefetchSlot
	lastReadEnd *uint64

	statsMu sync.Mutex
	stats   Stats
}

// bumpStats runs fn against the live Stats under statsMu, the one field
// touched by both the foreground goroutine (holding mu) and a background
// prefetch worker (holding nothing).
func (f *File) bumpStats(fn func(*Stats)) {
	f.statsMu.Lock()
	fn(&f.stats)
	f.statsMu.Unlock()
}

// log prefixes every line with the session's id so concurrent sessions
// sharing one Filesystem's log sink stay distinguishable. id is assigned
// at Open time and never written again, so a prefetch worker may call
// this without holding mu.
func (f *File) log(format string, args ...interface{}) {
	f.cfg.log("[%s] "+format, append([]interface{}{f.id[:8]}, args...)...)
}

// Read fills buf with up to len(buf) bytes starting at the current
// offset, returning the number of bytes read. It returns (0, nil) only
// when buf is empty or EOF has already been observed; otherwise it keeps
// refilling until buf is full or EOF is hit. Each iteration either
// copies from the resident buffer or refills it; the refill-attempt cap
// turns a transport that never makes progress into a hard error instead
// of a spin. After a successful read the sequential-access bookkeeping
// schedules (or discards) the next prefetch.
func (f *File) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, newError(KindFileClosed, "read after close")
	}
	if len(buf) == 0 {
		return 0, nil
	}

	startOffset := f.offset
	total := 0
	refillAttempts := 0

	for total < len(buf) {
		if !f.buffer.contains(f.offset) {
			if f.eofReached {
				break
			}

			if err := f.refillBuffer(); err != nil {
				return total, err
			}
			refillAttempts++
			if refillAttempts > maxRefillAttempts {
				return total, newError(KindProtocol, "too many refill attempts without progress")
			}

			if f.eofReached && !f.buffer.contains(f.offset) {
				break
			}
			continue
		}

		refillAttempts = 0
		n := f.buffer.readInto(buf[total:], f.offset)
		if n == 0 {
			return total, newError(KindProtocol, "internal error: buffer contains offset but read returned 0")
		}
		total += n
		f.offset += uint64(n)

		if f.eofReached && !f.buffer.contains(f.offset) {
			break
		}
	}

	if total > 0 {
		sequential := f.lastReadEnd == nil || *f.lastReadEnd == startOffset
		end := startOffset + uint64(total)
		f.lastReadEnd = &end

		if sequential {
			f.maybePrefetchNext()
		} else {
			f.prefetch = nil
		}
	}

	return total, nil
}

// refillBuffer loads one chunk starting at the current offset: probe the
// content length once if we never have, then try the shared cache, then
// a matching prefetch slot, then a foreground retrying GET. An empty
// payload means the offset is at or past the end of the resource.
func (f *File) refillBuffer() error {
	rangeStart := f.offset
	rangeEnd := saturatingAddOne(rangeStart, f.cfg.ChunkSize)
	oldBufferEnd := f.buffer.end

	if !f.cachedSize.done {
		size, err := f.getContentLengthWithRetry()
		if err != nil {
			return err
		}
		f.cachedSize = sizeProbe{done: true, value: size}
	}

	key := rangecache.Key{URL: f.url, Start: rangeStart, End: rangeEnd}
	if cached, ok := f.cache.Get(key); ok {
		f.bumpStats(func(s *Stats) { s.CacheHits++ })
		f.buffer.setData(cached, rangeStart)
		f.eofReached = f.computeEOF(rangeStart, uint64(len(cached)), oldBufferEnd)
		if f.eofReached {
			f.prefetch = nil
		}
		return nil
	}
	f.bumpStats(func(s *Stats) { s.CacheMisses++ })

	var resp *RangeResponse
	var err error
	if f.prefetch.matches(rangeStart, rangeEnd) {
		// A worker's error, Protocol included, is returned as is: no
		// foreground attempt is made for this range.
		slot := f.prefetch
		f.prefetch = nil
		resp, err = slot.consume()
		f.bumpStats(func(s *Stats) { s.PrefetchesUsed++ })
	} else {
		resp, err = f.getRangeWithRetry(rangeStart, rangeEnd)
	}
	if err != nil {
		return err
	}

	if len(resp.Data) == 0 {
		f.eofReached = true
		f.buffer.clear()
		f.prefetch = nil
		return nil
	}

	f.cache.Insert(key, resp.Data)
	f.buffer.setData(resp.Data, rangeStart)
	f.eofReached = f.computeEOF(rangeStart, uint64(len(resp.Data)), oldBufferEnd)
	if f.eofReached {
		f.prefetch = nil
	}

	if f.buffer.end <= oldBufferEnd && oldBufferEnd > 0 {
		return newError(KindProtocol, "buffer refill did not advance")
	}

	return nil
}

// computeEOF decides whether this refill reached the end: known-size
// resources compare the new buffer end against the probed size; unknown-
// size resources treat a short response as EOF, but only once a resident
// buffer has already existed (oldBufferEnd > 0). A short first reply
// from an unknown-length resource still yields its bytes, and only the
// next refill (which will return empty) flips the flag.
func (f *File) computeEOF(rangeStart, actualSize, oldBufferEnd uint64) bool {
	actualEnd := rangeStart + actualSize
	if f.cachedSize.value != nil {
		return actualEnd >= *f.cachedSize.value
	}
	expectedSize := f.cfg.ChunkSize
	return actualSize < expectedSize && oldBufferEnd > 0
}

// maybePrefetchNext schedules a background fetch of the chunk
// immediately after the resident buffer, but only when read-ahead is on,
// EOF hasn't been observed, the reader has drained to within the trigger
// distance of the buffer's end, and neither the prefetch slot nor the
// cache already covers that next range.
func (f *File) maybePrefetchNext() {
	if !f.cfg.ReadAhead || f.eofReached {
		return
	}
	if f.buffer.end <= f.offset {
		return
	}
	if f.buffer.end-f.offset > f.cfg.ReadAheadTrigger {
		return
	}

	nextStart := f.buffer.end
	nextEnd := saturatingAddOne(nextStart, f.cfg.ChunkSize)

	if f.prefetch.matches(nextStart, nextEnd) {
		return
	}

	if _, ok := f.cache.Get(rangecache.Key{URL: f.url, Start: nextStart, End: nextEnd}); ok {
		return
	}

	f.bumpStats(func(s *Stats) { s.PrefetchesSpawned++ })
	f.prefetch = spawnPrefetch(nextStart, nextEnd, func() (*RangeResponse, error) {
		return f.getRangeWithRetry(nextStart, nextEnd)
	})
}

// Seek sets the absolute read offset. Forward seeks that remain inside
// the resident buffer preserve it, so a skip-then-read stays cheap.
func (f *File) Seek(pos uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return newError(KindFileClosed, "seek after close")
	}

	if pos < f.offset || !f.buffer.contains(pos) {
		f.buffer.clear()
	}
	f.offset = pos
	f.eofReached = false
	f.prefetch = nil
	f.lastReadEnd = nil
	return nil
}

// Tell returns the current absolute offset.
func (f *File) Tell() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offset
}

// EOF reports whether the session has observed end-of-file.
func (f *File) EOF() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eofReached
}

// Size returns the resource's content length, probing it once via a
// retrying HEAD and memoizing the result (including "unknown") for the
// rest of the session's lifetime.
func (f *File) Size() (*uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, newError(KindFileClosed, "size after close")
	}
	if !f.cachedSize.done {
		size, err := f.getContentLengthWithRetry()
		if err != nil {
			return nil, err
		}
		f.cachedSize = sizeProbe{done: true, value: size}
	}
	return f.cachedSize.value, nil
}

// Close is idempotent: it clears the buffer and prefetch slot and marks
// the session closed. Every other operation fails with FileClosed
// afterward.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.buffer.clear()
	f.prefetch = nil
	return nil
}

// Stats returns a snapshot of this session's counters.
func (f *File) Stats() Stats {
	f.statsMu.Lock()
	defer f.statsMu.Unlock()
	return f.stats
}

func (f *File) getContentLengthWithRetry() (*uint64, error) {
	retryCtx := f.cfg.newRetryContext()
	for retryCtx.ShouldTry() {
		elapsed := mtime.Stopwatch()
		size, err := f.transport.GetContentLength(f.url)
		wait := elapsed()
		f.bumpStats(func(s *Stats) {
			s.TransportCalls++
			s.TransportWait += wait
		})
		if err != nil {
			if shouldRetryErr(err) {
				f.bumpStats(func(s *Stats) { s.Retries++ })
				f.log("(size) retrying %v", err)
				retryCtx.Retry(err)
				continue
			}
			return nil, err
		}
		return size, nil
	}
	return nil, retryCtx.LastError
}

func (f *File) getRangeWithRetry(start, end uint64) (*RangeResponse, error) {
	retryCtx := f.cfg.newRetryContext()
	for retryCtx.ShouldTry() {
		elapsed := mtime.Stopwatch()
		resp, err := f.transport.GetRange(f.url, start, end)
		wait := elapsed()
		f.bumpStats(func(s *Stats) {
			s.TransportCalls++
			s.TransportWait += wait
		})
		if err != nil {
			if shouldRetryErr(err) {
				f.bumpStats(func(s *Stats) { s.Retries++ })
				f.log("[%9d-%9d] retrying %v", start, end, err)
				retryCtx.Retry(err)
				continue
			}
			return nil, err
		}
		return resp, nil
	}
	return nil, retryCtx.LastError
}

// saturatingAddOne computes start + size - 1, clamping at the top of the
// uint64 range instead of wrapping.
func saturatingAddOne(start, size uint64) uint64 {
	if size == 0 {
		return start
	}
	span := size - 1
	if start > ^uint64(0)-span {
		return ^uint64(0)
	}
	return start + span
}
