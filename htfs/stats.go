package htfs

import "time"

// Stats accumulates simple counters and timings for one File session.
type Stats struct {
	TransportCalls    int
	Retries           int
	CacheHits         int
	CacheMisses       int
	PrefetchesSpawned int
	PrefetchesUsed    int
	TransportWait     time.Duration
}
