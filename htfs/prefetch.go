package htfs

// prefetchResult is what a background prefetch worker sends, exactly
// once, to its owning File session.
type prefetchResult struct {
	resp *RangeResponse
	err  error
}

// prefetchSlot is the at-most-one outstanding background range fetch: a
// one-shot future the session can match against the range it is about to
// fetch, consume, or discard unconsumed. Discarding never cancels the
// worker; it runs to completion and its result is dropped on the floor,
// which is safe because the worker touches only shared-immutable state.
type prefetchSlot struct {
	start uint64
	end   uint64
	ch    chan prefetchResult
}

// matches reports whether this slot targets exactly [start, end].
func (p *prefetchSlot) matches(start, end uint64) bool {
	return p != nil && p.start == start && p.end == end
}

// spawnPrefetch starts a worker that runs fetch and delivers its single
// result on a buffered channel, so the worker never blocks even if the
// slot is discarded before anyone receives.
func spawnPrefetch(start, end uint64, fetch func() (*RangeResponse, error)) *prefetchSlot {
	slot := &prefetchSlot{
		start: start,
		end:   end,
		ch:    make(chan prefetchResult, 1),
	}
	go func() {
		resp, err := fetch()
		slot.ch <- prefetchResult{resp: resp, err: err}
	}()
	return slot
}

// consume blocks for this slot's single result. A closed channel, which
// the buffered channel above never produces on its own, surfaces as a
// Network error rather than a zero-value response.
func (p *prefetchSlot) consume() (*RangeResponse, error) {
	result, ok := <-p.ch
	if !ok {
		return nil, newError(KindNetwork, "prefetch worker channel closed without a result")
	}
	return result.resp, result.err
}
