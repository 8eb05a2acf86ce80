package htfs

// rangeBuffer is the single resident chunk held by a File session: a
// pure data container with no I/O.
type rangeBuffer struct {
	data  []byte
	start uint64
	end   uint64
}

// setData installs a new resident chunk spanning [start, start+len(data)).
func (b *rangeBuffer) setData(data []byte, start uint64) {
	b.data = data
	b.start = start
	b.end = start + uint64(len(data))
}

// clear empties the buffer.
func (b *rangeBuffer) clear() {
	b.data = nil
	b.start = 0
	b.end = 0
}

// contains reports whether offset falls within [start, end).
func (b *rangeBuffer) contains(offset uint64) bool {
	return b.start <= offset && offset < b.end
}

// readInto copies min(len(out), end-offset) bytes starting at offset into
// out[0:], returning the count copied. The caller must ensure
// contains(offset) first; readInto panics if it does not, matching the
// precondition-violation-is-a-bug stance of the rest of the read path.
func (b *rangeBuffer) readInto(out []byte, offset uint64) int {
	if !b.contains(offset) {
		panic("htfs: readInto called with offset outside buffer")
	}
	relStart := offset - b.start
	n := copy(out, b.data[relStart:])
	return n
}
