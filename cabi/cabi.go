// Package cabi is the cgo-built C ABI adapter over htfs: opaque handles,
// a numeric error-code enum, and real OS-thread-local last-error
// storage.
package cabi

/*
#include <stdint.h>
#include <stddef.h>
*/
import "C"

import (
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/rhythmcache/pravaha/htfs"
	"github.com/rhythmcache/pravaha/transport"
)

// ErrorCode is the numeric error classification reported to C callers.
type ErrorCode C.int

const (
	ErrorCodeSuccess             ErrorCode = 0
	ErrorCodeNetwork             ErrorCode = 1
	ErrorCodeProtocol            ErrorCode = 2
	ErrorCodeIO                  ErrorCode = 3
	ErrorCodeFileClosed          ErrorCode = 4
	ErrorCodeUnsupportedProtocol ErrorCode = 5
	ErrorCodeInvalidArgument     ErrorCode = 6
	ErrorCodeUnknown             ErrorCode = 99
)

func errorCodeFor(err error) ErrorCode {
	e, ok := err.(*htfs.Error)
	if !ok {
		return ErrorCodeUnknown
	}
	switch e.Kind {
	case htfs.KindNetwork:
		return ErrorCodeNetwork
	case htfs.KindProtocol:
		return ErrorCodeProtocol
	case htfs.KindIO:
		return ErrorCodeIO
	case htfs.KindFileClosed:
		return ErrorCodeFileClosed
	case htfs.KindUnsupportedProtocol:
		return ErrorCodeUnsupportedProtocol
	default:
		return ErrorCodeUnknown
	}
}

// lastErrors holds one error message per OS thread, keyed by the value a
// cgo call to pthread_self() observes. A goroutine running code called
// from C is pinned to that C call's OS thread for the duration of the
// call, so this is a genuine thread-local, not an approximation scoped to
// goroutines.
var (
	lastErrorsMu sync.Mutex
	lastErrors   = map[uint64]string{}
)

func setLastError(err error) {
	lastErrorsMu.Lock()
	defer lastErrorsMu.Unlock()
	lastErrors[currentThreadID()] = err.Error()
}

func clearLastError() {
	lastErrorsMu.Lock()
	defer lastErrorsMu.Unlock()
	delete(lastErrors, currentThreadID())
}

func ioError(message string) *htfs.Error {
	return &htfs.Error{Kind: htfs.KindIO, Message: message}
}

// version is the fixed string pravaha_version reports; DefaultConfig's
// numeric fields are the load-bearing compatibility surface, not this
// string.
const version = "0.1.0"

//export pravaha_last_error
func pravaha_last_error() *C.char {
	lastErrorsMu.Lock()
	msg, ok := lastErrors[currentThreadID()]
	lastErrorsMu.Unlock()
	if !ok {
		return nil
	}
	return cString(msg)
}

//export pravaha_create
func pravaha_create(url *C.char) unsafe.Pointer {
	clearLastError()

	if url == nil {
		setLastError(ioError("URL is null"))
		return nil
	}

	fs, err := htfs.Create(goString(url), htfs.DefaultConfig(), transport.New(htfs.DefaultConfig()))
	if err != nil {
		setLastError(err)
		return nil
	}

	return handlePointer(cgo.NewHandle(fs))
}

//export pravaha_open
func pravaha_open(fsHandle unsafe.Pointer, path, mode *C.char) unsafe.Pointer {
	clearLastError()

	if fsHandle == nil || path == nil || mode == nil {
		setLastError(ioError("null pointer argument"))
		return nil
	}

	fs := handleValue(fsHandle).(*htfs.Filesystem)
	f, err := fs.Open(goString(path), goString(mode))
	if err != nil {
		setLastError(err)
		return nil
	}

	return handlePointer(cgo.NewHandle(f))
}

//export pravaha_open_url
func pravaha_open_url(url, mode *C.char) unsafe.Pointer {
	clearLastError()

	if url == nil || mode == nil {
		setLastError(ioError("null pointer argument"))
		return nil
	}

	cfg := htfs.DefaultConfig()
	f, err := htfs.Open(goString(url), goString(mode), cfg, transport.New(cfg))
	if err != nil {
		setLastError(err)
		return nil
	}

	return handlePointer(cgo.NewHandle(f))
}

//export pravaha_read
func pravaha_read(fileHandle unsafe.Pointer, buffer unsafe.Pointer, size C.size_t) C.int64_t {
	clearLastError()

	if fileHandle == nil || buffer == nil {
		setLastError(ioError("null pointer argument"))
		return -1
	}

	f := handleValue(fileHandle).(*htfs.File)
	buf := unsafe.Slice((*byte)(buffer), int(size))

	n, err := f.Read(buf)
	if err != nil {
		setLastError(err)
		return -1
	}
	return C.int64_t(n)
}

//export pravaha_seek
func pravaha_seek(fileHandle unsafe.Pointer, pos C.uint64_t) C.int {
	clearLastError()

	if fileHandle == nil {
		setLastError(ioError("null file pointer"))
		return C.int(ErrorCodeInvalidArgument)
	}

	f := handleValue(fileHandle).(*htfs.File)
	if err := f.Seek(uint64(pos)); err != nil {
		setLastError(err)
		return C.int(errorCodeFor(err))
	}
	return C.int(ErrorCodeSuccess)
}

//export pravaha_tell
func pravaha_tell(fileHandle unsafe.Pointer) C.uint64_t {
	clearLastError()

	if fileHandle == nil {
		setLastError(ioError("null file pointer"))
		return 0
	}

	f := handleValue(fileHandle).(*htfs.File)
	return C.uint64_t(f.Tell())
}

//export pravaha_size
func pravaha_size(fileHandle unsafe.Pointer, hasSize *C.int) C.uint64_t {
	clearLastError()

	if fileHandle == nil || hasSize == nil {
		if hasSize != nil {
			*hasSize = 0
		}
		setLastError(ioError("null pointer argument"))
		return 0
	}

	f := handleValue(fileHandle).(*htfs.File)
	size, err := f.Size()
	if err != nil {
		setLastError(err)
		*hasSize = 0
		return 0
	}
	if size == nil {
		*hasSize = 0
		return 0
	}
	*hasSize = 1
	return C.uint64_t(*size)
}

//export pravaha_eof
func pravaha_eof(fileHandle unsafe.Pointer) C.int {
	clearLastError()

	if fileHandle == nil {
		return 0
	}
	f := handleValue(fileHandle).(*htfs.File)
	if f.EOF() {
		return 1
	}
	return 0
}

//export pravaha_file_close
func pravaha_file_close(fileHandle unsafe.Pointer) {
	if fileHandle == nil {
		return
	}
	h := handleFromPointer(fileHandle)
	f := h.Value().(*htfs.File)
	f.Close()
	h.Delete()
}

//export pravaha_filesystem_free
func pravaha_filesystem_free(fsHandle unsafe.Pointer) {
	if fsHandle == nil {
		return
	}
	handleFromPointer(fsHandle).Delete()
}

//export pravaha_version
func pravaha_version() *C.char {
	return cString(version)
}

// handlePointer and handleFromPointer convert between a cgo.Handle (which
// is just a process-unique uintptr token, never a real memory address) and
// the opaque void* this ABI hands to C. C never dereferences the pointer,
// so no Go-managed memory is ever exposed to or retained by the caller.
func handlePointer(h cgo.Handle) unsafe.Pointer {
	return unsafe.Pointer(uintptr(h))
}

func handleFromPointer(p unsafe.Pointer) cgo.Handle {
	return cgo.Handle(uintptr(p))
}

func handleValue(p unsafe.Pointer) interface{} {
	return handleFromPointer(p).Value()
}
