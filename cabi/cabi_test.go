package cabi

import (
	"net/http"
	"net/http/httptest"
	"runtime/cgo"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func Test_HandleRoundTrip(t *testing.T) {
	type thing struct{ n int }
	h := cgo.NewHandle(&thing{n: 7})
	defer h.Delete()

	p := handlePointer(h)
	got := handleValue(p).(*thing)
	assert.Equal(t, 7, got.n)
}

func Test_ErrorCodeMapping(t *testing.T) {
	assert.Equal(t, ErrorCodeUnknown, errorCodeFor(assertErr{}))
}

func Test_LastErrorLifecycle(t *testing.T) {
	clearLastError()
	assert.Nil(t, pravaha_last_error())

	setLastError(assertErr{})
	msg := pravaha_last_error()
	require.NotNil(t, msg)
	assert.Equal(t, "boom", goString(msg))
	freeCString(msg)

	clearLastError()
	assert.Nil(t, pravaha_last_error())
}

func Test_CreateOpenReadCloseViaCABI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "11")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Range", "bytes 0-10/11")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	urlC := cString(srv.URL)
	defer freeCString(urlC)
	modeC := cString("rb")
	defer freeCString(modeC)

	fh := pravaha_open_url(urlC, modeC)
	require.NotEqual(t, unsafe.Pointer(nil), fh)
	defer pravaha_file_close(fh)

	buf := make([]byte, 5)
	n := pravaha_read(fh, unsafe.Pointer(&buf[0]), 5)
	require.EqualValues(t, 5, n)
	assert.Equal(t, "hello", string(buf))
}

func Test_NullArgumentsReturnErrorCodes(t *testing.T) {
	assert.EqualValues(t, int(ErrorCodeInvalidArgument), int(pravaha_seek(nil, 0)))
	assert.EqualValues(t, 0, pravaha_tell(nil))
	assert.EqualValues(t, 0, pravaha_eof(nil))
}
