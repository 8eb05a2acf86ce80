package transport_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhythmcache/pravaha/htfs"
	"github.com/rhythmcache/pravaha/transport"
)

func fakeStorage(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			w.WriteHeader(http.StatusOK)
			return
		}

		rangeHeader := r.Header.Get("Range")
		start, end, ok := parseRequestRange(rangeHeader, len(data))
		if !ok {
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}

		if start >= len(data) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		if end >= len(data) {
			end = len(data) - 1
		}

		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(data)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(data[start : end+1])
	}))
}

func parseRequestRange(header string, size int) (start, end int, ok bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, false
	}
	parts := strings.SplitN(strings.TrimPrefix(header, prefix), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	s, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	e, err := strconv.Atoi(parts[1])
	if err != nil {
		e = size - 1
	}
	return s, e, true
}

func Test_GetRangePartialContent(t *testing.T) {
	srv := fakeStorage(t, []byte("ABCDEFGHIJ"))
	defer srv.Close()

	tr := transport.New(htfs.DefaultConfig())
	resp, err := tr.GetRange(srv.URL, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, "CDEF", string(resp.Data))
	assert.Equal(t, http.StatusPartialContent, resp.Status)
}

func Test_GetRangePastEndIs416(t *testing.T) {
	srv := fakeStorage(t, []byte("ABCDEFGHIJ"))
	defer srv.Close()

	tr := transport.New(htfs.DefaultConfig())
	resp, err := tr.GetRange(srv.URL, 100, 109)
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func Test_GetRange200IsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("whole body, ignoring Range"))
	}))
	defer srv.Close()

	tr := transport.New(htfs.DefaultConfig())
	_, err := tr.GetRange(srv.URL, 0, 9)
	require.Error(t, err)
	assert.True(t, htfs.IsProtocol(err))

	he, ok := err.(*htfs.Error)
	require.True(t, ok)
	require.NotNil(t, he.Server)
	assert.Equal(t, htfs.ServerErrorCodeNoRangeSupport, he.Server.Code)
	assert.Equal(t, http.StatusOK, he.Server.StatusCode)
}

func Test_GetRangeBadRangeStartIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes 5-9/10")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("ZZZZZ"))
	}))
	defer srv.Close()

	tr := transport.New(htfs.DefaultConfig())
	_, err := tr.GetRange(srv.URL, 0, 9)
	require.Error(t, err)
	assert.True(t, htfs.IsProtocol(err))

	he, ok := err.(*htfs.Error)
	require.True(t, ok)
	require.NotNil(t, he.Server)
	assert.Equal(t, htfs.ServerErrorCodeBadRangeStart, he.Server.Code)
}

func Test_GetRangeOtherStatusIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := transport.New(htfs.DefaultConfig())
	_, err := tr.GetRange(srv.URL, 0, 9)
	require.Error(t, err)
	assert.True(t, htfs.IsNetwork(err))
}

func Test_GetContentLength(t *testing.T) {
	srv := fakeStorage(t, []byte("0123456789"))
	defer srv.Close()

	tr := transport.New(htfs.DefaultConfig())
	size, err := tr.GetContentLength(srv.URL)
	require.NoError(t, err)
	require.NotNil(t, size)
	assert.EqualValues(t, 10, *size)
}

func Test_GetContentLengthUnknownOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := transport.New(htfs.DefaultConfig())
	size, err := tr.GetContentLength(srv.URL)
	require.NoError(t, err)
	assert.Nil(t, size)
}
