package timeout_test

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rhythmcache/pravaha/timeout"
)

func Test_NewDefaultClient(t *testing.T) {
	client := timeout.NewDefaultClient()
	assert.Equal(t, timeout.DefaultReadTimeout, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	assert.True(t, ok)
	assert.Equal(t, timeout.DefaultIdleTimeout, transport.IdleConnTimeout)
}

func Test_ClientTimesOutOnSlowResponse(t *testing.T) {
	blockCh := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blockCh
	}))
	defer srv.Close()
	defer close(blockCh)

	client := timeout.NewClient(time.Second, 50*time.Millisecond, time.Second)
	_, err := client.Get(srv.URL)
	assert.Error(t, err)
}

func Test_ClientConnectsFine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := timeout.NewDefaultClient()
	res, err := client.Get(srv.URL)
	assert.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, 200, res.StatusCode)
}

func Test_NewClientDialTimeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	addr := l.Addr().String()
	assert.NoError(t, l.Close())

	client := timeout.NewClient(10*time.Millisecond, time.Second, time.Second)
	_, getErr := client.Get("http://" + addr + "/")
	assert.Error(t, getErr)
}
