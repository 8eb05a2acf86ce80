package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/rhythmcache/pravaha/htfs"
	"github.com/rhythmcache/pravaha/transport"
)

func main() {
	must(doMain())
}

func doMain() error {
	log.Printf("Generating fake data...")
	fakeData := make([]byte, 4*1024*1024)
	rand.New(rand.NewSource(time.Now().UnixNano())).Read(fakeData)

	http.HandleFunc("/file.dat", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "file.dat", time.Now(), bytes.NewReader(fakeData))
	})

	log.Printf("Starting http server...")
	l, err := net.Listen("tcp", "localhost:0")
	must(err)

	go func() {
		log.Fatal(http.Serve(l, nil))
	}()

	url := fmt.Sprintf("http://%s/file.dat", l.Addr().String())

	cfg := htfs.DefaultConfig()
	cfg.Log = func(format string, args ...interface{}) {
		log.Printf(format, args...)
	}

	done := make(chan bool)
	numErrors := int64(0)

	printInterval := 250
	readsPerWorker := 3000 * 1000

	const (
		actionForward = iota
		actionSeekForwardLittle
		actionSeekBackLittle
		actionSeekForwardLarge
		actionSeekBackLarge
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)

	var running int64 = 1

	go func() {
		<-time.After(10 * time.Second)
		sigChan <- syscall.SIGINT
	}()

	worker := func(workerNum int) {
		defer func() {
			done <- true
		}()

		f, err := htfs.Open(url, "rb", cfg, transport.New(cfg))
		if err != nil {
			log.Printf("[%d] open failed: %+v", workerNum, err)
			atomic.AddInt64(&numErrors, 1)
			return
		}
		defer f.Close()

		var action = actionForward
		var offset int64
		var lastN int64

		prng := rand.New(rand.NewSource(time.Now().UnixNano()))
		buf := make([]byte, 739+2000)

		for i := 1; i < readsPerWorker; i++ {
			if atomic.LoadInt64(&running) != 1 {
				log.Printf("[%d] winding down...", workerNum)
				return
			}

			if i%printInterval == 0 {
				stats := f.Stats()
				log.Printf("[%d] %d reads... (%d transport calls, %d cache hits, %d prefetches used)",
					workerNum, i, stats.TransportCalls, stats.CacheHits, stats.PrefetchesUsed)
			}

			x := prng.Int63() % 100
			switch {
			case x < 80:
				action = actionForward
			case x < 90:
				action = actionSeekForwardLittle
			case x < 95:
				action = actionSeekBackLittle
			case x < 97:
				action = actionSeekForwardLarge
			default:
				action = actionSeekBackLarge
			}

			var newOffset int64
			var readSize int64

			switch action {
			case actionForward:
				newOffset = offset + lastN
			case actionSeekForwardLittle:
				newOffset = offset + lastN + prng.Int63()%1024
			case actionSeekBackLittle:
				newOffset = offset + lastN - prng.Int63()%1024
			case actionSeekForwardLarge:
				newOffset = offset + lastN + prng.Int63()%(1024*128)
			case actionSeekBackLarge:
				newOffset = offset + lastN - prng.Int63()%(1024*128)
			}

			if newOffset >= int64(len(fakeData)-1) {
				newOffset = int64(len(fakeData) - 2)
			}
			if newOffset < 0 {
				newOffset = 0
			}
			readSize = 1 + (prng.Int63() % int64(len(buf)-1))

			if newOffset+readSize > int64(len(fakeData)) {
				readSize = int64(len(fakeData)) - newOffset
			}

			if newOffset != offset {
				if err := f.Seek(uint64(newOffset)); err != nil {
					log.Printf("[%d] seek to %d failed: %+v", workerNum, newOffset, err)
					atomic.AddInt64(&numErrors, 1)
					return
				}
			}

			n, err := readFull(f, buf[:readSize])
			if err != nil && err != io.EOF {
				log.Printf("[%d] read at %d failed: %+v", workerNum, newOffset, err)
				atomic.AddInt64(&numErrors, 1)
				return
			}

			if !bytes.Equal(buf[:n], fakeData[newOffset:newOffset+int64(n)]) {
				log.Printf("[%d] %d bytes read at %d did not match", workerNum, n, newOffset)
				atomic.AddInt64(&numErrors, 1)
			}

			offset = newOffset
			lastN = int64(n)
		}
	}

	numWorkers := 3
	for i := 0; i < numWorkers; i++ {
		go worker(i)
	}

	for i := 0; i < numWorkers; i++ {
		select {
		case <-done:
		case <-sigChan:
			atomic.StoreInt64(&running, 0)
		}
	}

	total := atomic.LoadInt64(&numErrors)
	log.Printf("%d errors total", total)
	if total > 0 {
		return errors.Errorf("had %d (> 0) errors", total)
	}
	return nil
}

// readFull reads until buf is full or the file reports EOF, returning
// io.EOF when the file ends before buf is full.
func readFull(f *htfs.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 && f.EOF() {
			return total, io.EOF
		}
	}
	return total, nil
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
}
