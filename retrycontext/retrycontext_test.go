package retrycontext_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rhythmcache/pravaha/retrycontext"
)

func Test_Retry(t *testing.T) {
	var markerError = errors.New("marker")
	var failCount int

	run := func() error {
		ctx := retrycontext.NewDefault()
		ctx.Settings.NoSleep = true
		ctx.Settings.MaxTries = 3

		for ctx.ShouldTry() {
			if failCount > 0 {
				failCount--
				ctx.Retry(errors.New("retrying"))
				continue
			}

			return nil
		}

		return markerError
	}

	failCount = 0
	assert.NoError(t, run())

	failCount = 1
	assert.NoError(t, run())

	// MaxTries counts retries past the first attempt, so three failures
	// still leave a fourth, successful try.
	failCount = 3
	assert.NoError(t, run())

	failCount = 4
	assert.Error(t, run())

	failCount = 5
	assert.Error(t, run())
}

func Test_LastErrorRecorded(t *testing.T) {
	ctx := retrycontext.New(retrycontext.Settings{MaxTries: 1, NoSleep: true})
	boom := errors.New("boom")

	assert.True(t, ctx.ShouldTry())
	ctx.Retry(boom)
	assert.Equal(t, boom, ctx.LastError)
	assert.True(t, ctx.ShouldTry())
	ctx.Retry(boom)
	assert.False(t, ctx.ShouldTry())
}

func Test_NoSleepSkipsBackoff(t *testing.T) {
	ctx := retrycontext.New(retrycontext.Settings{
		MaxTries:  100,
		BaseDelay: time.Millisecond,
		MaxDelay:  10 * time.Millisecond,
		NoSleep:   true,
	})

	start := time.Now()
	for i := 0; i < 30 && ctx.ShouldTry(); i++ {
		ctx.Retry(errors.New("x"))
	}
	// NoSleep means this should be near-instant regardless of how large
	// the theoretical backoff would have grown.
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
