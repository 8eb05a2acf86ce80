package cabi

// The C helper lives in this file's preamble rather than cabi.go's:
// cgo only allows declarations, not definitions, in the preamble of a
// file containing //export directives.

/*
#include <pthread.h>
#include <stdint.h>
#include <string.h>

static uint64_t pravaha_thread_id(void) {
	// pthread_t isn't guaranteed to be an integer type on every platform,
	// so this takes its address and reads the bytes as a uint64, good
	// enough for use as a map key distinguishing OS threads, which is all
	// this needs.
	pthread_t self = pthread_self();
	uint64_t id = 0;
	size_t n = sizeof(self) < sizeof(id) ? sizeof(self) : sizeof(id);
	memcpy(&id, &self, n);
	return id;
}
*/
import "C"

// currentThreadID identifies the calling OS thread. A goroutine running
// inside a cgo call is pinned to that call's OS thread for its duration,
// so within one C-ABI entry point this value is stable and genuinely
// thread-local.
func currentThreadID() uint64 {
	return uint64(C.pravaha_thread_id())
}
