package cabi

// C-string bridging lives in its own cgo file so the package's tests can
// reach it: cgo is unavailable inside _test.go files.

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

func cString(s string) *C.char {
	return C.CString(s)
}

func goString(s *C.char) string {
	return C.GoString(s)
}

func freeCString(s *C.char) {
	C.free(unsafe.Pointer(s))
}
