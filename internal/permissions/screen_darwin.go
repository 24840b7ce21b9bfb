//go:build darwin

// Package permissions checks the macOS privacy permissions the screen source
// depends on.
package permissions

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>

static int preflightScreenCapture(void) {
    return CGPreflightScreenCaptureAccess();
}

static int requestScreenCapture(void) {
    return CGRequestScreenCaptureAccess();
}
*/
import "C"

// HasScreenRecording reports whether the process may capture the screen.
func HasScreenRecording() bool {
	return C.preflightScreenCapture() != 0
}

// RequestScreenRecording shows the system prompt. The grant only takes
// effect after the process restarts.
func RequestScreenRecording() bool {
	return C.requestScreenCapture() != 0
}
