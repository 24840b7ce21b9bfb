//go:build darwin

package capture

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>
#include <dlfcn.h>
#include <stdlib.h>

typedef struct {
    void*  data;
    size_t size;
    int    width;
    int    height;
    size_t bytesPerRow;
} FrameData;

// CGWindowListCreateImage is unavailable in the macOS 15 SDK headers but still
// present in the CoreGraphics dylib. Load it dynamically.
typedef CGImageRef (*CGWindowListCreateImageFunc)(
    CGRect screenBounds,
    uint32_t listOption,
    uint32_t windowID,
    uint32_t imageOption
);

static CGWindowListCreateImageFunc getCGWindowListCreateImage(void) {
    static CGWindowListCreateImageFunc fn = NULL;
    if (!fn) {
        fn = (CGWindowListCreateImageFunc)dlsym(RTLD_DEFAULT, "CGWindowListCreateImage");
    }
    return fn;
}

FrameData captureDisplay(CGDirectDisplayID displayID) {
    FrameData result = {0};

    CGWindowListCreateImageFunc fn = getCGWindowListCreateImage();
    if (!fn) {
        return result;
    }

    CGRect bounds = CGDisplayBounds(displayID);
    // kCGWindowListOptionOnScreenOnly = 1, kCGNullWindowID = 0, kCGWindowImageDefault = 0
    CGImageRef image = fn(bounds, 1, 0, 0);
    if (!image) {
        return result;
    }

    result.width  = (int)CGImageGetWidth(image);
    result.height = (int)CGImageGetHeight(image);

    result.bytesPerRow = result.width * 4;
    result.size        = result.bytesPerRow * result.height;
    result.data        = malloc(result.size);
    if (!result.data) {
        CGImageRelease(image);
        result.size = 0;
        return result;
    }

    CGColorSpaceRef cs = CGColorSpaceCreateDeviceRGB();
    CGContextRef ctx = CGBitmapContextCreate(
        result.data,
        result.width,
        result.height,
        8,
        result.bytesPerRow,
        cs,
        kCGImageAlphaPremultipliedLast
    );
    CGContextDrawImage(ctx, CGRectMake(0, 0, result.width, result.height), image);
    CGContextRelease(ctx);
    CGColorSpaceRelease(cs);
    CGImageRelease(image);

    return result;
}

void freeFrameData(void* data) {
    free(data);
}
*/
import "C"

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/junsooki/AirCall/internal/permissions"
)

// ScreenSource captures a display through CoreGraphics.
type ScreenSource struct {
	displayID C.CGDirectDisplayID
	ticker    *time.Ticker

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// NewScreenSource creates a screen source for the given display at the given FPS.
func NewScreenSource(displayIndex int, fps int) (Source, error) {
	if fps <= 0 || fps > 60 {
		return nil, fmt.Errorf("fps must be 1-60, got %d", fps)
	}
	if !permissions.HasScreenRecording() {
		permissions.RequestScreenRecording()
		return nil, fmt.Errorf("screen recording permission not granted; grant it in System Settings and restart")
	}

	var displayID C.CGDirectDisplayID
	if displayIndex == 0 {
		displayID = C.CGMainDisplayID()
	} else {
		var displays [16]C.CGDirectDisplayID
		var count C.uint32_t
		C.CGGetActiveDisplayList(16, &displays[0], &count)
		if displayIndex >= int(count) {
			return nil, fmt.Errorf("display index %d out of range (have %d displays)", displayIndex, count)
		}
		displayID = displays[displayIndex]
	}

	return &ScreenSource{
		displayID: displayID,
		ticker:    time.NewTicker(time.Second / time.Duration(fps)),
	}, nil
}

// Next waits for the next tick and grabs the display. A display that stops
// returning images exhausts the source.
func (s *ScreenSource) Next(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrExhausted
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ticker.C:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrExhausted
	}
	f := s.grab()
	if f == nil {
		return nil, ErrExhausted
	}
	return f, nil
}

func (s *ScreenSource) grab() *Frame {
	fd := C.captureDisplay(s.displayID)
	if fd.data == nil {
		return nil
	}
	defer C.freeFrameData(fd.data)

	img := &image.RGBA{
		Pix:    C.GoBytes(fd.data, C.int(fd.size)),
		Stride: int(fd.bytesPerRow),
		Rect:   image.Rect(0, 0, int(fd.width), int(fd.height)),
	}
	s.seq++
	return FromRGBA(img, s.seq)
}

func (s *ScreenSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.ticker.Stop()
	}
	return nil
}
