package capture

import (
	"context"
	"errors"
	"fmt"
)

// ErrExhausted is returned by Source.Next once the device can deliver no more
// frames. A Source is not restartable after that.
var ErrExhausted = errors.New("source exhausted")

// Source produces frames at the device's native cadence.
type Source interface {
	// Next blocks until the next frame is available.
	Next(ctx context.Context) (*Frame, error)
	// Close releases the capture device.
	Close() error
}

// Options selects and configures a Source.
type Options struct {
	Kind    string // camera, screen or pattern
	Device  string // camera device path; empty picks the default camera
	Display int    // screen index, 0 = primary
	Width   int
	Height  int
	FPS     int
	Frames  int // pattern only: stop after this many frames, 0 = unbounded
}

// Open returns the Source named by opts.Kind.
func Open(opts Options) (Source, error) {
	switch opts.Kind {
	case "pattern", "":
		return NewPatternSource(opts.Width, opts.Height, opts.FPS, opts.Frames)
	case "camera":
		return NewCameraSource(opts.Device, opts.Width, opts.Height, opts.FPS)
	case "screen":
		return NewScreenSource(opts.Display, opts.FPS)
	default:
		return nil, fmt.Errorf("unknown source kind %q", opts.Kind)
	}
}
