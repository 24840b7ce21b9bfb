// Package display renders received frames and reports the user's request to
// hang up.
package display

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/junsooki/AirCall/internal/capture"
)

// Sink renders frames. Show displays one frame and polls the cancel signal
// exactly once, returning true when the user asked to end the call.
type Sink interface {
	Show(f *capture.Frame) (cancel bool, err error)
	Close() error
}

// Options selects and configures a Sink.
type Options struct {
	Kind      string // window or headless
	Title     string
	MaxFrames int // headless only: request cancel after this many frames
}

// Open returns the Sink named by opts.Kind. A window sink must additionally
// be driven with Run on the main goroutine.
func Open(opts Options, log *zap.Logger) (Sink, error) {
	switch opts.Kind {
	case "window", "":
		return NewWindow(opts.Title), nil
	case "headless":
		return NewHeadless(opts.MaxFrames, log), nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", opts.Kind)
	}
}
