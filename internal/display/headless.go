package display

import (
	"sync"

	"go.uber.org/zap"

	"github.com/junsooki/AirCall/internal/capture"
)

// Headless logs frames instead of drawing them.
type Headless struct {
	log       *zap.Logger
	maxFrames int

	mu     sync.Mutex
	shown  int
	last   *capture.Frame
	closed bool
}

// NewHeadless creates a sink that requests cancel after maxFrames frames
// (0 never cancels).
func NewHeadless(maxFrames int, log *zap.Logger) *Headless {
	if log == nil {
		log = zap.NewNop()
	}
	return &Headless{log: log, maxFrames: maxFrames}
}

func (h *Headless) Show(f *capture.Frame) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shown++
	h.last = f
	h.log.Debug("frame",
		zap.Uint64("seq", f.Seq),
		zap.Int("width", f.Width),
		zap.Int("height", f.Height),
		zap.Int("channels", f.Channels))
	return h.maxFrames > 0 && h.shown >= h.maxFrames, nil
}

// Shown returns the number of frames displayed so far.
func (h *Headless) Shown() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shown
}

// Last returns the most recent frame, or nil.
func (h *Headless) Last() *capture.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
