package capture

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PatternSource generates a moving RGB gradient. It stands in for a camera
// on headless machines.
type PatternSource struct {
	width, height int
	limit         int

	mu     sync.Mutex
	ticker *time.Ticker
	seq    uint64
	closed bool
}

// NewPatternSource creates a width x height RGB source emitting fps frames per
// second. fps <= 0 emits as fast as the caller pulls. limit > 0 exhausts the
// source after that many frames.
func NewPatternSource(width, height, fps, limit int) (*PatternSource, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("pattern size %dx%d out of range", width, height)
	}
	if fps > 240 {
		return nil, fmt.Errorf("fps must be at most 240, got %d", fps)
	}
	s := &PatternSource{width: width, height: height, limit: limit}
	if fps > 0 {
		s.ticker = time.NewTicker(time.Second / time.Duration(fps))
	}
	return s, nil
}

func (s *PatternSource) Next(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	if s.closed || (s.limit > 0 && s.seq >= uint64(s.limit)) {
		s.mu.Unlock()
		return nil, ErrExhausted
	}
	ticker := s.ticker
	s.mu.Unlock()

	if ticker != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrExhausted
	}
	s.seq++
	return s.render(s.seq), nil
}

func (s *PatternSource) render(seq uint64) *Frame {
	pix := make([]byte, s.width*s.height*3)
	shift := int(seq)
	for y := 0; y < s.height; y++ {
		row := pix[y*s.width*3:]
		for x := 0; x < s.width; x++ {
			row[x*3] = byte(x + shift)
			row[x*3+1] = byte(y + shift)
			row[x*3+2] = byte(x ^ y)
		}
	}
	return &Frame{Seq: seq, Height: s.height, Width: s.width, Channels: 3, Pix: pix}
}

func (s *PatternSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ticker != nil {
		s.ticker.Stop()
	}
	return nil
}
