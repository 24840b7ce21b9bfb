//go:build gst

package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
	"go.uber.org/zap"
)

const (
	CameraBuiltIn = true
	DefaultKind   = "camera"
)

// CameraSource pulls raw RGB frames from a GStreamer capture pipeline:
//
//	v4l2src → videoconvert → videoscale → capsfilter(RGB) → appsink
//
// The appsink keeps a single buffer and never drops, so a slow consumer
// stalls the device instead of skipping frames.
type CameraSource struct {
	pipeline *gst.Pipeline
	sink     *app.Sink
	width    int
	height   int

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// NewCameraSource opens device (empty selects the platform default camera)
// scaled to width x height at fps.
func NewCameraSource(device string, width, height, fps int) (Source, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("camera size %dx%d out of range", width, height)
	}
	if fps <= 0 || fps > 60 {
		return nil, fmt.Errorf("fps must be 1-60, got %d", fps)
	}

	gst.Init(nil)

	src := "autovideosrc"
	if device != "" {
		src = fmt.Sprintf("v4l2src device=%s", device)
	}
	launch := fmt.Sprintf(
		"%s ! videoconvert ! videoscale ! videorate ! "+
			"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1 ! "+
			"appsink name=frames sync=false max-buffers=1 drop=false",
		src, width, height, fps)

	pipeline, err := gst.NewPipelineFromString(launch)
	if err != nil {
		return nil, fmt.Errorf("create capture pipeline: %w", err)
	}
	elem, err := pipeline.GetElementByName("frames")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("find appsink: %w", err)
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("start capture pipeline: %w", err)
	}
	zap.L().Debug("camera pipeline playing", zap.String("launch", launch))

	return &CameraSource{
		pipeline: pipeline,
		sink:     app.SinkFromElement(elem),
		width:    width,
		height:   height,
	}, nil
}

// Next blocks until the pipeline delivers a sample. End of stream or a
// stopped pipeline exhausts the source.
func (c *CameraSource) Next(ctx context.Context) (*Frame, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrExhausted
	}
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sample := c.sink.PullSample()
	if sample == nil {
		return nil, ErrExhausted
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, ErrExhausted
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	pix := make([]byte, len(data))
	copy(pix, data)
	buffer.Unmap()

	want := c.width * c.height * 3
	if len(pix) != want {
		return nil, fmt.Errorf("camera buffer is %d bytes, want %d", len(pix), want)
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	return &Frame{Seq: seq, Height: c.height, Width: c.width, Channels: 3, Pix: pix}, nil
}

func (c *CameraSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("stop capture pipeline: %w", err)
	}
	return nil
}
