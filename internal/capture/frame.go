package capture

import (
	"errors"
	"fmt"
	"image"
)

// MaxDimension bounds frame height and width.
const MaxDimension = 1 << 14

// ErrInvalidFrame is returned by Frame.Validate.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is one raw captured image: Height rows of Width pixels with Channels
// interleaved bytes each, row-major, no padding.
type Frame struct {
	Seq      uint64 `msgpack:"seq" cbor:"seq"`
	Height   int    `msgpack:"h" cbor:"h"`
	Width    int    `msgpack:"w" cbor:"w"`
	Channels int    `msgpack:"c" cbor:"c"`
	Pix      []byte `msgpack:"pix" cbor:"pix"`
}

// Validate checks that the shape is supported and Pix matches it.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if f.Height <= 0 || f.Width <= 0 || f.Height > MaxDimension || f.Width > MaxDimension {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	switch f.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("%w: %d channels", ErrInvalidFrame, f.Channels)
	}
	if want := f.Height * f.Width * f.Channels; len(f.Pix) != want {
		return fmt.Errorf("%w: %d pixel bytes, want %d", ErrInvalidFrame, len(f.Pix), want)
	}
	return nil
}

// Equal reports whether both frames have the same shape and pixel content.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.Height != o.Height || f.Width != o.Width || f.Channels != o.Channels {
		return false
	}
	return string(f.Pix) == string(o.Pix)
}

// FromRGBA wraps an RGBA image as a 4-channel frame. Pix is copied only when
// the image rows are padded.
func FromRGBA(img *image.RGBA, seq uint64) *Frame {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	pix := img.Pix
	if img.Stride != w*4 || len(pix) != w*h*4 {
		pix = make([]byte, w*h*4)
		for y := 0; y < h; y++ {
			off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
			copy(pix[y*w*4:(y+1)*w*4], img.Pix[off:off+w*4])
		}
	}
	return &Frame{Seq: seq, Height: h, Width: w, Channels: 4, Pix: pix}
}

// RGBA converts the frame to an opaque RGBA image for display.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	switch f.Channels {
	case 4:
		copy(img.Pix, f.Pix)
	case 3:
		for i, j := 0, 0; i+2 < len(f.Pix); i, j = i+3, j+4 {
			img.Pix[j] = f.Pix[i]
			img.Pix[j+1] = f.Pix[i+1]
			img.Pix[j+2] = f.Pix[i+2]
			img.Pix[j+3] = 0xff
		}
	case 1:
		for i, j := 0, 0; i < len(f.Pix); i, j = i+1, j+4 {
			v := f.Pix[i]
			img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = v, v, v, 0xff
		}
	}
	return img
}
