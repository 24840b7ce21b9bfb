// Package decoder rebuilds frames from message payloads produced by the
// encoder package.
package decoder

import (
	"errors"
	"fmt"

	"github.com/junsooki/AirCall/internal/capture"
)

// ErrDecode marks a payload that cannot be turned back into a valid frame.
// It is fatal to the session.
var ErrDecode = errors.New("frame decode failed")

// Decoder decodes bytes into a frame.
type Decoder interface {
	Decode(data []byte) (*capture.Frame, error)
	Name() string
}

// New returns the decoder registered under name ("msgpack" or "cbor").
func New(name string) (Decoder, error) {
	switch name {
	case "msgpack", "":
		return NewMsgpackDecoder(), nil
	case "cbor":
		return NewCBORDecoder()
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

func checked(f *capture.Frame) (*capture.Frame, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return f, nil
}
