// Package encoder serializes captured frames into message payloads.
package encoder

import (
	"fmt"

	"github.com/junsooki/AirCall/internal/capture"
)

// Encoder encodes a frame into bytes. Encoding is lossless: the matching
// decoder reproduces the frame exactly.
type Encoder interface {
	Encode(f *capture.Frame) ([]byte, error)
	Name() string
}

// New returns the encoder registered under name ("msgpack" or "cbor").
func New(name string) (Encoder, error) {
	switch name {
	case "msgpack", "":
		return NewMsgpackEncoder(), nil
	case "cbor":
		return NewCBOREncoder()
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
