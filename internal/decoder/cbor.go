package decoder

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"

	"github.com/junsooki/AirCall/internal/capture"
)

// CBORDecoder decodes CBOR frames.
type CBORDecoder struct {
	mode cbor.DecMode
}

func NewCBORDecoder() (*CBORDecoder, error) {
	dm, err := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor dec mode: %w", err)
	}
	return &CBORDecoder{mode: dm}, nil
}

func (d *CBORDecoder) Name() string { return "cbor" }

func (d *CBORDecoder) Decode(data []byte) (*capture.Frame, error) {
	var f capture.Frame
	if err := d.mode.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return checked(&f)
}
