package encoder

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"

	"github.com/junsooki/AirCall/internal/capture"
)

// CBOREncoder encodes frames as canonical CBOR maps.
type CBOREncoder struct {
	mode cbor.EncMode
}

func NewCBOREncoder() (*CBOREncoder, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor enc mode: %w", err)
	}
	return &CBOREncoder{mode: em}, nil
}

func (e *CBOREncoder) Name() string { return "cbor" }

func (e *CBOREncoder) Encode(f *capture.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	data, err := e.mode.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("cbor encode: %w", err)
	}
	return data, nil
}
