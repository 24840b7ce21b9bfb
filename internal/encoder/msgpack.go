package encoder

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/junsooki/AirCall/internal/capture"
)

// MsgpackEncoder encodes frames as MessagePack maps.
type MsgpackEncoder struct{}

func NewMsgpackEncoder() *MsgpackEncoder {
	return &MsgpackEncoder{}
}

func (e *MsgpackEncoder) Name() string { return "msgpack" }

func (e *MsgpackEncoder) Encode(f *capture.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(f.Pix) + 64)
	if err := msgpack.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	return buf.Bytes(), nil
}
