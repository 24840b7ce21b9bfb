package decoder

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/junsooki/AirCall/internal/capture"
)

// MsgpackDecoder decodes MessagePack frames.
type MsgpackDecoder struct{}

func NewMsgpackDecoder() *MsgpackDecoder {
	return &MsgpackDecoder{}
}

func (d *MsgpackDecoder) Name() string { return "msgpack" }

func (d *MsgpackDecoder) Decode(data []byte) (*capture.Frame, error) {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	dec.DisallowUnknownFields(true)

	var f capture.Frame
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDecode, r.Len())
	}
	return checked(&f)
}
