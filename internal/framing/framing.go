// Package framing implements the length-prefixed message layer used on the
// call connection.
//
// Wire format:
//
//	message := length (8 bytes, little-endian uint64, value N) || payload (N bytes)
//
// There is no magic number, checksum or version field.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// HeaderSize is the size of the length prefix in bytes.
const HeaderSize = 8

// DefaultMaxMessageSize bounds the payload a Reader accepts (64 MiB).
const DefaultMaxMessageSize = 64 << 20

var (
	// ErrStreamClosed is returned when the peer has gone away: the stream
	// ended before a complete message was read (including a clean close
	// between messages), or it was reset or closed under a write.
	ErrStreamClosed = errors.New("stream closed")

	// ErrProtocol is returned when the stream violates the wire format.
	ErrProtocol = errors.New("protocol error")

	// ErrMessageTooLarge is returned when a header announces a payload larger
	// than the reader's limit. It wraps ErrProtocol.
	ErrMessageTooLarge = fmt.Errorf("%w: message too large", ErrProtocol)
)

// Encode returns payload prefixed with its 8-byte length header.
func Encode(payload []byte) []byte {
	msg := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint64(msg[:HeaderSize], uint64(len(payload)))
	copy(msg[HeaderSize:], payload)
	return msg
}

// Decode reads one complete message from r and returns its payload.
// maxSize of zero means DefaultMaxMessageSize.
func Decode(r io.Reader, maxSize uint64) ([]byte, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}

	var hdr [HeaderSize]byte
	if err := readFull(r, hdr[:]); err != nil {
		return nil, err
	}

	n := binary.LittleEndian.Uint64(hdr[:])
	if n > maxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrMessageTooLarge, n, maxSize)
	}

	payload := make([]byte, n)
	if err := readFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// readFull accumulates len(buf) bytes across as many reads as needed.
// A close before buf is full maps to ErrStreamClosed.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || peerGone(err) {
		return ErrStreamClosed
	}
	return err
}

func peerGone(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// Reader decodes messages from a byte stream. It is not safe for concurrent
// use, but a Reader and a Writer on the same connection share nothing.
type Reader struct {
	r       io.Reader
	maxSize uint64
}

// NewReader returns a Reader accepting payloads up to maxSize bytes
// (zero selects DefaultMaxMessageSize).
func NewReader(r io.Reader, maxSize uint64) *Reader {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Reader{r: r, maxSize: maxSize}
}

// ReadMessage returns the next complete payload, ErrStreamClosed, a wrapped
// ErrProtocol or the underlying transport error.
func (r *Reader) ReadMessage() ([]byte, error) {
	return Decode(r.r, r.maxSize)
}

// Writer encodes messages onto a byte stream.
type Writer struct {
	w       io.Writer
	maxSize uint64
}

// NewWriter returns a Writer on w that refuses payloads a Reader with the
// same maxSize would reject (zero selects DefaultMaxMessageSize).
func NewWriter(w io.Writer, maxSize uint64) *Writer {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Writer{w: w, maxSize: maxSize}
}

// WriteMessage writes the header and payload. On a net.Conn the two parts go
// out as one vectored write. A payload over the limit is not written and
// yields ErrMessageTooLarge. A peer that reset or closed the connection
// yields ErrStreamClosed.
func (w *Writer) WriteMessage(payload []byte) error {
	if n := uint64(len(payload)); n > w.maxSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrMessageTooLarge, n, w.maxSize)
	}
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(payload)))

	bufs := net.Buffers{hdr[:], payload}
	if _, err := bufs.WriteTo(w.w); err != nil {
		if peerGone(err) {
			return ErrStreamClosed
		}
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
