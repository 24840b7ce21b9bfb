package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/junsooki/AirCall/internal/capture"
	"github.com/junsooki/AirCall/internal/framing"
	"github.com/junsooki/AirCall/internal/transport"
)

type fakeAddr string

func (a fakeAddr) Network() string { return "fake" }
func (a fakeAddr) String() string  { return string(a) }

// fakeConn reads from a fixed byte stream and records writes.
type fakeConn struct {
	r        *bytes.Reader
	writeErr error
	closeErr error

	mu      sync.Mutex
	written bytes.Buffer
	closed  bool
}

func newFakeConn(stream []byte) *fakeConn {
	return &fakeConn{r: bytes.NewReader(stream)}
}

func (c *fakeConn) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.Write(p)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) RemoteAddr() net.Addr { return fakeAddr("peer:1") }

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeListener struct {
	conn transport.Conn
	err  error

	mu     sync.Mutex
	closed bool
}

func (l *fakeListener) Accept() (transport.Conn, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.conn, nil
}

func (l *fakeListener) Addr() net.Addr { return fakeAddr("listen:1") }

func (l *fakeListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeListener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// idleListener never gets a caller; Accept blocks until Close.
type idleListener struct {
	once sync.Once
	done chan struct{}
}

func newIdleListener() *idleListener { return &idleListener{done: make(chan struct{})} }

func (l *idleListener) Accept() (transport.Conn, error) {
	<-l.done
	return nil, net.ErrClosed
}

func (l *idleListener) Addr() net.Addr { return fakeAddr("listen:2") }

func (l *idleListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

// quietConn has a peer that never sends: Read blocks until the connection
// is closed locally and then fails with net.ErrClosed. Writes are discarded.
type quietConn struct {
	once sync.Once
	done chan struct{}
}

func newQuietConn() *quietConn { return &quietConn{done: make(chan struct{})} }

func (c *quietConn) Read([]byte) (int, error) {
	<-c.done
	return 0, net.ErrClosed
}

func (c *quietConn) Write(p []byte) (int, error) {
	select {
	case <-c.done:
		return 0, net.ErrClosed
	default:
		return len(p), nil
	}
}

func (c *quietConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *quietConn) RemoteAddr() net.Addr { return fakeAddr("peer:2") }

type fakeTransport struct {
	conn    transport.Conn
	dialErr error
	ln      *fakeListener
}

func (t *fakeTransport) Kind() string { return "fake" }

func (t *fakeTransport) Dial(string) (transport.Conn, error) {
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	return t.conn, nil
}

func (t *fakeTransport) Listen(string) (transport.Listener, error) {
	return t.ln, nil
}

// sliceSource hands out a fixed list of frames, then reports exhaustion.
type sliceSource struct {
	mu     sync.Mutex
	frames []*capture.Frame
	next   int
	closed bool
}

func (s *sliceSource) Next(ctx context.Context) (*capture.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.next >= len(s.frames) {
		return nil, capture.ErrExhausted
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *sliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *sliceSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// recordingSink keeps every shown frame and asks to hang up after cancelAt
// frames (0 never).
type recordingSink struct {
	cancelAt int

	mu     sync.Mutex
	shown  []*capture.Frame
	closed bool
}

func (s *recordingSink) Show(f *capture.Frame) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, f)
	return s.cancelAt > 0 && len(s.shown) >= s.cancelAt, nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) frames() []*capture.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*capture.Frame(nil), s.shown...)
}

func (s *recordingSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func numbered(n int) []*capture.Frame {
	frames := make([]*capture.Frame, n)
	for i := range frames {
		frames[i] = &capture.Frame{
			Seq:      uint64(i + 1),
			Height:   2,
			Width:    3,
			Channels: 3,
			Pix:      bytes.Repeat([]byte{byte(i + 1)}, 18),
		}
	}
	return frames
}

type encodeFunc func(*capture.Frame) ([]byte, error)

func framedStream(enc encodeFunc, frames []*capture.Frame) ([]byte, []int, error) {
	var buf bytes.Buffer
	var sizes []int
	for _, f := range frames {
		p, err := enc(f)
		if err != nil {
			return nil, nil, err
		}
		msg := framing.Encode(p)
		sizes = append(sizes, len(msg))
		buf.Write(msg)
	}
	return buf.Bytes(), sizes, nil
}

var errBoom = errors.New("boom")

var _ io.ReadWriteCloser = (*fakeConn)(nil)
