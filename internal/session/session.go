// Package session runs one call: role selection, connect or listen/accept,
// and the streaming loop until the call ends.
//
// Sender:   Idle → Connecting → Streaming → Closed
// Receiver: Idle → Listening → Accepted → Streaming → Closed
//
// Cancellation is cooperative and only observed between frames. Dial,
// accept and read block without timeout.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junsooki/AirCall/internal/transport"
)

// ErrConnect wraps a failure to establish the outbound connection.
var ErrConnect = errors.New("connect failed")

// Role is one of the two asymmetric call participants.
type Role int

const (
	RoleSender Role = iota
	RoleReceiver
)

func (r Role) String() string {
	switch r {
	case RoleSender:
		return "sender"
	case RoleReceiver:
		return "receiver"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// State is a session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateListening
	StateAccepted
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateAccepted:
		return "accepted"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EndReason says why a streaming loop stopped.
type EndReason string

const (
	EndCancelled     EndReason = "cancelled"
	EndExhausted     EndReason = "source exhausted"
	EndStreamClosed  EndReason = "stream closed"
	EndError         EndReason = "error"
	EndLocalShutdown EndReason = "local shutdown"
)

// Summary describes a finished session.
type Summary struct {
	SessionID string
	Role      Role
	Peer      string
	Frames    uint64
	Bytes     uint64
	Reason    EndReason
}

// Session is one call. It exclusively owns its connection.
type Session struct {
	ID   string
	Role Role

	log *zap.Logger

	mu     sync.Mutex
	state  State
	conn   transport.Conn
	peer   net.Addr
	closed bool
}

func newSession(role Role, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		ID:   id,
		Role: role,
		log:  log.With(zap.String("session", id), zap.Stringer("role", role)),
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	s.log.Debug("state", zap.Stringer("from", prev), zap.Stringer("to", st))
}

func (s *Session) attach(c transport.Conn) {
	s.mu.Lock()
	s.conn = c
	s.peer = c.RemoteAddr()
	s.mu.Unlock()
}

// Peer returns the remote address, or "" before the connection exists.
func (s *Session) Peer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer == nil {
		return ""
	}
	return s.peer.String()
}

// closeConn closes the connection once. It reports whether this call did
// the closing.
func (s *Session) closeConn() bool {
	s.mu.Lock()
	c := s.conn
	first := !s.closed && c != nil
	if first {
		s.closed = true
	}
	s.mu.Unlock()
	if first {
		closeQuietly(s.log, "connection", c)
	}
	return first
}

// closeWrite tells the peer nothing more will be sent. Connections without
// half-close support are closed outright.
func (s *Session) closeWrite() {
	s.mu.Lock()
	c := s.conn
	closed := s.closed
	s.mu.Unlock()
	if closed || c == nil {
		return
	}
	if hc, ok := c.(transport.HalfCloser); ok {
		if err := hc.CloseWrite(); err != nil {
			s.log.Warn("half-close failed", zap.Error(err))
		}
		return
	}
	s.closeConn()
}

func (s *Session) locallyClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) summary(frames, bytes uint64, reason EndReason) Summary {
	return Summary{
		SessionID: s.ID,
		Role:      s.Role,
		Peer:      s.Peer(),
		Frames:    frames,
		Bytes:     bytes,
		Reason:    reason,
	}
}

// acceptOne waits for a single caller and then stops listening. Accept has
// no timeout; a done ctx closes the listener to end the wait, and the
// context error is returned.
func acceptOne(ctx context.Context, log *zap.Logger, ln transport.Listener) (transport.Conn, error) {
	stop := context.AfterFunc(ctx, func() { closeQuietly(log, "listener", ln) })
	conn, err := ln.Accept()
	stop()
	closeQuietly(log, "listener", ln)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return conn, err
}

// closeQuietly releases a resource on the way out. Failures are logged and
// never returned: by the time cleanup runs the session outcome is decided.
func closeQuietly(log *zap.Logger, what string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warn("release failed", zap.String("resource", what), zap.Error(err))
	}
}
