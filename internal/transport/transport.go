// Package transport provides the single reliable, ordered byte stream a call
// runs over.
package transport

import (
	"fmt"
	"io"
	"net"
)

// Conn is one end of an established call connection.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
}

// HalfCloser is implemented by connections that can shut down their write
// direction while still reading.
type HalfCloser interface {
	CloseWrite() error
}

// Listener waits for callers on a bound address.
type Listener interface {
	// Accept blocks without timeout until a caller connects.
	Accept() (Conn, error)
	Addr() net.Addr
	Close() error
}

// Transport dials and listens for call connections.
type Transport interface {
	Dial(addr string) (Conn, error)
	Listen(addr string) (Listener, error)
	Kind() string
}

// New returns the transport for kind ("tcp" or "ws"). path is the WebSocket
// endpoint and is ignored for tcp.
func New(kind, path string) (Transport, error) {
	switch kind {
	case "tcp", "":
		return NewTCP(), nil
	case "ws":
		return NewWebSocket(path), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}
