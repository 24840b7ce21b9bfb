package transport

import (
	"context"
	"fmt"
	"net"
	"syscall"
)

// TCP carries the call over a plain TCP connection. Listeners set
// SO_REUSEADDR (SO_EXCLUSIVEADDRUSE on Windows) so a restarted receiver can
// rebind while the previous socket lingers in TIME_WAIT.
type TCP struct{}

func NewTCP() *TCP { return &TCP{} }

func (t *TCP) Kind() string { return "tcp" }

func (t *TCP) Dial(addr string) (Conn, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp dial %s: %w", addr, err)
	}
	return c.(*net.TCPConn), nil
}

func (t *TCP) Listen(addr string) (Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var serr error
			if err := c.Control(func(fd uintptr) { serr = setReuseAddr(fd) }); err != nil {
				return err
			}
			return serr
		},
	}
	l, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp listen %s: %w", addr, err)
	}
	return &tcpListener{l: l}, nil
}

type tcpListener struct {
	l net.Listener
}

func (l *tcpListener) Accept() (Conn, error) {
	c, err := l.l.Accept()
	if err != nil {
		return nil, err
	}
	return c.(*net.TCPConn), nil
}

func (l *tcpListener) Addr() net.Addr { return l.l.Addr() }
func (l *tcpListener) Close() error   { return l.l.Close() }
