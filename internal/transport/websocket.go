package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWebSocketPath is the endpoint the receiver serves when none is set.
const DefaultWebSocketPath = "/call"

// WebSocket carries the call byte stream inside binary WebSocket messages.
// Message boundaries carry no meaning; the framing layer above delimits
// frames on its own.
type WebSocket struct {
	path     string
	upgrader websocket.Upgrader
}

func NewWebSocket(path string) *WebSocket {
	if path == "" {
		path = DefaultWebSocketPath
	}
	return &WebSocket{
		path: path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (t *WebSocket) Kind() string { return "ws" }

func (t *WebSocket) Dial(addr string) (Conn, error) {
	url := fmt.Sprintf("ws://%s%s", addr, t.path)
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	return newWSConn(c), nil
}

// Listen binds addr (with SO_REUSEADDR, through the TCP transport) and
// serves upgrades on the configured path. Only the first caller is handed
// to Accept; later ones are turned away.
func (t *WebSocket) Listen(addr string) (Listener, error) {
	tl, err := NewTCP().Listen(addr)
	if err != nil {
		return nil, err
	}
	raw := tl.(*tcpListener).l

	l := &wsListener{
		addr:   raw.Addr(),
		connCh: make(chan Conn, 1),
		done:   make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(t.path, func(w http.ResponseWriter, r *http.Request) {
		if !l.claim() {
			http.Error(w, "call already in progress", http.StatusServiceUnavailable)
			return
		}
		c, err := t.upgrader.Upgrade(w, r, nil)
		if err != nil {
			l.release()
			return
		}
		l.connCh <- newWSConn(c)
	})
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := l.srv.Serve(raw); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.setErr(err)
		}
		close(l.done)
	}()
	return l, nil
}

type wsListener struct {
	addr   net.Addr
	srv    *http.Server
	connCh chan Conn
	done   chan struct{}

	mu      sync.Mutex
	claimed bool
	err     error
}

func (l *wsListener) claim() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed {
		return false
	}
	l.claimed = true
	return true
}

func (l *wsListener) release() {
	l.mu.Lock()
	l.claimed = false
	l.mu.Unlock()
}

func (l *wsListener) setErr(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

func (l *wsListener) Accept() (Conn, error) {
	select {
	case c := <-l.connCh:
		return c, nil
	case <-l.done:
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.err != nil {
			return nil, l.err
		}
		return nil, net.ErrClosed
	}
}

func (l *wsListener) Addr() net.Addr { return l.addr }

// Close stops serving upgrades. Connections already handed out stay open.
func (l *wsListener) Close() error {
	return l.srv.Close()
}

// wsConn adapts a WebSocket connection to a byte stream.
type wsConn struct {
	c *websocket.Conn
	r io.Reader
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{c: c}
}

func (w *wsConn) Read(p []byte) (int, error) {
	for {
		if w.r == nil {
			mt, r, err := w.c.NextReader()
			if err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					return 0, io.EOF
				}
				return 0, err
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			w.r = r
		}
		n, err := w.r.Read(p)
		if errors.Is(err, io.EOF) {
			w.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.c.WriteMessage(websocket.BinaryMessage, p); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return 0, net.ErrClosed
		}
		return 0, err
	}
	return len(p), nil
}

// Close sends a close frame and tears down the connection. The close frame
// is best effort.
func (w *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return w.c.Close()
}

func (w *wsConn) RemoteAddr() net.Addr { return w.c.RemoteAddr() }
