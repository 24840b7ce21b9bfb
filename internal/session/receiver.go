package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/junsooki/AirCall/internal/decoder"
	"github.com/junsooki/AirCall/internal/display"
	"github.com/junsooki/AirCall/internal/framing"
	"github.com/junsooki/AirCall/internal/transport"
)

// Receiver waits for exactly one caller and displays its frames.
type Receiver struct {
	Transport       transport.Transport
	Addr            string
	Decoder         decoder.Decoder
	Sink            display.Sink
	MaxMessageBytes uint64
	Log             *zap.Logger
}

// Run binds Addr and serves one call on it.
func (r *Receiver) Run(ctx context.Context) (Summary, error) {
	sess := newSession(RoleReceiver, r.Log)
	sess.setState(StateListening)
	ln, err := r.Transport.Listen(r.Addr)
	if err != nil {
		closeQuietly(sess.log, "sink", r.Sink)
		sess.setState(StateClosed)
		return sess.summary(0, 0, EndError), fmt.Errorf("listen: %w", err)
	}
	return r.serve(ctx, sess, ln)
}

// Serve accepts one caller on an already bound listener and streams until
// the caller hangs up, the user cancels, or an error occurs. The listener,
// the connection and the sink are released on every path.
func (r *Receiver) Serve(ctx context.Context, ln transport.Listener) (Summary, error) {
	sess := newSession(RoleReceiver, r.Log)
	sess.setState(StateListening)
	return r.serve(ctx, sess, ln)
}

func (r *Receiver) serve(ctx context.Context, sess *Session, ln transport.Listener) (Summary, error) {
	defer closeQuietly(sess.log, "sink", r.Sink)

	sess.log.Info("waiting for caller", zap.Stringer("addr", ln.Addr()))
	conn, err := acceptOne(ctx, sess.log, ln)
	if err != nil {
		sess.setState(StateClosed)
		if ctx.Err() != nil {
			sess.log.Info("stopped waiting for caller")
			return sess.summary(0, 0, EndCancelled), nil
		}
		return sess.summary(0, 0, EndError), fmt.Errorf("accept: %w", err)
	}
	sess.attach(conn)
	defer sess.closeConn()
	sess.setState(StateAccepted)
	sess.log.Info("call received", zap.String("peer", sess.Peer()))

	sess.setState(StateStreaming)
	frames, bytes, reason, err := r.recvLoop(ctx, sess, conn)
	sess.setState(StateClosed)
	return finish(sess, frames, bytes, reason, err)
}

func (r *Receiver) recvLoop(ctx context.Context, sess *Session, rd io.Reader) (frames, bytes uint64, reason EndReason, err error) {
	fr := framing.NewReader(rd, r.MaxMessageBytes)
	for {
		payload, err := fr.ReadMessage()
		if errors.Is(err, framing.ErrStreamClosed) {
			return frames, bytes, EndStreamClosed, nil
		}
		if err != nil {
			return frames, bytes, EndError, fmt.Errorf("receive: %w", err)
		}

		f, err := r.Decoder.Decode(payload)
		if err != nil {
			return frames, bytes, EndError, err
		}
		frames++
		bytes += uint64(framing.HeaderSize + len(payload))

		cancel, err := r.Sink.Show(f)
		if err != nil {
			return frames, bytes, EndError, fmt.Errorf("display: %w", err)
		}
		if cancel || ctx.Err() != nil {
			sess.log.Info("hang up requested")
			return frames, bytes, EndCancelled, nil
		}
	}
}
