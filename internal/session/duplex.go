package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/AirCall/internal/capture"
	"github.com/junsooki/AirCall/internal/decoder"
	"github.com/junsooki/AirCall/internal/display"
	"github.com/junsooki/AirCall/internal/encoder"
	"github.com/junsooki/AirCall/internal/transport"
)

// Duplex runs a two-way call: after connecting, a send loop and a receive
// loop run concurrently over the two directions of the one connection.
//
// A send loop whose source runs dry half-closes the connection so the peer
// still gets the rest of its frames. A hang-up or an error on either side
// closes the whole connection, which ends the other loop too.
type Duplex struct {
	Transport       transport.Transport
	Addr            string
	Source          capture.Source
	Encoder         encoder.Encoder
	Decoder         decoder.Decoder
	Sink            display.Sink
	MaxMessageBytes uint64
	Log             *zap.Logger
}

// DuplexSummary reports both directions of a finished two-way call.
type DuplexSummary struct {
	Sent     Summary
	Received Summary
}

// Run dials Addr when role is RoleSender, or listens on it and accepts one
// caller when role is RoleReceiver, then streams in both directions.
func (d *Duplex) Run(ctx context.Context, role Role) (DuplexSummary, error) {
	sess := newSession(role, d.Log)
	defer closeQuietly(sess.log, "sink", d.Sink)
	defer closeQuietly(sess.log, "source", d.Source)

	conn, err := d.connect(ctx, sess, role)
	if err != nil {
		sess.setState(StateClosed)
		if role == RoleReceiver && ctx.Err() != nil {
			sess.log.Info("stopped waiting for caller")
			empty := sess.summary(0, 0, EndCancelled)
			return DuplexSummary{Sent: empty, Received: empty}, nil
		}
		empty := sess.summary(0, 0, EndError)
		return DuplexSummary{Sent: empty, Received: empty}, err
	}
	sess.attach(conn)
	defer sess.closeConn()
	sess.log.Info("two-way call established", zap.String("peer", sess.Peer()))
	sess.setState(StateStreaming)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	snd := &Sender{Source: d.Source, Encoder: d.Encoder, MaxMessageBytes: d.MaxMessageBytes}
	rcv := &Receiver{Decoder: d.Decoder, Sink: d.Sink, MaxMessageBytes: d.MaxMessageBytes}

	var sent, received Summary
	var g errgroup.Group
	g.Go(func() error {
		frames, bytes, reason, err := snd.sendLoop(loopCtx, sess, conn)
		reason, err = settle(sess, cancel, reason, err)
		sent, err = finish(sess, frames, bytes, reason, err)
		return err
	})
	g.Go(func() error {
		frames, bytes, reason, err := rcv.recvLoop(loopCtx, sess, conn)
		reason, err = settle(sess, cancel, reason, err)
		received, err = finish(sess, frames, bytes, reason, err)
		return err
	})
	err = g.Wait()
	sess.setState(StateClosed)
	return DuplexSummary{Sent: sent, Received: received}, err
}

func (d *Duplex) connect(ctx context.Context, sess *Session, role Role) (transport.Conn, error) {
	if role == RoleSender {
		sess.setState(StateConnecting)
		conn, err := d.Transport.Dial(d.Addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnect, err)
		}
		return conn, nil
	}

	sess.setState(StateListening)
	ln, err := d.Transport.Listen(d.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	sess.log.Info("waiting for caller", zap.Stringer("addr", ln.Addr()))
	conn, err := acceptOne(ctx, sess.log, ln)
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}
	sess.setState(StateAccepted)
	return conn, nil
}

// settle applies the connection side effects of one direction ending.
// A cancel, error or closed stream seen after the other direction already
// closed the connection is a consequence of that close, not an outcome of
// its own.
func settle(sess *Session, stopOther context.CancelFunc, reason EndReason, err error) (EndReason, error) {
	if sess.locallyClosed() && (err != nil || reason == EndCancelled || reason == EndStreamClosed) {
		return EndLocalShutdown, nil
	}
	switch {
	case err != nil, reason == EndCancelled:
		sess.closeConn()
		stopOther()
	case reason == EndExhausted:
		sess.closeWrite()
	}
	return reason, err
}
