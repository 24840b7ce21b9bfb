package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/junsooki/AirCall/internal/capture"
	"github.com/junsooki/AirCall/internal/display"
	"github.com/junsooki/AirCall/internal/encoder"
	"github.com/junsooki/AirCall/internal/framing"
	"github.com/junsooki/AirCall/internal/transport"
)

// Sender places a call and streams captured frames to the receiver.
type Sender struct {
	Transport transport.Transport
	Addr      string
	Source    capture.Source
	Encoder   encoder.Encoder
	// Preview, if set, shows each sent frame locally; a cancel reported
	// there hangs up.
	Preview display.Sink
	// MaxMessageBytes bounds one encoded frame; it should match the
	// receiver's limit. Zero selects framing.DefaultMaxMessageSize.
	MaxMessageBytes uint64
	Log             *zap.Logger
}

// Run dials once and streams until the source is exhausted, the user hangs
// up, ctx is done, or a send fails. Source, preview and connection are
// released on every path. A dial failure wraps ErrConnect.
func (s *Sender) Run(ctx context.Context) (Summary, error) {
	sess := newSession(RoleSender, s.Log)
	defer closeQuietly(sess.log, "preview", s.Preview)
	defer closeQuietly(sess.log, "source", s.Source)

	sess.setState(StateConnecting)
	conn, err := s.Transport.Dial(s.Addr)
	if err != nil {
		sess.setState(StateClosed)
		sess.log.Error("could not connect; is the other side listening?", zap.String("addr", s.Addr), zap.Error(err))
		return sess.summary(0, 0, EndError), fmt.Errorf("%w: %w", ErrConnect, err)
	}
	sess.attach(conn)
	defer sess.closeConn()
	sess.log.Info("connected", zap.String("peer", sess.Peer()))

	sess.setState(StateStreaming)
	frames, bytes, reason, err := s.sendLoop(ctx, sess, conn)
	sess.setState(StateClosed)
	return finish(sess, frames, bytes, reason, err)
}

func (s *Sender) sendLoop(ctx context.Context, sess *Session, w io.Writer) (frames, bytes uint64, reason EndReason, err error) {
	fw := framing.NewWriter(w, s.MaxMessageBytes)
	for {
		if ctx.Err() != nil {
			return frames, bytes, EndCancelled, nil
		}

		f, err := s.Source.Next(ctx)
		switch {
		case errors.Is(err, capture.ErrExhausted):
			return frames, bytes, EndExhausted, nil
		case ctx.Err() != nil:
			return frames, bytes, EndCancelled, nil
		case err != nil:
			return frames, bytes, EndError, fmt.Errorf("capture: %w", err)
		}

		payload, err := s.Encoder.Encode(f)
		if err != nil {
			return frames, bytes, EndError, fmt.Errorf("encode frame %d: %w", f.Seq, err)
		}
		if err := fw.WriteMessage(payload); err != nil {
			if errors.Is(err, framing.ErrStreamClosed) {
				sess.log.Info("peer hung up")
				return frames, bytes, EndStreamClosed, nil
			}
			if errors.Is(err, framing.ErrMessageTooLarge) {
				return frames, bytes, EndError, fmt.Errorf("frame %d (%dx%dx%d) too large to send, lower the capture size or raise max_message_bytes on both ends: %w",
					f.Seq, f.Width, f.Height, f.Channels, err)
			}
			return frames, bytes, EndError, fmt.Errorf("send frame %d: %w", f.Seq, err)
		}
		frames++
		bytes += uint64(framing.HeaderSize + len(payload))

		if s.Preview != nil {
			cancel, err := s.Preview.Show(f)
			if err != nil {
				return frames, bytes, EndError, fmt.Errorf("preview: %w", err)
			}
			if cancel {
				sess.log.Info("hang up requested")
				return frames, bytes, EndCancelled, nil
			}
		}
	}
}

// finish logs the outcome and builds the summary.
func finish(sess *Session, frames, bytes uint64, reason EndReason, err error) (Summary, error) {
	sum := sess.summary(frames, bytes, reason)
	fields := []zap.Field{
		zap.String("reason", string(reason)),
		zap.Uint64("frames", frames),
		zap.Uint64("bytes", bytes),
	}
	if err != nil {
		sess.log.Error("call failed", append(fields, zap.Error(err))...)
		return sum, err
	}
	sess.log.Info("call ended", fields...)
	return sum, nil
}
