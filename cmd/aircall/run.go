package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/junsooki/AirCall/internal/capture"
	"github.com/junsooki/AirCall/internal/config"
	"github.com/junsooki/AirCall/internal/decoder"
	"github.com/junsooki/AirCall/internal/display"
	"github.com/junsooki/AirCall/internal/encoder"
	"github.com/junsooki/AirCall/internal/logging"
	"github.com/junsooki/AirCall/internal/session"
	"github.com/junsooki/AirCall/internal/transport"
)

func run(cmd *cobra.Command, configPath, role string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	if role == "" {
		role = cfg.Role
	}
	if role == "" {
		if role, err = promptRole(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	log, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// The first signal hangs up at the next frame; restoring the default
	// handler lets a second one kill the process.
	go func() {
		<-ctx.Done()
		stop()
	}()

	log.Info("AirCall starting",
		zap.String("role", role),
		zap.String("transport", cfg.Transport),
		zap.String("codec", cfg.Codec),
		zap.Bool("duplex", cfg.Duplex),
		zap.String("source", cfg.Source.Kind),
		zap.String("sink", cfg.Sink.Kind))

	c, err := newCall(cfg, role, log)
	if err != nil {
		return err
	}
	return c.run(ctx, log)
}

// call is a fully wired session waiting to run. win is set when one of its
// sinks is a window, which has to be driven from the main goroutine.
type call struct {
	start func(ctx context.Context) error
	win   *display.Window
}

func newCall(cfg *config.Config, role string, log *zap.Logger) (*call, error) {
	tr, err := transport.New(cfg.Transport, cfg.WSPath)
	if err != nil {
		return nil, err
	}

	var opened []io.Closer
	fail := func(err error) (*call, error) {
		for _, c := range opened {
			_ = c.Close()
		}
		return nil, err
	}

	var src capture.Source
	if role == "call" || cfg.Duplex {
		src, err = capture.Open(capture.Options{
			Kind:    cfg.Source.Kind,
			Device:  cfg.Source.Device,
			Display: cfg.Source.Display,
			Width:   cfg.Source.Width,
			Height:  cfg.Source.Height,
			FPS:     cfg.Source.FPS,
			Frames:  cfg.Source.Frames,
		})
		if err != nil {
			return fail(err)
		}
		opened = append(opened, src)
	}

	// A nil interface, not a typed nil, when no sink is wanted.
	var sink display.Sink
	if role == "listen" || cfg.Duplex || cfg.Preview {
		sink, err = display.Open(display.Options{
			Kind:      cfg.Sink.Kind,
			Title:     cfg.Sink.Title,
			MaxFrames: cfg.Sink.MaxFrames,
		}, log)
		if err != nil {
			return fail(err)
		}
		opened = append(opened, sink)
	}

	c := &call{}
	if w, ok := sink.(*display.Window); ok {
		c.win = w
	}

	switch {
	case cfg.Duplex:
		enc, err := encoder.New(cfg.Codec)
		if err != nil {
			return fail(err)
		}
		dec, err := decoder.New(cfg.Codec)
		if err != nil {
			return fail(err)
		}
		d := &session.Duplex{
			Transport:       tr,
			Source:          src,
			Encoder:         enc,
			Decoder:         dec,
			Sink:            sink,
			MaxMessageBytes: cfg.MaxMessageBytes,
			Log:             log,
		}
		sessRole := session.RoleReceiver
		d.Addr = cfg.ListenAddr()
		if role == "call" {
			sessRole = session.RoleSender
			d.Addr = cfg.DialAddr()
		}
		c.start = func(ctx context.Context) error {
			_, err := d.Run(ctx, sessRole)
			return err
		}

	case role == "call":
		enc, err := encoder.New(cfg.Codec)
		if err != nil {
			return fail(err)
		}
		s := &session.Sender{
			Transport:       tr,
			Addr:            cfg.DialAddr(),
			Source:          src,
			Encoder:         enc,
			Preview:         sink,
			MaxMessageBytes: cfg.MaxMessageBytes,
			Log:             log,
		}
		c.start = func(ctx context.Context) error {
			_, err := s.Run(ctx)
			return err
		}

	default:
		dec, err := decoder.New(cfg.Codec)
		if err != nil {
			return fail(err)
		}
		r := &session.Receiver{
			Transport:       tr,
			Addr:            cfg.ListenAddr(),
			Decoder:         dec,
			Sink:            sink,
			MaxMessageBytes: cfg.MaxMessageBytes,
			Log:             log,
		}
		c.start = func(ctx context.Context) error {
			_, err := r.Run(ctx)
			return err
		}
	}
	return c, nil
}

// run executes the session. With a window, the session runs on its own
// goroutine while the render loop owns the main one; the session closes the
// window when it ends.
func (c *call) run(ctx context.Context, log *zap.Logger) error {
	if c.win == nil {
		return c.start(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.start(ctx) }()

	winErr := c.win.Run()
	select {
	case err := <-done:
		return err
	default:
	}

	if winErr != nil {
		log.Error("display failed, hanging up", zap.Error(winErr))
	} else {
		log.Info("window closed, hanging up")
	}
	cancel()
	err := <-done
	if err == nil && winErr != nil {
		return winErr
	}
	return err
}
