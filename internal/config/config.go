// Package config loads AirCall runtime configuration from defaults, an
// optional YAML file, AIRCALL_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/junsooki/AirCall/internal/capture"
)

// Config holds all runtime configuration.
type Config struct {
	// Role is "listen" or "call"; empty means ask at startup.
	Role string `mapstructure:"role"`

	// Host is the address the caller dials.
	Host string `mapstructure:"host"`
	// Bind is the address the listener binds.
	Bind string `mapstructure:"bind"`
	Port int    `mapstructure:"port"`

	// Transport is "tcp" or "ws".
	Transport string `mapstructure:"transport"`
	// WSPath is the WebSocket endpoint path.
	WSPath string `mapstructure:"ws_path"`

	// Codec is "msgpack" or "cbor"; both ends must agree.
	Codec string `mapstructure:"codec"`
	// MaxMessageBytes bounds one framed payload.
	MaxMessageBytes uint64 `mapstructure:"max_message_bytes"`

	// Duplex streams video in both directions over the one connection.
	Duplex bool `mapstructure:"duplex"`
	// Preview shows the caller its own feed; hanging up there ends the call.
	Preview bool `mapstructure:"preview"`

	Source SourceConfig `mapstructure:"source"`
	Sink   SinkConfig   `mapstructure:"sink"`
	Log    LogConfig    `mapstructure:"log"`
}

// SourceConfig selects the capture device.
type SourceConfig struct {
	Kind    string `mapstructure:"kind"`
	Device  string `mapstructure:"device"`
	Display int    `mapstructure:"display"`
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
	FPS     int    `mapstructure:"fps"`
	Frames  int    `mapstructure:"frames"`
}

// SinkConfig selects the display surface.
type SinkConfig struct {
	Kind      string `mapstructure:"kind"`
	Title     string `mapstructure:"title"`
	MaxFrames int    `mapstructure:"max_frames"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Default returns a Config populated with defaults matching the original
// call scripts: port 8080, caller dialing 127.0.0.1.
func Default() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Bind:            "0.0.0.0",
		Port:            8080,
		Transport:       "tcp",
		WSPath:          "/call",
		Codec:           "msgpack",
		MaxMessageBytes: 64 << 20,
		Source: SourceConfig{
			Kind:   capture.DefaultKind,
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Sink: SinkConfig{
			Kind: "window",
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// RegisterFlags adds the command-line overrides to fs. Flag names are the
// config keys.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("host", d.Host, "Address the caller dials")
	fs.String("bind", d.Bind, "Address the listener binds")
	fs.Int("port", d.Port, "Call port")
	fs.String("transport", d.Transport, "Transport: tcp or ws")
	fs.String("codec", d.Codec, "Frame codec: msgpack or cbor")
	fs.Bool("duplex", d.Duplex, "Stream video in both directions")
	fs.Bool("preview", d.Preview, "Show the caller its own feed")
	fs.String("source.kind", d.Source.Kind, "Frame source: camera (builds with -tags gst), screen or pattern")
	fs.String("source.device", d.Source.Device, "Camera device (empty = default)")
	fs.Int("source.fps", d.Source.FPS, "Capture frames per second")
	fs.Int("source.frames", d.Source.Frames, "Pattern source frame limit (0 = unbounded)")
	fs.String("sink.kind", d.Sink.Kind, "Frame sink: window or headless")
	fs.String("log.level", d.Log.Level, "Log level: debug, info, warn, error")
}

// Load reads configuration from path (if non-empty), otherwise from
// AIRCALL_CONFIG or aircall.yaml in ., ./configs and ~/.aircall. Environment
// variables use the prefix AIRCALL with "." replaced by "_", for example
// AIRCALL_SOURCE_KIND=pattern. Flags in fs that were set on the command line
// win over everything else; fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AIRCALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if path == "" {
		path = os.Getenv("AIRCALL_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("aircall")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".aircall"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults seeds viper so env-only configs work.
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("role", c.Role)
	v.SetDefault("host", c.Host)
	v.SetDefault("bind", c.Bind)
	v.SetDefault("port", c.Port)
	v.SetDefault("transport", c.Transport)
	v.SetDefault("ws_path", c.WSPath)
	v.SetDefault("codec", c.Codec)
	v.SetDefault("max_message_bytes", c.MaxMessageBytes)
	v.SetDefault("duplex", c.Duplex)
	v.SetDefault("preview", c.Preview)
	v.SetDefault("source.kind", c.Source.Kind)
	v.SetDefault("source.device", c.Source.Device)
	v.SetDefault("source.display", c.Source.Display)
	v.SetDefault("source.width", c.Source.Width)
	v.SetDefault("source.height", c.Source.Height)
	v.SetDefault("source.fps", c.Source.FPS)
	v.SetDefault("source.frames", c.Source.Frames)
	v.SetDefault("sink.kind", c.Sink.Kind)
	v.SetDefault("sink.title", c.Sink.Title)
	v.SetDefault("sink.max_frames", c.Sink.MaxFrames)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.outputs", c.Log.Outputs)
	v.SetDefault("log.development", c.Log.Development)
	v.SetDefault("log.rotation.enable", c.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", c.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", c.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", c.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", c.Log.Rotation.Compress)
}

func (c *Config) validate() error {
	c.Role = strings.ToLower(strings.TrimSpace(c.Role))
	if c.Role != "" {
		role, err := NormalizeRole(c.Role)
		if err != nil {
			return err
		}
		c.Role = role
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("host must not be empty")
	}

	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case "tcp", "ws":
	default:
		return fmt.Errorf("invalid transport: %q", c.Transport)
	}
	if c.Transport == "ws" && !strings.HasPrefix(c.WSPath, "/") {
		return fmt.Errorf("invalid ws_path: %q", c.WSPath)
	}

	c.Codec = strings.ToLower(strings.TrimSpace(c.Codec))
	switch c.Codec {
	case "msgpack", "cbor":
	default:
		return fmt.Errorf("invalid codec: %q", c.Codec)
	}
	if c.MaxMessageBytes == 0 {
		return errors.New("max_message_bytes must be positive")
	}

	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	switch c.Source.Kind {
	case "camera", "screen", "pattern":
	default:
		return fmt.Errorf("invalid source.kind: %q", c.Source.Kind)
	}
	if c.Source.Kind == "camera" && !capture.CameraBuiltIn {
		return errors.New("source.kind camera is not built in; rebuild with -tags gst or use pattern or screen")
	}
	if c.Source.FPS <= 0 || c.Source.FPS > 60 {
		return fmt.Errorf("invalid source.fps: %d", c.Source.FPS)
	}

	c.Sink.Kind = strings.ToLower(strings.TrimSpace(c.Sink.Kind))
	switch c.Sink.Kind {
	case "window", "headless":
	default:
		return fmt.Errorf("invalid sink.kind: %q", c.Sink.Kind)
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	return nil
}

// NormalizeRole maps the accepted spellings of a role to "listen" or "call".
// "1" and "2" are the answers to the interactive prompt.
func NormalizeRole(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "listen", "receiver", "hospital":
		return "listen", nil
	case "2", "call", "sender", "ambulance":
		return "call", nil
	default:
		return "", fmt.Errorf("invalid role: %q", s)
	}
}

// DialAddr is the address the caller connects to.
func (c *Config) DialAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ListenAddr is the address the listener binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}
