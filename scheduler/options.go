package scheduler

import (
	"io"
	"log/slog"
	"time"
)

// connConfig holds the pieces of connection configuration that are consumed
// during Connect rather than stored on the Conn.
type connConfig struct {
	in  io.Reader
	out io.Writer
}

// Option configures a Conn during Connect.
type Option func(*Conn, *connConfig)

// WithInput overrides the inbound channel. The default is the process's
// standard input, which is where a scheduler-spawned worker receives the
// protocol stream.
func WithInput(r io.Reader) Option {
	return func(_ *Conn, cfg *connConfig) {
		cfg.in = r
	}
}

// WithOutput overrides the outbound channel. The default is the process's
// standard output. Workers must keep their own output off this stream; use
// the logger for diagnostics.
func WithOutput(w io.Writer) Option {
	return func(_ *Conn, cfg *connConfig) {
		cfg.out = w
	}
}

// WithVersion overrides the version identifier emitted during the handshake
// and in reply to VERSION. The default is the package-level Version.
func WithVersion(version string) Option {
	return func(c *Conn, _ *connConfig) {
		c.version = version
	}
}

// WithHeartbeatInterval overrides the period between HEART reports.
// The default is DefaultHeartbeatInterval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Conn, _ *connConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the structured logger for connection diagnostics. The
// default logs to standard error, keeping the outbound protocol stream
// clean.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn, _ *connConfig) {
		c.log = logger
	}
}

// WithExitFunc replaces the process-termination call made by Disconnect.
// The default is os.Exit. Tests and embedding callers use this to observe
// the exit status instead of terminating.
func WithExitFunc(exit func(code int)) Option {
	return func(c *Conn, _ *connConfig) {
		if exit != nil {
			c.exit = exit
		}
	}
}
