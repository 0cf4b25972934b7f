package scheduler

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// StartupFlag is the reserved token the scheduler appends as the last
	// command-line argument of every worker it spawns. Connect strips it
	// before the worker's own flag parsing runs.
	StartupFlag = "--scheduler-start"

	// LineLimit is the fixed capacity of the inbound line buffer, line
	// terminator included. Lines longer than this are truncated at the
	// read level and the remainder surfaces as the next line. This is a
	// protocol limit, not a tunable.
	LineLimit = 2048

	// DefaultHeartbeatInterval is the period between HEART reports once
	// the connection is scheduler-controlled.
	DefaultHeartbeatInterval = 30 * time.Second
)

// Control-line prefixes recognized from the scheduler. Matching is
// case-sensitive and positional: only the start of the line is examined.
const (
	prefixClose   = "CLOSE"
	prefixEnd     = "END"
	prefixVerbose = "VERBOSE"
	prefixVersion = "VERSION"

	// Byte offset of the integer argument in a VERBOSE line ("VERBOSE ").
	verboseOffset = 8
)

// Version identifies this worker build on the wire. It is emitted during the
// handshake and in reply to a VERSION control line. Builds typically override
// it with -ldflags "-X github.com/taskgrid/sdk/scheduler.Version=...", or per
// connection with WithVersion.
var Version = "unknown"

// Conn is the process-wide connection to the scheduler. Exactly one Conn
// should exist per worker process; create it with Connect.
//
// All methods except Heart must be called from the worker's main flow. Heart
// and the internal heartbeat share only the items counter, so it is safe to
// call Heart from the goroutine that processes work even while another part
// of the flow is not blocked in Next.
type Conn struct {
	in  *bufio.Reader
	out *bufio.Writer

	// outMu serializes wire writes; the heartbeat goroutine and the main
	// flow share the output stream.
	outMu sync.Mutex

	version  string
	interval time.Duration
	log      *slog.Logger
	exit     func(code int)

	connected bool
	items     atomic.Int64
	line      [LineLimit]byte
	lineLen   int
	valid     bool
	verbosity int
	runID     uuid.UUID

	hbStop chan struct{}
	hbOnce sync.Once
}

// Connect establishes the connection between a worker and the scheduler.
// It must be the first thing a worker does, before parsing its own
// command-line arguments.
//
// Connect inspects the last element of args. If it equals StartupFlag the
// worker is under scheduler control: the version line is emitted, the flag is
// stripped from the returned argument slice, an OK acknowledgment is written,
// and the heartbeat is armed. If the flag is absent the worker runs
// standalone: nothing is emitted and the heartbeat never fires.
//
// Absence of the flag is a valid mode, not a failure; Connect never errors.
// The returned slice is args with the flag removed, suitable for handing to
// the worker's own flag parsing.
func Connect(args []string, opts ...Option) (*Conn, []string) {
	c := &Conn{
		version:  Version,
		interval: DefaultHeartbeatInterval,
		exit:     os.Exit,
		runID:    uuid.New(),
		hbStop:   make(chan struct{}),
	}

	cfg := connConfig{in: os.Stdin, out: os.Stdout}
	for _, opt := range opts {
		opt(c, &cfg)
	}
	c.in = bufio.NewReaderSize(cfg.in, LineLimit)
	c.out = bufio.NewWriter(cfg.out)
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	if n := len(args); n > 0 && args[n-1] == StartupFlag {
		c.connected = true
		args = args[:n-1]
	}

	if c.connected {
		c.send(c.version + "\n")
		c.send("OK\n")
		go c.heartbeat()
		c.log.Debug("scheduler handshake complete",
			"run_id", c.runID,
			"version", c.version,
			"heartbeat_interval", c.interval)
	}

	return c, args
}

// Heart records that the worker has processed delta more items since the
// last call. The cumulative count is what the heartbeat reports to the
// scheduler. Workers should call this after finishing each unit of work.
//
// Negative deltas are applied as-is; no floor is enforced.
func (c *Conn) Heart(delta int) {
	c.items.Add(int64(delta))
}

// Next returns the next data line from the scheduler.
//
// Any buffered replies are flushed first, then Next blocks reading one line
// from the inbound stream. Blocking is how the scheduler pauses a worker:
// it simply withholds the next line. Control lines (CLOSE, END, VERBOSE,
// VERSION) are consumed transparently and never surface; Next keeps reading
// until it has a data line or the stream ends.
//
// The returned line is verbatim, trailing terminator included. A false
// result means the job is over (the stream ended or CLOSE arrived) and the
// worker should proceed to Disconnect.
//
// A data line that merely begins with a reserved prefix is consumed as a
// control line; the protocol offers no escaping.
func (c *Conn) Next() (string, bool) {
	c.flush()
	c.valid = false

	for {
		line, ok := c.readLine()
		switch {
		case !ok || strings.HasPrefix(line, prefixClose):
			return "", false

		case strings.HasPrefix(line, prefixEnd):
			// Batch delimiter; acknowledge and keep reading.
			if c.connected {
				c.send("OK\n")
			}

		case strings.HasPrefix(line, prefixVerbose):
			c.verbosity = atoiAt(line, verboseOffset)
			c.log.Debug("verbosity changed", "verbosity", c.verbosity)

		case strings.HasPrefix(line, prefixVersion):
			if c.connected {
				c.send(c.version + "\n")
			}

		default:
			c.valid = true
			return line, true
		}
	}
}

// Current returns the most recently read line if it was a data line that has
// not been invalidated by a subsequent control line. It has no side effects
// and may be called any number of times between calls to Next.
func (c *Conn) Current() (string, bool) {
	if !c.valid {
		return "", false
	}
	return string(c.line[:c.lineLen]), true
}

// Disconnect ends the scheduler connection and terminates the process with a
// success status. It must be the last thing a worker does.
//
// When scheduler-controlled, BYE is the final line written before exit. The
// process-exit behavior can be overridden with WithExitFunc, in which case
// Disconnect returns after the replacement function does.
func (c *Conn) Disconnect() {
	if c.connected {
		c.send("BYE\n")
	}
	c.hbOnce.Do(func() { close(c.hbStop) })
	c.flush()
	c.exit(0)
}

// Connected reports whether the startup handshake recognized the scheduler
// flag.
func (c *Conn) Connected() bool {
	return c.connected
}

// Verbosity returns the level most recently set by a VERBOSE control line.
// The library itself does not branch on it; workers use it to gate their own
// diagnostic output.
func (c *Conn) Verbosity() int {
	return c.verbosity
}

// Items returns the cumulative processed-item count reported by heartbeats.
func (c *Conn) Items() int64 {
	return c.items.Load()
}

// RunID returns the unique identifier assigned to this connection at
// Connect time. It appears in logs and registry entries, never on the wire.
func (c *Conn) RunID() uuid.UUID {
	return c.runID
}

// heartbeat emits HEART lines on a fixed period until Disconnect. The timer
// is one-shot and re-armed after every firing. The only state shared with
// the main flow is the items counter and the wire writer; the writer is
// guarded by outMu so a beat can land while Next is blocked reading.
func (c *Conn) heartbeat() {
	t := time.NewTimer(c.interval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.send(fmt.Sprintf("HEART: %d\n", c.items.Load()))
			t.Reset(c.interval)
		case <-c.hbStop:
			return
		}
	}
}

// readLine fills the line buffer with the next inbound line, terminator
// included, stopping early when the buffer is full. Returns false only when
// the stream is exhausted before any byte arrives; a partial final line
// without a terminator is still delivered.
func (c *Conn) readLine() (string, bool) {
	n := 0
	for n < LineLimit-1 {
		b, err := c.in.ReadByte()
		if err != nil {
			break
		}
		c.line[n] = b
		n++
		if b == '\n' {
			break
		}
	}
	c.lineLen = n
	return string(c.line[:n]), n > 0
}

// send writes one protocol line and flushes it so the scheduler sees it
// immediately. Write errors are swallowed: a broken outbound stream degrades
// to end-of-stream on the next read, which the caller already handles.
func (c *Conn) send(line string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	c.out.WriteString(line)
	c.out.Flush()
}

func (c *Conn) flush() {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	c.out.Flush()
}

// atoiAt parses the integer starting at a fixed offset in line, with C atoi
// semantics: leading whitespace is skipped and anything unparsable yields 0.
func atoiAt(line string, offset int) int {
	if len(line) <= offset {
		return 0
	}
	s := strings.TrimSpace(line[offset:])
	i := 0
	for i < len(s) && (s[i] == '-' || s[i] == '+' || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0
	}
	return n
}
