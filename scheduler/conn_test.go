package scheduler

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVersion = "taskgrid-worker 1.2.3"

// syncBuffer is a bytes.Buffer safe to read while the heartbeat goroutine
// writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestConn connects against in-memory streams. The heartbeat interval is
// long enough to never fire unless a test overrides it.
func newTestConn(t *testing.T, input string, scheduled bool, extra ...Option) (*Conn, *syncBuffer, []string) {
	t.Helper()

	out := &syncBuffer{}
	args := []string{"testworker", "-v"}
	if scheduled {
		args = append(args, StartupFlag)
	}

	opts := []Option{
		WithInput(strings.NewReader(input)),
		WithOutput(out),
		WithVersion(testVersion),
		WithHeartbeatInterval(time.Hour),
		WithExitFunc(func(int) {}),
	}
	opts = append(opts, extra...)

	conn, rest := Connect(args, opts...)
	t.Cleanup(conn.Disconnect)
	return conn, out, rest
}

func TestConnectHandshake(t *testing.T) {
	conn, out, rest := newTestConn(t, "", true)

	assert.True(t, conn.Connected())
	assert.Equal(t, []string{"testworker", "-v"}, rest, "startup flag should be stripped")
	assert.Equal(t, testVersion+"\nOK\n", out.String())
}

func TestConnectStandalone(t *testing.T) {
	conn, out, rest := newTestConn(t, "", false)

	assert.False(t, conn.Connected())
	assert.Equal(t, []string{"testworker", "-v"}, rest, "args must be untouched without the flag")
	assert.Empty(t, out.String(), "standalone mode must stay silent")

	// Neither progress reports nor teardown may leak protocol lines.
	conn.Heart(3)
	conn.Disconnect()
	assert.Empty(t, out.String())
}

func TestConnectFlagNotLast(t *testing.T) {
	out := &syncBuffer{}
	conn, rest := Connect([]string{"testworker", StartupFlag, "other"},
		WithInput(strings.NewReader("")),
		WithOutput(out),
		WithExitFunc(func(int) {}),
	)
	defer conn.Disconnect()

	assert.False(t, conn.Connected(), "only the last argument is inspected")
	assert.Equal(t, []string{"testworker", StartupFlag, "other"}, rest)
	assert.Empty(t, out.String())
}

func TestNextReturnsDataLine(t *testing.T) {
	conn, _, _ := newTestConn(t, "upload 42 /srv/data/item.tar\n", true)

	line, ok := conn.Next()
	require.True(t, ok)
	assert.Equal(t, "upload 42 /srv/data/item.tar\n", line, "data lines are verbatim, terminator included")

	cur, ok := conn.Current()
	require.True(t, ok)
	assert.Equal(t, line, cur)

	// Current is a pure accessor; repeated calls agree.
	again, ok := conn.Current()
	require.True(t, ok)
	assert.Equal(t, cur, again)
}

func TestNextEndOfStream(t *testing.T) {
	conn, _, _ := newTestConn(t, "", true)

	_, ok := conn.Next()
	assert.False(t, ok)

	_, ok = conn.Current()
	assert.False(t, ok)
}

func TestNextClose(t *testing.T) {
	conn, _, _ := newTestConn(t, "first item\nCLOSE\nnever seen\n", true)

	line, ok := conn.Next()
	require.True(t, ok)
	assert.Equal(t, "first item\n", line)

	_, ok = conn.Next()
	assert.False(t, ok)

	_, ok = conn.Current()
	assert.False(t, ok, "CLOSE invalidates the buffer regardless of prior state")
}

func TestNextEndEmitsSingleOK(t *testing.T) {
	conn, out, _ := newTestConn(t, "END\nitem after batch\n", true)

	line, ok := conn.Next()
	require.True(t, ok)
	assert.Equal(t, "item after batch\n", line)

	// Handshake writes one OK; END must add exactly one more, before the
	// data line was returned.
	assert.Equal(t, 2, strings.Count(out.String(), "OK\n"))
}

func TestNextVerbose(t *testing.T) {
	conn, out, _ := newTestConn(t, "VERBOSE 3\nitem\n", true)

	line, ok := conn.Next()
	require.True(t, ok)
	assert.Equal(t, "item\n", line)
	assert.Equal(t, 3, conn.Verbosity())

	// VERBOSE is silent on the wire.
	assert.Equal(t, testVersion+"\nOK\n", out.String())

	cur, ok := conn.Current()
	require.True(t, ok, "the data line, not the control line, is current")
	assert.Equal(t, "item\n", cur)
}

func TestNextVerboseValues(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{"plain", "VERBOSE 2\n", 2},
		{"no argument", "VERBOSE\n", 0},
		{"garbage argument", "VERBOSE lots\n", 0},
		{"negative", "VERBOSE -1\n", -1},
		{"trailing text ignored", "VERBOSE 7 extra\n", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _, _ := newTestConn(t, tt.line+"item\n", true)

			_, ok := conn.Next()
			require.True(t, ok)
			assert.Equal(t, tt.want, conn.Verbosity())
		})
	}
}

func TestNextVersion(t *testing.T) {
	conn, out, _ := newTestConn(t, "VERSION\nitem\n", true)

	line, ok := conn.Next()
	require.True(t, ok, "VERSION must not terminate the loop")
	assert.Equal(t, "item\n", line)

	// Version line appears twice: handshake and the VERSION reply.
	assert.Equal(t, 2, strings.Count(out.String(), testVersion+"\n"))
}

func TestNextControlRunConsumedTransparently(t *testing.T) {
	conn, _, _ := newTestConn(t, "END\nVERBOSE 1\nVERSION\nEND\ndata at last\n", true)

	line, ok := conn.Next()
	require.True(t, ok)
	assert.Equal(t, "data at last\n", line)
	assert.Equal(t, 1, conn.Verbosity())
}

func TestNextPrefixCollision(t *testing.T) {
	// A data payload starting with a reserved prefix is consumed as a
	// control line. Accepted protocol ambiguity.
	conn, _, _ := newTestConn(t, "CLOSED-CAPTION file.srt\n", true)

	_, ok := conn.Next()
	assert.False(t, ok)
}

func TestNextLongLineTruncated(t *testing.T) {
	long := strings.Repeat("a", LineLimit+500)
	conn, _, _ := newTestConn(t, long+"\n", true)

	first, ok := conn.Next()
	require.True(t, ok)
	assert.Len(t, first, LineLimit-1, "oversized lines are cut at the buffer limit")
	assert.NotContains(t, first, "\n")

	rest, ok := conn.Next()
	require.True(t, ok)
	assert.Equal(t, long[LineLimit-1:]+"\n", rest, "the overflow surfaces as the next line")
}

func TestNextFinalLineWithoutTerminator(t *testing.T) {
	conn, _, _ := newTestConn(t, "no newline at end", true)

	line, ok := conn.Next()
	require.True(t, ok)
	assert.Equal(t, "no newline at end", line)

	_, ok = conn.Next()
	assert.False(t, ok)
}

func TestHeartAccumulates(t *testing.T) {
	conn, _, _ := newTestConn(t, "", true)

	conn.Heart(5)
	conn.Heart(7)
	assert.Equal(t, int64(12), conn.Items())

	conn.Heart(-2)
	assert.Equal(t, int64(10), conn.Items(), "no floor is enforced")
}

func TestHeartbeatReportsItems(t *testing.T) {
	conn, out, _ := newTestConn(t, "", true, WithHeartbeatInterval(15*time.Millisecond))

	conn.Heart(5)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "HEART: 5\n")
	}, time.Second, 5*time.Millisecond)

	conn.Heart(7)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "HEART: 12\n")
	}, time.Second, 5*time.Millisecond)
}

func TestHeartbeatNeverArmedStandalone(t *testing.T) {
	conn, out, _ := newTestConn(t, "", false, WithHeartbeatInterval(10*time.Millisecond))

	conn.Heart(1)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, out.String())
}

func TestDisconnect(t *testing.T) {
	var code = -1
	out := &syncBuffer{}
	conn, _ := Connect([]string{"testworker", StartupFlag},
		WithInput(strings.NewReader("")),
		WithOutput(out),
		WithVersion(testVersion),
		WithExitFunc(func(c int) { code = c }),
	)

	conn.Disconnect()

	assert.Equal(t, 0, code, "teardown exits with a success status")
	assert.True(t, strings.HasSuffix(out.String(), "BYE\n"), "BYE is the last line on the wire")
}

func TestRunIDAssigned(t *testing.T) {
	a, _, _ := newTestConn(t, "", true)
	b, _, _ := newTestConn(t, "", false)

	assert.NotEqual(t, a.RunID(), b.RunID())
	assert.NotEmpty(t, a.RunID().String())
}
