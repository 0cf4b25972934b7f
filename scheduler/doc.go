// Package scheduler implements the worker side of the TaskGrid control
// protocol.
//
// A TaskGrid scheduler launches worker processes and drives them over the
// worker's standard input and output streams. This package performs the
// startup handshake, exchanges the line-oriented control and data records,
// reports liveness through a periodic heartbeat, and exposes a pull-style
// "next work item" API to the worker's own logic.
//
// # Lifecycle
//
// A worker calls Connect exactly once before its own argument parsing,
// pulls work with Next until it returns false, and calls Disconnect as
// its last action:
//
//	conn, args := scheduler.Connect(os.Args)
//	for {
//	    line, ok := conn.Next()
//	    if !ok {
//	        break
//	    }
//	    process(line)
//	    conn.Heart(1)
//	}
//	conn.Disconnect()
//
// When the reserved startup flag is absent the worker is assumed to be
// running standalone (for example under interactive invocation). In that
// mode no protocol lines are ever emitted; the same code path works
// unchanged.
//
// # Wire format
//
// Lines emitted by the worker:
//
//	<version>    on startup if the scheduler flag is present; also in reply to VERSION
//	OK           after the handshake; after consuming END
//	HEART: <n>   on every heartbeat interval, n = cumulative processed-item count
//	BYE          immediately before process exit
//
// Lines recognized from the scheduler, matched case-sensitively against the
// start of the line: CLOSE, END, VERBOSE <int>, VERSION. Anything else is
// opaque application data returned verbatim to the caller. A data line that
// happens to begin with one of the reserved prefixes is indistinguishable
// from a control line and is consumed as one.
package scheduler
