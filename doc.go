// Package sdk provides the official Software Development Kit for building
// TaskGrid workers.
//
// A TaskGrid scheduler launches worker processes and drives each one over
// its standard input and output streams: a startup handshake, a
// line-oriented exchange of control and data records, periodic heartbeats
// back to the scheduler, and a farewell on exit. This SDK implements the
// worker side of that protocol and wraps it in a small runtime so worker
// authors only write the code that interprets their data lines.
//
// # Core concepts
//
//   - Worker: the business logic; processes one opaque data line at a time
//   - Scheduler connection: the stdio protocol state (handshake, heartbeat,
//     pull API, teardown), in package scheduler
//   - Source: where items come from, either the scheduler stream or a
//     Redis queue when running standalone
//   - Harness: the runtime environment handed to each execution (logging,
//     tracing, verbosity, progress reporting)
//   - Registry: optional etcd self-registration so live workers are
//     discoverable out-of-band
//
// # Getting started
//
// Define a worker from plain functions and hand it the process lifecycle:
//
//	w, err := sdk.NewWorker(
//	    sdk.WithName("license-scanner"),
//	    sdk.WithVersion("1.4.0"),
//	    sdk.WithDescription("Scans uploaded archives for license texts"),
//	    sdk.WithExecuteFunc(func(ctx context.Context, h worker.Harness, item worker.Item) error {
//	        return scan(ctx, item.Payload)
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sdk.Run(context.Background(), w); err != nil {
//	    log.Fatal(err)
//	}
//
// Under scheduler control Run never returns: the teardown handshake
// terminates the process. Standalone (no scheduler flag on the command
// line), the same binary drains the configured work queue instead.
package sdk
