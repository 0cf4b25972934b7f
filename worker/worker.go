package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Worker is the interface that all TaskGrid workers implement. A worker
// consumes data items handed to it by the scheduler (or by a standalone work
// source) and interprets them however its domain requires; the SDK treats
// the payload as opaque.
type Worker interface {
	// Name returns the unique identifier for this worker.
	// This should be a short, kebab-case name (e.g., "license-scanner").
	Name() string

	// Version returns the semantic version of this worker.
	// Format: "major.minor.patch" (e.g., "1.0.0").
	Version() string

	// Description returns a human-readable description of what this
	// worker does.
	Description() string

	// Tags returns free-form labels used for discovery and filtering.
	Tags() []string

	// Execute processes a single work item using the provided harness.
	// The context can be used for cancellation and timeout control.
	Execute(ctx context.Context, harness Harness, item Item) error

	// Shutdown gracefully stops the worker and releases resources. It is
	// called once, after the work source is exhausted.
	Shutdown(ctx context.Context) error
}

// Item is one unit of work handed to a worker.
type Item struct {
	// ID uniquely identifies the item within this run. Items pulled from
	// a queue carry the ID assigned at submission; items read off the
	// scheduler stream are assigned one on receipt.
	ID uuid.UUID

	// Payload is the data line, line terminator stripped. Its
	// interpretation is entirely up to the worker.
	Payload string

	// ReceivedAt is when the item was pulled from the source.
	ReceivedAt time.Time
}

// Harness provides the runtime environment for worker execution: logging,
// tracing, progress reporting, and the connection-level knobs the scheduler
// can flip at run time.
type Harness interface {
	// Logger returns the structured logger for this run. All worker
	// diagnostics should go through it; the process's standard output
	// belongs to the protocol.
	Logger() *slog.Logger

	// Tracer returns an OpenTelemetry tracer. The runner already opens a
	// span per item; workers create child spans for expensive phases.
	Tracer() trace.Tracer

	// Verbosity returns the diagnostic level most recently requested by
	// the scheduler. Workers branch on it for their own output.
	Verbosity() int

	// RunID identifies this worker run across logs and the registry.
	RunID() uuid.UUID

	// Heart records delta additional processed items toward the liveness
	// report. The runner calls Heart(1) after each item; workers that
	// process sub-units call it themselves with finer granularity.
	Heart(delta int)
}

// Source is a pull-style provider of work items. The runner drains it until
// it reports exhaustion.
//
// The scheduler connection and the Redis queue both adapt to this interface,
// so the same worker runs under scheduler control or standalone.
type Source interface {
	// Next blocks until an item is available. A false result means the
	// source is exhausted and the run should wind down.
	Next(ctx context.Context) (Item, bool)
}

// ExecuteFunc is the function signature for worker item processing.
type ExecuteFunc func(ctx context.Context, harness Harness, item Item) error

// ShutdownFunc is the function signature for worker shutdown.
// Implementations should release resources and perform cleanup.
type ShutdownFunc func(ctx context.Context) error
