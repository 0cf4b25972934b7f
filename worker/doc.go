// Package worker defines the Worker interface, the builder used to construct
// workers from plain functions, and the Runner that drives a worker against
// a work source.
//
// A worker's business logic sees only three things: a context, a Harness
// with logging/tracing/progress facilities, and the opaque Item payload.
// Where the items come from, the scheduler's stdio protocol or a standalone
// queue, is decided by the Source wired into the Runner, so the same worker
// binary serves both modes.
package worker
