package worker

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/taskgrid/sdk/registry"
)

// instrumentationName identifies this package to OpenTelemetry providers.
const instrumentationName = "github.com/taskgrid/sdk/worker"

// Runner drives a Worker against a work Source: it pulls items until the
// source is exhausted, executes each one inside a span, reports progress
// after every item, and shuts the worker down at the end.
//
// Under scheduler control the source is the stdio protocol connection; in
// standalone mode it can be a Redis queue or anything else implementing
// Source.
type Runner struct {
	worker Worker
	source Source

	logger    *slog.Logger
	tracer    trace.Tracer
	items     metric.Int64Counter
	heart     func(delta int)
	verbosity func() int
	runID     uuid.UUID

	reg     registry.Registry
	regInfo registry.ServiceInfo
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the structured logger the runner and harness use.
// The default logs to standard error.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer used for the per-item spans.
// The default tracer records nothing.
func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(r *Runner) {
		r.tracer = tracer
	}
}

// WithMeterProvider sets the provider for the processed-items counter.
// The default is the global provider.
func WithMeterProvider(mp metric.MeterProvider) RunnerOption {
	return func(r *Runner) {
		counter, err := mp.Meter(instrumentationName).Int64Counter(
			"taskgrid.worker.items",
			metric.WithDescription("Work items executed by this worker run"),
		)
		if err == nil {
			r.items = counter
		}
	}
}

// WithHeart wires the runner's per-item progress report to the given
// function, typically the scheduler connection's Heart method or the queue
// heartbeat. Without it, progress reports go nowhere.
func WithHeart(heart func(delta int)) RunnerOption {
	return func(r *Runner) {
		if heart != nil {
			r.heart = heart
		}
	}
}

// WithVerbosity wires the harness's Verbosity accessor, typically the
// scheduler connection's Verbosity method.
func WithVerbosity(verbosity func() int) RunnerOption {
	return func(r *Runner) {
		if verbosity != nil {
			r.verbosity = verbosity
		}
	}
}

// WithRunID overrides the run identifier. The scheduler connection's RunID
// is used here so logs, spans, and registry entries correlate.
func WithRunID(id uuid.UUID) RunnerOption {
	return func(r *Runner) {
		r.runID = id
	}
}

// WithRegistry makes the run discoverable: the runner registers info on
// start and deregisters on completion. The lease keepalive is handled by the
// registry client.
func WithRegistry(reg registry.Registry, info registry.ServiceInfo) RunnerOption {
	return func(r *Runner) {
		r.reg = reg
		r.regInfo = info
	}
}

// NewRunner builds a Runner for the given worker and source.
func NewRunner(w Worker, src Source, opts ...RunnerOption) *Runner {
	r := &Runner{
		worker:    w,
		source:    src,
		tracer:    noop.NewTracerProvider().Tracer(instrumentationName),
		heart:     func(int) {},
		verbosity: func() int { return 0 },
		runID:     uuid.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if r.items == nil {
		WithMeterProvider(otel.GetMeterProvider())(r)
	}
	return r
}

// Run drains the source, executing every item through the worker, then shuts
// the worker down. Item failures are logged and counted but do not stop the
// run; the scheduler decides whether to keep feeding a worker that reports
// failures. Run returns the shutdown error, if any.
func (r *Runner) Run(ctx context.Context) error {
	log := r.logger.With(
		"worker", r.worker.Name(),
		"version", r.worker.Version(),
		"run_id", r.runID,
	)

	if r.reg != nil {
		if err := r.reg.Register(ctx, r.regInfo); err != nil {
			log.Warn("registry registration failed, continuing unregistered", "error", err)
		} else {
			defer func() {
				if err := r.reg.Deregister(context.Background(), r.regInfo); err != nil {
					log.Warn("registry deregistration failed", "error", err)
				}
			}()
		}
	}

	h := &runnerHarness{
		logger:    log,
		tracer:    r.tracer,
		verbosity: r.verbosity,
		runID:     r.runID,
		heart:     r.heart,
	}

	log.Info("worker run starting")
	processed := 0
	for ctx.Err() == nil {
		item, ok := r.source.Next(ctx)
		if !ok {
			break
		}
		r.execute(ctx, h, item)
		processed++
	}
	log.Info("worker run finished", "items", processed)

	return r.worker.Shutdown(ctx)
}

func (r *Runner) execute(ctx context.Context, h Harness, item Item) {
	ctx, span := r.tracer.Start(ctx, "worker.execute",
		trace.WithAttributes(
			attribute.String("taskgrid.worker.name", r.worker.Name()),
			attribute.String("taskgrid.item.id", item.ID.String()),
		))
	defer span.End()

	start := time.Now()
	err := r.worker.Execute(ctx, h, item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.Logger().Error("item failed",
			"item_id", item.ID,
			"duration", time.Since(start),
			"error", err)
	} else if h.Verbosity() > 0 {
		h.Logger().Info("item processed",
			"item_id", item.ID,
			"duration", time.Since(start))
	}

	// A failed item still counts as processed for liveness purposes; the
	// heartbeat reports throughput, not success.
	r.heart(1)
	r.items.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

// runnerHarness is the Harness handed to worker executions.
type runnerHarness struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	verbosity func() int
	runID     uuid.UUID
	heart     func(delta int)
}

func (h *runnerHarness) Logger() *slog.Logger { return h.logger }
func (h *runnerHarness) Tracer() trace.Tracer { return h.tracer }
func (h *runnerHarness) Verbosity() int       { return h.verbosity() }
func (h *runnerHarness) RunID() uuid.UUID     { return h.runID }
func (h *runnerHarness) Heart(delta int)      { h.heart(delta) }
