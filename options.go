package sdk

import (
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskgrid/sdk/queue"
	"github.com/taskgrid/sdk/registry"
	"github.com/taskgrid/sdk/worker"
)

// WorkerOption configures a Worker built with NewWorker.
type WorkerOption func(*worker.Config)

// WithName sets the worker's unique identifier.
// The name should be a kebab-case string (e.g., "license-scanner").
func WithName(name string) WorkerOption {
	return func(c *worker.Config) {
		c.SetName(name)
	}
}

// WithVersion sets the worker's semantic version.
// Should follow semantic versioning format (e.g., "1.0.0").
func WithVersion(version string) WorkerOption {
	return func(c *worker.Config) {
		c.SetVersion(version)
	}
}

// WithDescription sets the worker's human-readable description.
// This should explain what the worker does and its purpose.
func WithDescription(desc string) WorkerOption {
	return func(c *worker.Config) {
		c.SetDescription(desc)
	}
}

// WithTags sets the worker's discovery tags.
func WithTags(tags ...string) WorkerOption {
	return func(c *worker.Config) {
		c.SetTags(tags)
	}
}

// WithExecuteFunc sets the function that processes work items.
// This is the core worker logic and is required.
func WithExecuteFunc(fn worker.ExecuteFunc) WorkerOption {
	return func(c *worker.Config) {
		c.SetExecuteFunc(fn)
	}
}

// WithShutdownFunc sets the function called once after the work source is
// exhausted. Optional; the default is a no-op.
func WithShutdownFunc(fn worker.ShutdownFunc) WorkerOption {
	return func(c *worker.Config) {
		c.SetShutdownFunc(fn)
	}
}

// RunOption configures a worker run.
type RunOption func(*runConfig)

// runConfig holds configuration for a Run invocation.
type runConfig struct {
	args              []string
	input             io.Reader
	output            io.Writer
	exitFunc          func(code int)
	versionLine       string
	heartbeatInterval time.Duration

	logger        *slog.Logger
	tracer        trace.Tracer
	meterProvider metric.MeterProvider

	queueClient queue.Client
	queueName   string

	registry     registry.Registry
	registryMeta map[string]string
}

// WithArgs overrides the command-line arguments inspected during the
// scheduler handshake. The default is os.Args.
func WithArgs(args []string) RunOption {
	return func(c *runConfig) {
		c.args = args
	}
}

// WithInput overrides the inbound protocol stream. The default is standard
// input.
func WithInput(r io.Reader) RunOption {
	return func(c *runConfig) {
		c.input = r
	}
}

// WithOutput overrides the outbound protocol stream. The default is standard
// output.
func WithOutput(w io.Writer) RunOption {
	return func(c *runConfig) {
		c.output = w
	}
}

// WithExitFunc replaces the process-termination call made during teardown.
// Tests and embedding callers use this to keep Run from exiting the process.
func WithExitFunc(exit func(code int)) RunOption {
	return func(c *runConfig) {
		c.exitFunc = exit
	}
}

// WithVersionLine overrides the version identifier emitted during the
// handshake and in reply to VERSION. The default is "<name> <version>" of
// the worker being run.
func WithVersionLine(version string) RunOption {
	return func(c *runConfig) {
		c.versionLine = version
	}
}

// WithHeartbeatInterval overrides the period between HEART reports (and the
// queue health-key refresh when running standalone).
func WithHeartbeatInterval(d time.Duration) RunOption {
	return func(c *runConfig) {
		c.heartbeatInterval = d
	}
}

// WithLogger sets a custom logger for the run.
// If not provided, a default logger writing to standard error is created.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for distributed tracing.
// This enables a span per executed work item.
func WithTracer(tracer trace.Tracer) RunOption {
	return func(c *runConfig) {
		c.tracer = tracer
	}
}

// WithMeterProvider sets the provider for the processed-items counter.
func WithMeterProvider(mp metric.MeterProvider) RunOption {
	return func(c *runConfig) {
		c.meterProvider = mp
	}
}

// WithQueue configures the Redis queue a standalone run drains. Ignored
// when the scheduler flag is present; the scheduler stream always wins.
func WithQueue(client queue.Client, queueName string) RunOption {
	return func(c *runConfig) {
		c.queueClient = client
		c.queueName = queueName
	}
}

// WithRegistry makes the run self-register in etcd for out-of-band
// discovery. The metadata is attached to the registry entry.
func WithRegistry(reg registry.Registry, metadata map[string]string) RunOption {
	return func(c *runConfig) {
		c.registry = reg
		c.registryMeta = metadata
	}
}
