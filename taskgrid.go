package sdk

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/taskgrid/sdk/component"
	"github.com/taskgrid/sdk/queue"
	"github.com/taskgrid/sdk/registry"
	"github.com/taskgrid/sdk/scheduler"
	"github.com/taskgrid/sdk/worker"
)

// NewWorker creates a new worker with the provided options.
// The worker must have at minimum a name, version, description, and execute
// function.
//
// Example:
//
//	w, err := sdk.NewWorker(
//	    sdk.WithName("license-scanner"),
//	    sdk.WithVersion("1.4.0"),
//	    sdk.WithDescription("Scans uploaded archives for license texts"),
//	    sdk.WithTags("analysis", "licenses"),
//	    sdk.WithExecuteFunc(func(ctx context.Context, h worker.Harness, item worker.Item) error {
//	        // Worker implementation
//	        return nil
//	    }),
//	)
func NewWorker(opts ...WorkerOption) (worker.Worker, error) {
	cfg := worker.NewConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	w, err := worker.New(cfg)
	if err != nil {
		return nil, NewValidationError("NewWorker", err)
	}
	return w, nil
}

// Run executes the full worker lifecycle: the scheduler handshake, the
// work loop, and the teardown.
//
// Run inspects the command line (os.Args unless overridden with WithArgs)
// for the scheduler startup flag. Under scheduler control the work source is
// the stdio protocol stream and Run does not return on success: the teardown
// terminates the process, with BYE as the last line on the wire. Standalone,
// the source is the queue configured with WithQueue, and Run returns when
// the queue is drained or the context is cancelled.
//
// Run returns an error only for configuration problems or a failed
// shutdown; individual item failures are logged and counted, not fatal.
func Run(ctx context.Context, w worker.Worker, opts ...RunOption) error {
	cfg := &runConfig{args: os.Args}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if cfg.versionLine == "" {
		cfg.versionLine = fmt.Sprintf("%s %s", w.Name(), w.Version())
	}

	schedOpts := []scheduler.Option{
		scheduler.WithVersion(cfg.versionLine),
		scheduler.WithLogger(cfg.logger),
	}
	if cfg.heartbeatInterval > 0 {
		schedOpts = append(schedOpts, scheduler.WithHeartbeatInterval(cfg.heartbeatInterval))
	}
	if cfg.input != nil {
		schedOpts = append(schedOpts, scheduler.WithInput(cfg.input))
	}
	if cfg.output != nil {
		schedOpts = append(schedOpts, scheduler.WithOutput(cfg.output))
	}
	if cfg.exitFunc != nil {
		schedOpts = append(schedOpts, scheduler.WithExitFunc(cfg.exitFunc))
	}

	conn, _ := scheduler.Connect(cfg.args, schedOpts...)

	var src worker.Source
	switch {
	case conn.Connected():
		src = worker.NewLineSource(conn)
	case cfg.queueClient != nil:
		src = queue.NewSource(cfg.queueClient, cfg.queueName, cfg.logger)
		go refreshQueueHealth(ctx, cfg, w.Name())
	default:
		return NewConfigurationError("Run", ErrNoWorkSource)
	}

	runnerOpts := []worker.RunnerOption{
		worker.WithLogger(cfg.logger),
		worker.WithRunID(conn.RunID()),
		worker.WithHeart(conn.Heart),
		worker.WithVerbosity(conn.Verbosity),
	}
	if cfg.tracer != nil {
		runnerOpts = append(runnerOpts, worker.WithTracer(cfg.tracer))
	}
	if cfg.meterProvider != nil {
		runnerOpts = append(runnerOpts, worker.WithMeterProvider(cfg.meterProvider))
	}
	if cfg.registry != nil {
		meta := map[string]string{"tags": strings.Join(w.Tags(), ",")}
		for k, v := range cfg.registryMeta {
			meta[k] = v
		}
		info := registry.NewServiceInfo(
			w.Name(), w.Version(), conn.RunID(), os.Getpid(), conn.Connected(), meta)
		runnerOpts = append(runnerOpts, worker.WithRegistry(cfg.registry, info))
	}

	runner := worker.NewRunner(w, src, runnerOpts...)
	if err := runner.Run(ctx); err != nil {
		return NewExecutionError("Run", err).WithContext(map[string]any{
			"worker": w.Name(),
			"run_id": conn.RunID().String(),
		})
	}

	if conn.Connected() {
		// Never returns unless the exit function was overridden.
		conn.Disconnect()
	}
	return nil
}

// refreshQueueHealth keeps the standalone worker's Redis health key alive
// for the duration of the run.
func refreshQueueHealth(ctx context.Context, cfg *runConfig, name string) {
	interval := cfg.heartbeatInterval
	if interval <= 0 {
		interval = scheduler.DefaultHeartbeatInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cfg.queueClient.Heartbeat(ctx, name); err != nil && ctx.Err() == nil {
				cfg.logger.Warn("queue heartbeat failed", "worker", name, "error", err)
			}
		}
	}
}

// RunOptionsFromConfig converts a loaded worker.yaml into run options:
// the heartbeat interval, the queue client for standalone mode, and the
// registry client when endpoints are configured.
//
// Callers remain responsible for closing the returned clients; they are
// reachable through the options' queue and registry fields only, so the
// usual pattern is to hold them directly:
//
//	cfg, _ := component.LoadFromCurrentDir()
//	opts, err := sdk.RunOptionsFromConfig(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = sdk.Run(ctx, w, opts...)
func RunOptionsFromConfig(cfg *component.Config) ([]RunOption, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewValidationError("RunOptionsFromConfig", err)
	}

	opts := []RunOption{
		WithHeartbeatInterval(cfg.Worker.GetHeartbeatInterval()),
	}

	if cfg.Queue != nil {
		client, err := queue.NewRedisClient(queue.RedisOptions{URL: cfg.Queue.URL})
		if err != nil {
			return nil, NewNetworkError("RunOptionsFromConfig", fmt.Errorf("%w: %v", ErrQueueUnavailable, err))
		}
		opts = append(opts, WithQueue(client, cfg.GetQueueName()))
	}

	if cfg.Registry != nil && len(cfg.Registry.Endpoints) > 0 {
		reg, err := registry.NewClient(registry.Config{
			Endpoints: cfg.Registry.Endpoints,
			Namespace: cfg.Registry.Namespace,
			TTL:       cfg.Registry.TTL,
		})
		if err != nil {
			return nil, NewNetworkError("RunOptionsFromConfig", fmt.Errorf("%w: %v", ErrRegistryUnavailable, err))
		}
		opts = append(opts, WithRegistry(reg, nil))
	}

	return opts, nil
}
