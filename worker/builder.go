package worker

import (
	"context"
	"fmt"
)

// Config holds configuration for building a worker using the SDK.
// This provides a flexible way to define worker behavior without
// implementing the full Worker interface from scratch.
type Config struct {
	name         string
	version      string
	description  string
	tags         []string
	executeFunc  ExecuteFunc
	shutdownFunc ShutdownFunc
}

// NewConfig creates a new worker configuration with default values.
func NewConfig() *Config {
	return &Config{
		tags: []string{},
	}
}

// SetName sets the worker name.
// The name should be a unique, kebab-case identifier.
func (c *Config) SetName(name string) *Config {
	c.name = name
	return c
}

// SetVersion sets the worker version.
// Should follow semantic versioning (e.g., "1.0.0").
func (c *Config) SetVersion(version string) *Config {
	c.version = version
	return c
}

// SetDescription sets the worker description.
// Should explain what the worker does and its purpose.
func (c *Config) SetDescription(desc string) *Config {
	c.description = desc
	return c
}

// SetTags sets the worker's discovery tags.
func (c *Config) SetTags(tags []string) *Config {
	c.tags = tags
	return c
}

// AddTag adds a single tag to the worker.
func (c *Config) AddTag(tag string) *Config {
	c.tags = append(c.tags, tag)
	return c
}

// SetExecuteFunc sets the function that processes work items.
// This is the core worker logic.
func (c *Config) SetExecuteFunc(fn ExecuteFunc) *Config {
	c.executeFunc = fn
	return c
}

// SetShutdownFunc sets the function that shuts down the worker.
// If not set, a default no-op implementation is used.
func (c *Config) SetShutdownFunc(fn ShutdownFunc) *Config {
	c.shutdownFunc = fn
	return c
}

// Validate checks if the configuration is valid and complete.
func (c *Config) Validate() error {
	if c.name == "" {
		return fmt.Errorf("worker name is required")
	}
	if c.version == "" {
		return fmt.Errorf("worker version is required")
	}
	if c.description == "" {
		return fmt.Errorf("worker description is required")
	}
	if c.executeFunc == nil {
		return fmt.Errorf("execute function is required")
	}
	return nil
}

// New creates a new worker from the configuration.
// Returns an error if the configuration is invalid.
func New(cfg *Config) (Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid worker config: %w", err)
	}

	shutdownFunc := cfg.shutdownFunc
	if shutdownFunc == nil {
		shutdownFunc = func(ctx context.Context) error {
			return nil
		}
	}

	return &sdkWorker{
		name:         cfg.name,
		version:      cfg.version,
		description:  cfg.description,
		tags:         cfg.tags,
		executeFunc:  cfg.executeFunc,
		shutdownFunc: shutdownFunc,
	}, nil
}

// sdkWorker is the internal implementation of the Worker interface.
// It wraps user-provided functions to implement the full Worker interface.
type sdkWorker struct {
	name         string
	version      string
	description  string
	tags         []string
	executeFunc  ExecuteFunc
	shutdownFunc ShutdownFunc
}

// Name returns the worker's unique identifier.
func (w *sdkWorker) Name() string {
	return w.name
}

// Version returns the worker's semantic version.
func (w *sdkWorker) Version() string {
	return w.version
}

// Description returns a description of what the worker does.
func (w *sdkWorker) Description() string {
	return w.description
}

// Tags returns the worker's discovery tags.
func (w *sdkWorker) Tags() []string {
	return w.tags
}

// Execute processes an item using the configured execute function.
func (w *sdkWorker) Execute(ctx context.Context, harness Harness, item Item) error {
	return w.executeFunc(ctx, harness, item)
}

// Shutdown calls the configured shutdown function.
func (w *sdkWorker) Shutdown(ctx context.Context) error {
	return w.shutdownFunc(ctx)
}
