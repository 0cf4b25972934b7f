// Package component provides loading and parsing of worker.yaml
// configuration files. Worker configurations define worker metadata, the
// heartbeat interval, and the optional queue and registry settings for
// standalone operation.
package component

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents a worker.yaml configuration file.
type Config struct {
	// Identity
	Kind        string `yaml:"kind,omitempty"` // "worker"; reserved for future component kinds
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`

	// Categorization
	Tags []string `yaml:"tags,omitempty"`

	// Worker runtime settings
	Worker *WorkerConfig `yaml:"worker,omitempty"`

	// Queue configuration (for standalone queue-driven execution)
	Queue *QueueConfig `yaml:"queue,omitempty"`

	// Registry configuration (for etcd self-registration)
	Registry *RegistryConfig `yaml:"registry,omitempty"`

	// Additional metadata
	Author     string `yaml:"author,omitempty"`
	License    string `yaml:"license,omitempty"`
	Repository string `yaml:"repository,omitempty"`
}

// WorkerConfig defines runtime settings for a worker process.
type WorkerConfig struct {
	// HeartbeatInterval is the interval between HEART reports to the
	// scheduler. Format: Go duration string (e.g., "30s").
	// Default: 30s
	HeartbeatInterval string `yaml:"heartbeat_interval,omitempty"`

	// ShutdownTimeout is the time allowed for graceful shutdown.
	// Format: Go duration string (e.g., "30s", "1m")
	// Default: 30s
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"`
}

// QueueConfig defines the Redis queue a standalone worker drains.
type QueueConfig struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string `yaml:"url,omitempty"`

	// Name overrides the queue key. Default: "worker:<name>:queue".
	Name string `yaml:"name,omitempty"`
}

// RegistryConfig defines the etcd registry a worker registers with.
type RegistryConfig struct {
	// Endpoints lists etcd cluster members, host:port.
	Endpoints []string `yaml:"endpoints,omitempty"`

	// Namespace prefixes registry keys. Default: "taskgrid".
	Namespace string `yaml:"namespace,omitempty"`

	// TTL is the registration lease time-to-live in seconds. Default: 30.
	TTL int `yaml:"ttl,omitempty"`
}

// GetHeartbeatInterval parses the heartbeat interval string and returns a
// duration. Returns the default value if not set or invalid.
func (w *WorkerConfig) GetHeartbeatInterval() time.Duration {
	if w == nil || w.HeartbeatInterval == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(w.HeartbeatInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetShutdownTimeout parses the shutdown timeout string and returns a
// duration. Returns the default value if not set or invalid.
func (w *WorkerConfig) GetShutdownTimeout() time.Duration {
	if w == nil || w.ShutdownTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(w.ShutdownTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetQueueName returns the configured queue key, or the canonical
// "worker:<name>:queue" key derived from the worker name.
func (c *Config) GetQueueName() string {
	if c.Queue != nil && c.Queue.Name != "" {
		return c.Queue.Name
	}
	return fmt.Sprintf("worker:%s:queue", c.Name)
}

// Validate checks that the configuration names a usable worker.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("worker name is required")
	}
	if c.Version == "" {
		return fmt.Errorf("worker version is required")
	}
	if c.Kind != "" && c.Kind != "worker" {
		return fmt.Errorf("unsupported component kind %q", c.Kind)
	}
	return nil
}

// Load reads and parses a worker.yaml file from the given path.
// If the path is a directory, it looks for worker.yaml or worker.yml in that
// directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	var configPath string
	if info.IsDir() {
		// Try worker.yaml first, then worker.yml
		yamlPath := filepath.Join(path, "worker.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "worker.yml")
			if _, err := os.Stat(ymlPath); err == nil {
				configPath = ymlPath
			} else {
				return nil, fmt.Errorf("no worker.yaml or worker.yml found in %s", path)
			}
		}
	} else {
		configPath = path
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadFromDir searches for worker.yaml starting from the given directory and
// walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			// Reached root
			return nil, fmt.Errorf("no worker.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}

// LoadFromCurrentDir loads worker.yaml from the current working directory.
func LoadFromCurrentDir() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFromDir(cwd)
}
