// Package registry provides out-of-band discovery of running TaskGrid
// workers.
//
// The scheduler drives each worker over its standard streams; that channel
// carries work and liveness but says nothing about which workers exist on a
// host fleet. Workers (and the schedulers that spawn them) can additionally
// self-register in etcd so operators and schedulers see the live population
// without scraping process tables.
//
// Registration is lease-based: entries carry a TTL and the client renews the
// lease in the background, so a crashed worker disappears from the registry
// on its own once the lease expires.
package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ServiceInfo describes one registered worker run.
//
// Multiple instances of the same worker binary can run at once; each run
// registers under its own InstanceID (the scheduler connection's run ID).
type ServiceInfo struct {
	// Kind identifies the component type. Workers register as "worker";
	// schedulers may register themselves as "scheduler".
	Kind string `json:"kind"`

	// Name is the worker name (e.g., "license-scanner").
	Name string `json:"name"`

	// Version is the semantic version of the worker build.
	Version string `json:"version"`

	// InstanceID uniquely identifies this run.
	InstanceID uuid.UUID `json:"instance_id"`

	// PID is the operating-system process ID of the worker, for operators
	// correlating registry entries with processes.
	PID int `json:"pid"`

	// Scheduled reports whether the run is under scheduler control or
	// standalone.
	Scheduled bool `json:"scheduled"`

	// Metadata carries worker-specific attributes, typically the worker's
	// tags and queue name.
	Metadata map[string]string `json:"metadata,omitempty"`

	// StartedAt is when this run began.
	StartedAt time.Time `json:"started_at"`
}

// Registry is the registration and discovery interface.
//
// Implementations must be safe for concurrent use. Entries are tied to a
// TTL lease; Register starts a background keepalive that renews it, and
// Deregister revokes it so the entry vanishes immediately instead of waiting
// for expiry.
type Registry interface {
	// Register adds this worker run to the registry. Registering the same
	// InstanceID again replaces the entry and restarts its keepalive.
	Register(ctx context.Context, info ServiceInfo) error

	// Deregister removes this worker run. Deregistering an unknown
	// instance is a no-op, not an error.
	Deregister(ctx context.Context, info ServiceInfo) error

	// Discover returns all live runs of the named worker, in arbitrary
	// order. The slice may be empty.
	Discover(ctx context.Context, kind, name string) ([]ServiceInfo, error)

	// DiscoverAll returns all live runs of the given kind.
	DiscoverAll(ctx context.Context, kind string) ([]ServiceInfo, error)

	// Close stops all keepalives and releases the client. Other methods
	// error after Close.
	Close() error
}

// Config configures the etcd-backed registry client.
type Config struct {
	// Endpoints lists the etcd cluster members, host:port.
	Endpoints []string

	// Namespace prefixes every registry key. Defaults to "taskgrid".
	Namespace string

	// TTL is the lease time-to-live in seconds. A worker whose keepalive
	// stops is dropped after at most this long. Defaults to 30.
	TTL int

	// TLS enables mutual TLS toward etcd when set.
	TLS *TLSConfig
}

// TLSConfig holds the certificate material for a TLS-enabled etcd cluster.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
	CAFile   string
}

// NewServiceInfo assembles a ServiceInfo for a worker run with the fields
// the SDK knows how to fill.
func NewServiceInfo(name, version string, instanceID uuid.UUID, pid int, scheduled bool, metadata map[string]string) ServiceInfo {
	return ServiceInfo{
		Kind:       "worker",
		Name:       name,
		Version:    version,
		InstanceID: instanceID,
		PID:        pid,
		Scheduled:  scheduled,
		Metadata:   metadata,
		StartedAt:  time.Now().UTC(),
	}
}
