package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EndpointsEnv is the environment variable NewClientFromEnv consults for a
// comma-separated list of etcd endpoints.
const EndpointsEnv = "TASKGRID_REGISTRY_ENDPOINTS"

// Client implements Registry on top of an etcd cluster.
//
// Lease management is automatic: each registered instance gets a lease with
// the configured TTL and a background goroutine renews it every TTL/3
// seconds until Deregister or Close.
//
// Thread-safety: all methods are safe for concurrent use.
type Client struct {
	client    *clientv3.Client
	namespace string
	ttl       int

	mu        sync.RWMutex
	leases    map[string]clientv3.LeaseID // key: instance ID
	cancelFns map[string]context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

// NewClient connects to etcd and verifies connectivity.
//
// The client must be closed with Close when no longer needed to stop the
// keepalive goroutines.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("registry endpoints cannot be empty")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "taskgrid"
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: 5 * time.Second,
	}

	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsConfig, err := clientTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
		clientCfg.TLS = tlsConfig
	}

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	// Quick connectivity probe before handing the client out.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := cli.Get(ctx, "health-check"); err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return &Client{
		client:    cli,
		namespace: namespace,
		ttl:       ttl,
		leases:    make(map[string]clientv3.LeaseID),
		cancelFns: make(map[string]context.CancelFunc),
	}, nil
}

// NewClientFromEnv creates a registry client from TASKGRID_REGISTRY_ENDPOINTS.
//
// If the variable is unset this returns (nil, nil): the worker runs fine, it
// just is not discoverable. An error is returned only when the variable is
// set but the connection fails.
func NewClientFromEnv() (*Client, error) {
	endpoints := os.Getenv(EndpointsEnv)
	if endpoints == "" {
		return nil, nil
	}

	endpointList := strings.Split(endpoints, ",")
	for i, ep := range endpointList {
		endpointList[i] = strings.TrimSpace(ep)
	}

	return NewClient(Config{Endpoints: endpointList})
}

// Register adds this worker run to the registry and starts its lease
// keepalive. Re-registering an InstanceID replaces the entry.
func (c *Client) Register(ctx context.Context, info ServiceInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	id := info.InstanceID.String()

	if cancelFn, exists := c.cancelFns[id]; exists {
		cancelFn()
		delete(c.cancelFns, id)
	}

	leaseResp, err := c.client.Grant(ctx, int64(c.ttl))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal service info: %w", err)
	}

	key := c.buildKey(info.Kind, info.Name, id)
	if _, err := c.client.Put(ctx, key, string(data), clientv3.WithLease(leaseResp.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	c.leases[id] = leaseResp.ID

	keepaliveCtx, cancel := context.WithCancel(context.Background())
	c.cancelFns[id] = cancel

	c.wg.Add(1)
	go c.keepalive(keepaliveCtx, leaseResp.ID)

	return nil
}

// Deregister removes this worker run by revoking its lease. Unknown
// instances are a no-op.
func (c *Client) Deregister(ctx context.Context, info ServiceInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	id := info.InstanceID.String()

	if cancelFn, exists := c.cancelFns[id]; exists {
		cancelFn()
		delete(c.cancelFns, id)
	}

	leaseID, exists := c.leases[id]
	if !exists {
		return nil
	}

	if _, err := c.client.Revoke(ctx, leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}

	delete(c.leases, id)
	return nil
}

// Discover returns all live runs of the named worker.
func (c *Client) Discover(ctx context.Context, kind, name string) ([]ServiceInfo, error) {
	return c.query(ctx, fmt.Sprintf("/%s/%s/%s/", c.namespace, kind, name))
}

// DiscoverAll returns all live runs of the given kind.
func (c *Client) DiscoverAll(ctx context.Context, kind string) ([]ServiceInfo, error) {
	return c.query(ctx, fmt.Sprintf("/%s/%s/", c.namespace, kind))
}

func (c *Client) query(ctx context.Context, prefix string) ([]ServiceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover services: %w", err)
	}

	instances := make([]ServiceInfo, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var info ServiceInfo
		if err := json.Unmarshal(kv.Value, &info); err != nil {
			// Skip entries written by incompatible versions.
			continue
		}
		instances = append(instances, info)
	}

	return instances, nil
}

// Close stops all keepalives and releases the etcd client. Registered
// entries are left to expire with their leases.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	for id, cancelFn := range c.cancelFns {
		cancelFn()
		delete(c.cancelFns, id)
	}
	c.mu.Unlock()

	c.wg.Wait()
	return c.client.Close()
}

// keepalive renews the lease every TTL/3 until its context is cancelled.
func (c *Client) keepalive(ctx context.Context, leaseID clientv3.LeaseID) {
	defer c.wg.Done()

	interval := time.Duration(c.ttl) * time.Second / 3
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.client.KeepAliveOnce(ctx, leaseID); err != nil {
				// Lease is gone (revoked or expired); nothing left
				// to renew.
				return
			}
		}
	}
}

// buildKey returns /namespace/kind/name/instance-id.
func (c *Client) buildKey(kind, name, instanceID string) string {
	return fmt.Sprintf("/%s/%s/%s/%s", c.namespace, kind, name, instanceID)
}
