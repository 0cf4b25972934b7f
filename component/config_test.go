package component

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `kind: worker
name: license-scanner
version: 1.4.0
description: Scans uploaded archives for license texts
tags:
  - analysis
  - licenses
worker:
  heartbeat_interval: 15s
  shutdown_timeout: 1m
queue:
  url: redis://localhost:6379
registry:
  endpoints:
    - localhost:2379
  namespace: taskgrid
  ttl: 60
author: platform-team
`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "worker.yaml", sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "worker", cfg.Kind)
	assert.Equal(t, "license-scanner", cfg.Name)
	assert.Equal(t, "1.4.0", cfg.Version)
	assert.Equal(t, []string{"analysis", "licenses"}, cfg.Tags)
	assert.Equal(t, 15*time.Second, cfg.Worker.GetHeartbeatInterval())
	assert.Equal(t, time.Minute, cfg.Worker.GetShutdownTimeout())
	assert.Equal(t, "redis://localhost:6379", cfg.Queue.URL)
	assert.Equal(t, []string{"localhost:2379"}, cfg.Registry.Endpoints)
	assert.Equal(t, 60, cfg.Registry.TTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDirectory(t *testing.T) {
	t.Run("worker.yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "worker.yaml", sampleYAML)

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "license-scanner", cfg.Name)
	})

	t.Run("worker.yml fallback", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "worker.yml", sampleYAML)

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "license-scanner", cfg.Name)
	})

	t.Run("missing config", func(t *testing.T) {
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no worker.yaml or worker.yml")
	})
}

func TestLoadFromDirWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "worker.yaml", sampleYAML)

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := LoadFromDir(nested)
	require.NoError(t, err)
	assert.Equal(t, "license-scanner", cfg.Name)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "worker.yaml", "name: [unterminated")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid",
			cfg:  Config{Name: "w", Version: "1.0.0"},
		},
		{
			name:    "missing name",
			cfg:     Config{Version: "1.0.0"},
			wantErr: "worker name is required",
		},
		{
			name:    "missing version",
			cfg:     Config{Name: "w"},
			wantErr: "worker version is required",
		},
		{
			name:    "foreign kind",
			cfg:     Config{Name: "w", Version: "1.0.0", Kind: "plugin"},
			wantErr: `unsupported component kind "plugin"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := Config{Name: "license-scanner", Version: "1.0.0"}

	assert.Equal(t, 30*time.Second, cfg.Worker.GetHeartbeatInterval(), "nil worker section falls back to defaults")
	assert.Equal(t, 30*time.Second, cfg.Worker.GetShutdownTimeout())
	assert.Equal(t, "worker:license-scanner:queue", cfg.GetQueueName())

	cfg.Queue = &QueueConfig{Name: "custom:queue"}
	assert.Equal(t, "custom:queue", cfg.GetQueueName())

	bad := &WorkerConfig{HeartbeatInterval: "soon"}
	assert.Equal(t, 30*time.Second, bad.GetHeartbeatInterval(), "unparsable durations fall back")
}
