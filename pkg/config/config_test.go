package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	chunk, err := cfg.ChunkSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024), chunk)

	quota, err := cfg.DefaultQuotaBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024*1024), quota)

	require.Len(t, cfg.Nodes, 3)
	assert.Equal(t, "node1", cfg.Nodes[0].ID)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: 0.0.0.0:9000
chunk_size: 1MiB
replication: 3
manifest:
  store: bolt
  path: /tmp/manifests.db
nodes:
  - id: big
    capacity: 100GB
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, 3, cfg.Replication)
	assert.Equal(t, "bolt", cfg.Manifest.Store)
	require.Len(t, cfg.Nodes, 1)
	assert.Equal(t, "big", cfg.Nodes[0].ID)

	// Untouched fields keep their defaults.
	assert.Equal(t, "2GiB", cfg.DefaultQuota)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"BadChunkSize", "chunk_size: lots"},
		{"BadStore", "manifest:\n  store: sqlite"},
		{"BoltWithoutPath", "manifest:\n  store: bolt"},
		{"NoNodes", "nodes: []"},
		{"BadCapacity", "nodes:\n  - id: n1\n    capacity: broken"},
		{"ZeroReplication", "replication: -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
