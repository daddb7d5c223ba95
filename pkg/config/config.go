package config

import (
	"fmt"
	"os"

	"blocknet/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Config describes one blocknet deployment: the HTTP listen address,
// manifest persistence, chunking and replication parameters, and the
// bootstrap node pool.
type Config struct {
	Listen       string         `yaml:"listen"`
	ChunkSize    string         `yaml:"chunk_size"`
	Replication  int            `yaml:"replication"`
	DefaultQuota string         `yaml:"default_quota"`
	Manifest     ManifestConfig `yaml:"manifest"`
	Nodes        []NodeConfig   `yaml:"nodes"`
}

type ManifestConfig struct {
	// Store selects the manifest backend: "memory" or "bolt".
	Store string `yaml:"store"`
	// Path is the BoltDB file, required when Store is "bolt".
	Path string `yaml:"path"`
}

type NodeConfig struct {
	ID       string `yaml:"id"`
	Capacity string `yaml:"capacity"`
}

// Default returns the stock simulation: three heterogeneous nodes,
// 2MiB chunks, 2x replication, a 2GiB free quota per user, and
// in-memory manifests.
func Default() *Config {
	return &Config{
		Listen:       "127.0.0.1:8000",
		ChunkSize:    "2MiB",
		Replication:  2,
		DefaultQuota: "2GiB",
		Manifest:     ManifestConfig{Store: "memory"},
		Nodes: []NodeConfig{
			{ID: "node1", Capacity: "20GB"},
			{ID: "node2", Capacity: "20GB"},
			{ID: "node3", Capacity: "10GB"},
		},
	}
}

// Load reads a YAML config file. Fields left empty fall back to the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Replication <= 0 {
		return fmt.Errorf("replication must be positive, got %d", c.Replication)
	}
	if _, err := c.ChunkSizeBytes(); err != nil {
		return err
	}
	if _, err := c.DefaultQuotaBytes(); err != nil {
		return err
	}

	switch c.Manifest.Store {
	case "memory":
	case "bolt":
		if c.Manifest.Path == "" {
			return fmt.Errorf("manifest path is required for the bolt store")
		}
	default:
		return fmt.Errorf("unknown manifest store %q (want memory or bolt)", c.Manifest.Store)
	}

	if len(c.Nodes) == 0 {
		return fmt.Errorf("at least one bootstrap node is required")
	}
	for _, n := range c.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node id must not be empty")
		}
		if _, err := utils.ParseDataSize(n.Capacity); err != nil {
			return fmt.Errorf("node %s: invalid capacity: %w", n.ID, err)
		}
	}
	return nil
}

func (c *Config) ChunkSizeBytes() (int64, error) {
	size, err := utils.ParseDataSize(c.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("invalid chunk_size: %w", err)
	}
	if size <= 0 {
		return 0, fmt.Errorf("chunk_size must be positive")
	}
	return size, nil
}

func (c *Config) DefaultQuotaBytes() (int64, error) {
	size, err := utils.ParseDataSize(c.DefaultQuota)
	if err != nil {
		return 0, fmt.Errorf("invalid default_quota: %w", err)
	}
	return size, nil
}
