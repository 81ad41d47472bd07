// Package config loads node configuration from JSON. Fields are pointers so
// partial config files are safe; the Get* methods supply defaults for
// anything left unset.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// NodeConfig represents the root configuration of the grid node. The same
// values can also be set from command line flags, which take precedence.
type NodeConfig struct {
	// Grid params
	Resolution       *float64 `json:"resolution,omitempty"`
	PublishPeriodSec *float64 `json:"publish_period_sec,omitempty"`

	// Backend endpoints
	BackendURL    *string `json:"backend_url,omitempty"`
	BackendWSURL  *string `json:"backend_ws_url,omitempty"`
	FetchTimeout  *string `json:"fetch_timeout,omitempty"`  // duration string like "5s"
	ReadTimeout   *string `json:"read_timeout,omitempty"`   // duration string like "30s"
	ReconnectWait *string `json:"reconnect_wait,omitempty"` // duration string like "2s"

	// HTTP interface
	Listen *string `json:"listen,omitempty"`

	// Archive params
	ArchivePath *string `json:"archive_path,omitempty"`
}

// EmptyNodeConfig returns a NodeConfig with all fields set to nil.
func EmptyNodeConfig() *NodeConfig {
	return &NodeConfig{}
}

// LoadNodeConfig loads a NodeConfig from a JSON file. Fields omitted from
// the JSON file fall back to defaults via the Get* methods.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyNodeConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *NodeConfig) Validate() error {
	if c.Resolution != nil && *c.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %f", *c.Resolution)
	}

	if c.PublishPeriodSec != nil && *c.PublishPeriodSec <= 0 {
		return fmt.Errorf("publish_period_sec must be positive, got %f", *c.PublishPeriodSec)
	}

	for name, v := range map[string]*string{
		"fetch_timeout":  c.FetchTimeout,
		"read_timeout":   c.ReadTimeout,
		"reconnect_wait": c.ReconnectWait,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}

	return nil
}

// GetResolution returns the output grid resolution in meters per pixel.
func (c *NodeConfig) GetResolution() float64 {
	if c.Resolution == nil {
		return 0.05 // default
	}
	return *c.Resolution
}

// GetPublishPeriod returns the compositing interval.
func (c *NodeConfig) GetPublishPeriod() time.Duration {
	if c.PublishPeriodSec == nil {
		return time.Second // default
	}
	return time.Duration(*c.PublishPeriodSec * float64(time.Second))
}

// GetBackendURL returns the HTTP base URL of the mapping backend.
func (c *NodeConfig) GetBackendURL() string {
	if c.BackendURL == nil {
		return "http://localhost:7878"
	}
	return *c.BackendURL
}

// GetBackendWSURL returns the WebSocket URL of the submap-list stream.
func (c *NodeConfig) GetBackendWSURL() string {
	if c.BackendWSURL == nil {
		return "ws://localhost:7878/ws/submap_list"
	}
	return *c.BackendWSURL
}

// GetFetchTimeout parses and returns the FetchTimeout as a time.Duration.
func (c *NodeConfig) GetFetchTimeout() time.Duration {
	if c.FetchTimeout == nil || *c.FetchTimeout == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.FetchTimeout)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetReadTimeout parses and returns the ReadTimeout as a time.Duration.
func (c *NodeConfig) GetReadTimeout() time.Duration {
	if c.ReadTimeout == nil || *c.ReadTimeout == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ReadTimeout)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}

// GetReconnectWait parses and returns the ReconnectWait as a time.Duration.
func (c *NodeConfig) GetReconnectWait() time.Duration {
	if c.ReconnectWait == nil || *c.ReconnectWait == "" {
		return 2 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ReconnectWait)
	if err != nil {
		return 2 * time.Second // default on parse error
	}
	return d
}

// GetListen returns the HTTP listen address.
func (c *NodeConfig) GetListen() string {
	if c.Listen == nil {
		return ":8080"
	}
	return *c.Listen
}

// GetArchivePath returns the archive database path, empty when archiving is
// disabled.
func (c *NodeConfig) GetArchivePath() string {
	if c.ArchivePath == nil {
		return ""
	}
	return *c.ArchivePath
}
