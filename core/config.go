// Package core provides the process-wide handle (CoreContext) and the
// closed set of environment knobs every other package is configured from.
package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects the ranking strategy. See spec.md §9.
type Mode string

const (
	ModeSemantic   Mode = "semantic"
	ModeNoSemantic Mode = "no-semantic"
	ModeHybrid     Mode = "hybrid"
)

// Config is the closed enumeration of environment knobs from spec.md §6,
// plus three additions: embed_workers, snap_keep and promotion_ttl.
type Config struct {
	ModelsDir        string        `yaml:"models_dir"`
	CacheDir         string        `yaml:"cache_dir"`
	Strict           bool          `yaml:"strict"`
	CaptureTimeoutMS int           `yaml:"capture_timeout_ms"`
	StableWindowMS   int           `yaml:"stable_window_ms"`
	MemCap           int           `yaml:"mem_cap"`
	DiskCap          int           `yaml:"disk_cap"`
	EmbedWorkers     int           `yaml:"embed_workers"`
	MaxRetries       int           `yaml:"max_retries"`
	Alpha            float64       `yaml:"alpha"`
	Beta             float64       `yaml:"beta"`
	Gamma            float64       `yaml:"gamma"`
	ReindexDeltaPct  float64       `yaml:"reindex_delta_pct"`
	Mode             Mode          `yaml:"mode"`
	SnapKeep         int           `yaml:"snap_keep"`
	PromotionTTL     time.Duration `yaml:"promotion_ttl"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("core: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("core: parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ModelsDir == "" {
		c.ModelsDir = "./models"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./cache"
	}
	if c.CaptureTimeoutMS <= 0 {
		c.CaptureTimeoutMS = 30_000
	}
	if c.StableWindowMS <= 0 {
		c.StableWindowMS = 500
	}
	if c.MemCap <= 0 {
		c.MemCap = 10_000
	}
	if c.DiskCap <= 0 {
		c.DiskCap = 100_000
	}
	if c.EmbedWorkers <= 0 {
		c.EmbedWorkers = 4
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.Alpha <= 0 {
		c.Alpha = 1.0
	}
	if c.Beta <= 0 {
		c.Beta = 0.5
	}
	if c.Gamma <= 0 {
		c.Gamma = 0.2
	}
	if c.ReindexDeltaPct <= 0 {
		c.ReindexDeltaPct = 0.30
	}
	if c.Mode == "" {
		c.Mode = ModeSemantic
	}
	if c.SnapKeep <= 0 {
		c.SnapKeep = 10
	}
	if c.PromotionTTL <= 0 {
		c.PromotionTTL = 180 * 24 * time.Hour
	}
}

// CaptureTimeout returns CaptureTimeoutMS as a time.Duration.
func (c Config) CaptureTimeout() time.Duration {
	return time.Duration(c.CaptureTimeoutMS) * time.Millisecond
}

// StableWindow returns StableWindowMS as a time.Duration.
func (c Config) StableWindow() time.Duration {
	return time.Duration(c.StableWindowMS) * time.Millisecond
}
