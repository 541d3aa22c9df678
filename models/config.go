// Package models defines data structures for configuration and scraped items.
package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "vscrape.yaml"

// Config holds runtime configuration. Values come from an optional YAML file
// and are overridden by CLI flags that were explicitly set.
type Config struct {
	OutputDir    string        `yaml:"output_dir"`
	IgnoreDir    string        `yaml:"ignore_dir"`
	DatabasePath string        `yaml:"database_path"`
	Delay        time.Duration `yaml:"delay"`
	Impersonate  bool          `yaml:"impersonate"`

	Search SearchConfig `yaml:"search"`
	Embed  EmbedConfig  `yaml:"embed"`
}

// SearchConfig configures the stock-site search adapter.
type SearchConfig struct {
	BaseURL  string        `yaml:"base_url"`
	MaxPages int           `yaml:"max_pages"`
	PageSize int           `yaml:"page_size"`
	CacheDir string        `yaml:"cache_dir"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// EmbedConfig configures the image/text embedding endpoint used for ranking.
type EmbedConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
	Frames    int           `yaml:"frames"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		OutputDir:    "downloads",
		IgnoreDir:    "ignore_list",
		DatabasePath: "vscrape.db",
		Delay:        time.Second,
		Search: SearchConfig{
			BaseURL:  "https://stock.adobe.com",
			MaxPages: 10,
			PageSize: 200,
			CacheTTL: 30 * time.Minute,
		},
		Embed: EmbedConfig{
			Endpoint:  "http://127.0.0.1:8003/v1/",
			Model:     "clip-vit-b-32",
			Dimension: 512,
			Timeout:   60 * time.Second,
			Frames:    8,
		},
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
