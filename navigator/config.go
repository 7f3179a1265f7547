package navigator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all navigator configuration.
type Config struct {
	DBPath    string          `yaml:"db_path"`
	LogPath   string          `yaml:"log_path"`
	LogLevel  string          `yaml:"log_level"`
	TraceSQL  bool            `yaml:"trace_sql"` // log every parser cache statement at debug
	Fetch     FetchConfig     `yaml:"fetch"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Render    RenderConfig    `yaml:"render"`
}

// FetchConfig selects how documents are acquired by URL.
type FetchConfig struct {
	Backend        string        `yaml:"backend"` // http, headless, headful
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	MaxBytes       int64         `yaml:"max_bytes"`
	RemoteURL      string        `yaml:"remote_url"`
	BlockResources []string      `yaml:"block_resources"`
}

// NormalizeConfig tunes rule inference of the built-in engine.
type NormalizeConfig struct {
	MinTextLen int `yaml:"min_text_len"`
	MinItems   int `yaml:"min_items"`
}

// RenderConfig tunes the built-in terminal session.
type RenderConfig struct {
	PageSize  int `yaml:"page_size"`
	BodyChars int `yaml:"body_chars"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		c.DBPath = filepath.Join(dir, "patootie", "parsers.db")
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.Fetch.Backend == "" {
		c.Fetch.Backend = "http"
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 10 << 20
	}
	if c.Normalize.MinTextLen <= 0 {
		c.Normalize.MinTextLen = 50
	}
	if c.Normalize.MinItems <= 0 {
		c.Normalize.MinItems = 3
	}
	if c.Render.PageSize <= 0 {
		c.Render.PageSize = 10
	}
	if c.Render.BodyChars <= 0 {
		c.Render.BodyChars = 600
	}
}

// LoadConfigFile reads a YAML config file. Missing keys keep their
// defaults once the config is passed to New.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("navigator: read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("navigator: parse config %s: %w", path, err)
	}
	return cfg, nil
}
