package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the recognized configuration options. Unknown keys in the
// file are ignored.
type Config struct {
	DefaultCash     float64  `json:"default_cash" yaml:"default_cash"`
	DefaultStopLoss float64  `json:"default_stop_loss" yaml:"default_stop_loss"`
	ExtraTickers    []string `json:"extra_tickers,omitempty" yaml:"extra_tickers,omitempty"`
	Email           string   `json:"email,omitempty" yaml:"email,omitempty"`
	WebhookURL      string   `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	RunTime         string   `json:"run_time,omitempty" yaml:"run_time,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ExtraTickers: []string{"^RUT", "IWO", "XBI"},
		RunTime:      "09:00",
	}
}

var runTimeRe = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// LoadFromFile loads configuration from a file (JSON or YAML based on
// extension). A missing file yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration back out, YAML unless the path ends
// in .json. Used by the dashboard's config and scheduler pages.
func (c *Config) SaveToFile(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks value ranges. Zero values are allowed everywhere except a
// malformed run_time, which would silently break the scheduler.
func (c *Config) Validate() error {
	if c.DefaultCash < 0 {
		return fmt.Errorf("default_cash must not be negative")
	}
	if c.DefaultStopLoss < 0 {
		return fmt.Errorf("default_stop_loss must not be negative")
	}
	if c.RunTime != "" && !runTimeRe.MatchString(c.RunTime) {
		return fmt.Errorf("run_time %q is not HH:MM", c.RunTime)
	}
	return nil
}
