package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		APIKey         string   `yaml:"apiKey"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Remote struct {
		BaseURL    string `yaml:"baseUrl"`
		Collection string `yaml:"collection"`
	} `yaml:"remote"`

	Queue struct {
		Dir string `yaml:"dir"`
	} `yaml:"queue"`

	Cache struct {
		Capacity       int      `yaml:"capacity"`
		SensitiveTools []string `yaml:"sensitiveTools"`
	} `yaml:"cache"`

	LiveView struct {
		PollIntervalSeconds int `yaml:"pollIntervalSeconds"`
	} `yaml:"liveView"`

	AI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"ai"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Remote.BaseURL == "" {
		return nil, fmt.Errorf("remote.baseUrl is required")
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	return &cfg, nil
}

// Collection returns the report collection name, defaulting to "reports".
func (c *Config) Collection() string {
	if c.Remote.Collection == "" {
		return "reports"
	}
	return c.Remote.Collection
}

// QueueDir returns the local queue directory, defaulting next to the binary.
func (c *Config) QueueDir() string {
	if c.Queue.Dir == "" {
		return "data/queue"
	}
	return c.Queue.Dir
}

// PollInterval returns the degraded-mode poll interval (default 5s).
func (c *Config) PollInterval() time.Duration {
	if c.LiveView.PollIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.LiveView.PollIntervalSeconds) * time.Second
}

// CacheCapacity returns the read-cache capacity (default 50).
func (c *Config) CacheCapacity() int {
	if c.Cache.Capacity <= 0 {
		return 50
	}
	return c.Cache.Capacity
}

// SensitiveTools returns tool categories the cache must never store.
func (c *Config) SensitiveTools() []string {
	if len(c.Cache.SensitiveTools) == 0 {
		return []string{"password", "breach"}
	}
	return c.Cache.SensitiveTools
}
