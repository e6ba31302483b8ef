package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clubkit/clubkit/go/internal/jobs"
	"github.com/clubkit/clubkit/go/internal/reminders"
)

// Config holds the file-based settings shared by the API server and the
// workers. Database settings come from DB_* environment variables instead
// (see the dbconfig package).
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Worker struct {
		PollInterval string `yaml:"poll_interval"`
		BatchSize    int    `yaml:"batch_size"`
		MaxRetries   int    `yaml:"max_retries"`
		RetryDelay   string `yaml:"retry_delay"`
	} `yaml:"worker"`

	Reminders struct {
		Schedule    string `yaml:"schedule"`
		Lookahead   string `yaml:"lookahead"`
		BatchLimit  int    `yaml:"batch_limit"`
		SendTimeout string `yaml:"send_timeout"`
	} `yaml:"reminders"`

	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Roster struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"roster"`
}

// Load reads the yaml config at path. A missing file is not an error: every
// setting has a default, and CLUBKIT_CONFIG / env vars can override the path
// and individual values.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = getEnv("PORT", "8080")
	}
	if c.Reminders.Schedule == "" {
		c.Reminders.Schedule = "@every 2m"
	}
	if c.NATS.URL == "" {
		c.NATS.URL = os.Getenv("NATS_URL")
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "push.reminder"
	}
	if c.Roster.BaseURL == "" {
		c.Roster.BaseURL = getEnv("ROSTER_BASE_URL", "http://localhost:8081")
	}
}

// WorkerConfig translates the file settings into a jobs worker config.
func (c *Config) WorkerConfig() jobs.Config {
	cfg := jobs.DefaultConfig()
	if d := parseDuration(c.Worker.PollInterval); d > 0 {
		cfg.PollInterval = d
	}
	if c.Worker.BatchSize > 0 {
		cfg.BatchSize = c.Worker.BatchSize
	}
	if c.Worker.MaxRetries > 0 {
		cfg.MaxRetries = c.Worker.MaxRetries
	}
	if d := parseDuration(c.Worker.RetryDelay); d > 0 {
		cfg.RetryDelay = d
	}
	return cfg
}

// ScannerConfig translates the file settings into a reminder scanner config.
func (c *Config) ScannerConfig() reminders.Config {
	cfg := reminders.DefaultConfig()
	if d := parseDuration(c.Reminders.Lookahead); d > 0 {
		cfg.Lookahead = d
	}
	if c.Reminders.BatchLimit > 0 {
		cfg.BatchLimit = c.Reminders.BatchLimit
	}
	if d := parseDuration(c.Reminders.SendTimeout); d > 0 {
		cfg.SendTimeout = d
	}
	return cfg
}

func parseDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
