package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a configuration the process cannot start with.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	DBPath   string        `yaml:"db_path"`
	HTTPAddr string        `yaml:"http_addr"`
	User     string        `yaml:"user"` // acting user for the CLI and header-less HTTP requests
	LLM      llm.Config    `yaml:"llm"`
	Monitor  MonitorConfig `yaml:"monitor"`
	Scoring  ScoringConfig `yaml:"scoring"`
	Logging  LoggingConfig `yaml:"logging"`
}

// MonitorConfig configures the deadline scan loop.
type MonitorConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Window      time.Duration `yaml:"window"` // how far ahead a due date triggers an alert
	RunOnStart  bool          `yaml:"run_on_start"`
	Concurrency int           `yaml:"concurrency"`
}

// ScoringConfig configures the relevance scorer.
type ScoringConfig struct {
	DailyCapacityMinutes int `yaml:"daily_capacity_minutes"`
	ContextTasks         int `yaml:"context_tasks"` // active tasks shown to the task specialist
	StaleDays            int `yaml:"stale_days"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Debug bool   `yaml:"debug"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		DBPath:   defaultDBPath(),
		HTTPAddr: ":8080",
		User:     "local",
		LLM:      llm.DefaultConfig(),
		Monitor: MonitorConfig{
			Interval:    time.Hour,
			Window:      24 * time.Hour,
			RunOnStart:  true,
			Concurrency: 4,
		},
		Scoring: ScoringConfig{
			DailyCapacityMinutes: 480,
			ContextTasks:         10,
			StaleDays:            5,
		},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if it
// exists), then a .env file in the working directory, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LIMINAL_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("LIMINAL_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("LIMINAL_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv("LIMINAL_MONITOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Monitor.Interval = d
		}
	}
	if v := os.Getenv("LIMINAL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LIMINAL_DEBUG"); v != "" {
		c.Logging.Debug, _ = strconv.ParseBool(v)
	}
	llm.ApplyEnv(&c.LLM)
}

// Validate fails fast on settings the process cannot run with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is required", ErrInvalid)
	}
	if c.User == "" {
		return fmt.Errorf("%w: user is required", ErrInvalid)
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("%w: monitor.interval must be positive", ErrInvalid)
	}
	if c.Monitor.Window <= 0 {
		return fmt.Errorf("%w: monitor.window must be positive", ErrInvalid)
	}
	if c.Scoring.DailyCapacityMinutes <= 0 {
		return fmt.Errorf("%w: scoring.daily_capacity_minutes must be positive", ErrInvalid)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".liminal", "liminal.db")
	}
	return filepath.Join(home, ".liminal", "liminal.db")
}
