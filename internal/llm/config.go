package llm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TaskType identifies why the model is being called; it selects timeouts
// and sampling parameters.
type TaskType string

const (
	TaskClassify TaskType = "classify"
	TaskRespond  TaskType = "respond"
	TaskScore    TaskType = "score"
)

// Provider selects addressing and authentication for the completion endpoint.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderOpenAI Provider = "openai"
	ProviderGroq   Provider = "groq"
	ProviderAzure  Provider = "azure"
	ProviderGemini Provider = "gemini"
)

func (p Provider) valid() bool {
	switch p {
	case ProviderLocal, ProviderOpenAI, ProviderGroq, ProviderAzure, ProviderGemini:
		return true
	}
	return false
}

// TaskConfig holds per-task parameters.
type TaskConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutMs   int     `yaml:"timeout_ms"` // overrides Config.TimeoutMs if > 0
}

// Config holds all configuration for the provider gateway.
type Config struct {
	Provider        Provider                `yaml:"provider"`
	BaseURL         string                  `yaml:"base_url"`
	Model           string                  `yaml:"model"`
	APIKey          string                  `yaml:"api_key"`
	AzureAPIVersion string                  `yaml:"azure_api_version"`
	LogCalls        bool                    `yaml:"log_calls"`
	TimeoutMs       int                     `yaml:"timeout_ms"`
	MaxRetries      int                     `yaml:"max_retries"`
	CatalogTTLSec   int                     `yaml:"catalog_ttl_sec"`
	Tasks           map[TaskType]TaskConfig `yaml:"tasks"`
}

// DefaultConfig targets a local OpenAI-compatible server.
func DefaultConfig() Config {
	return Config{
		Provider:        ProviderLocal,
		BaseURL:         "http://localhost:11434/v1/chat/completions",
		Model:           "ai/llama3.2:3B-Q4_0",
		AzureAPIVersion: "2023-09-01-preview",
		TimeoutMs:       30000,
		MaxRetries:      0,
		CatalogTTLSec:   300,
		Tasks: map[TaskType]TaskConfig{
			TaskClassify: {Temperature: 0.0, MaxTokens: 8, TimeoutMs: 15000},
			TaskRespond:  {Temperature: 0.2, MaxTokens: 1024, TimeoutMs: 30000},
			TaskScore:    {Temperature: 0.1, MaxTokens: 2048, TimeoutMs: 45000},
		},
	}
}

// LoadConfig returns DefaultConfig with environment overrides applied.
func LoadConfig() Config {
	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	return cfg
}

// ApplyEnv overlays LIMINAL_LLM_* variables, falling back to the bare
// LLM_* names older deployments use.
func ApplyEnv(cfg *Config) {
	if v := env("LIMINAL_LLM_PROVIDER", "LLM_PROVIDER"); v != "" {
		cfg.Provider = Provider(strings.ToLower(v))
	}
	if v := env("LIMINAL_LLM_BASE_URL", "LLM_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := env("LIMINAL_LLM_MODEL", "LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := env("LIMINAL_LLM_API_KEY", "LLM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := env("LIMINAL_LLM_AZURE_API_VERSION", "AZURE_API_VERSION"); v != "" {
		cfg.AzureAPIVersion = v
	}
	if v := env("LIMINAL_LLM_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	if v := env("LIMINAL_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := env("LIMINAL_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}

	applyTaskTimeoutEnv(cfg, TaskClassify, "LIMINAL_LLM_CLASSIFY_TIMEOUT_MS")
	applyTaskTimeoutEnv(cfg, TaskRespond, "LIMINAL_LLM_RESPOND_TIMEOUT_MS")
	applyTaskTimeoutEnv(cfg, TaskScore, "LIMINAL_LLM_SCORE_TIMEOUT_MS")
}

// Validate fails when the provider cannot be addressed.
func (c Config) Validate() error {
	if !c.Provider.valid() {
		return fmt.Errorf("%w: unknown provider %q", ErrConfig, c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model is required", ErrConfig)
	}
	if c.Provider != ProviderGemini && strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required for provider %q", ErrConfig, c.Provider)
	}
	switch c.Provider {
	case ProviderOpenAI, ProviderGroq, ProviderAzure, ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("%w: api_key is required for provider %q", ErrConfig, c.Provider)
		}
	}
	if c.Provider == ProviderAzure && c.AzureAPIVersion == "" {
		return fmt.Errorf("%w: azure_api_version is required", ErrConfig)
	}
	return nil
}

// TaskTimeout returns the task-specific timeout if set, else the global one.
func (c Config) TaskTimeout(task TaskType) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}

func env(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func applyTaskTimeoutEnv(cfg *Config, task TaskType, envName string) {
	v := os.Getenv(envName)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return
	}
	if cfg.Tasks == nil {
		cfg.Tasks = map[TaskType]TaskConfig{}
	}
	tc := cfg.Tasks[task]
	tc.TimeoutMs = n
	cfg.Tasks[task] = tc
}
