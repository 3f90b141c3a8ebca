package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderLocal, cfg.Provider)
	assert.Equal(t, 15000, cfg.TaskTimeout(TaskClassify))
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LIMINAL_LLM_PROVIDER", "Groq")
	t.Setenv("LLM_BASE_URL", "https://api.groq.com")
	t.Setenv("LIMINAL_LLM_MODEL", "llama-3.1-8b-instant")
	t.Setenv("LIMINAL_LLM_API_KEY", "k")
	t.Setenv("LIMINAL_LLM_MAX_RETRIES", "2")

	cfg := LoadConfig()

	assert.Equal(t, ProviderGroq, cfg.Provider)
	assert.Equal(t, "https://api.groq.com", cfg.BaseURL)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Model)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_PrefixedNameWins(t *testing.T) {
	t.Setenv("LLM_MODEL", "fallback")
	t.Setenv("LIMINAL_LLM_MODEL", "primary")

	assert.Equal(t, "primary", LoadConfig().Model)
}

func TestLoadConfig_TaskTimeoutOverrides(t *testing.T) {
	t.Setenv("LIMINAL_LLM_TIMEOUT_MS", "9000")
	t.Setenv("LIMINAL_LLM_CLASSIFY_TIMEOUT_MS", "4000")
	t.Setenv("LIMINAL_LLM_SCORE_TIMEOUT_MS", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, 9000, cfg.TimeoutMs)
	assert.Equal(t, 4000, cfg.TaskTimeout(TaskClassify))
	assert.Equal(t, 45000, cfg.TaskTimeout(TaskScore))
}

func TestTaskTimeout_FallsBackToGlobal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tasks = nil
	assert.Equal(t, cfg.TimeoutMs, cfg.TaskTimeout(TaskRespond))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "mystery" }},
		{"missing model", func(c *Config) { c.Model = " " }},
		{"missing base url", func(c *Config) { c.BaseURL = "" }},
		{"openai without key", func(c *Config) { c.Provider = ProviderOpenAI }},
		{"gemini without key", func(c *Config) { c.Provider = ProviderGemini; c.BaseURL = "" }},
		{"azure without version", func(c *Config) {
			c.Provider = ProviderAzure
			c.APIKey = "k"
			c.AzureAPIVersion = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrConfig)
		})
	}
}

func TestConfig_Validate_GeminiNeedsNoBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderGemini
	cfg.BaseURL = ""
	cfg.APIKey = "k"
	assert.NoError(t, cfg.Validate())
}
