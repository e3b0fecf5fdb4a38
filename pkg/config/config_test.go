package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemperatures(t *testing.T) {
	cfg := Default()

	want := map[Role]float64{
		RolePlanner:   0.7,
		RoleArchitect: 0.5,
		RoleCoder:     0.3,
		RoleReviewer:  0.2,
		RoleTester:    0.4,
	}
	for role, temp := range want {
		assert.Equal(t, temp, cfg.Model(role).Temperature, "role %s", role)
		assert.Equal(t, DefaultModel, cfg.Model(role).Model, "role %s", role)
	}

	assert.Equal(t, 100, cfg.Limits.MaxRecursionLimit)
	assert.Equal(t, int64(1024*1024), cfg.Limits.MaxFileSize)
	assert.Equal(t, "generated_project", cfg.Paths.GeneratedProjectsDir)
	assert.Equal(t, "checkpoints", cfg.Paths.CheckpointDir)
	assert.True(t, cfg.Features.EnableCodeReview)
	assert.False(t, cfg.Features.EnableDocker)
	require.NoError(t, cfg.Validate())
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
agents:
  coder:
    provider: anthropic
    model: claude-sonnet-4-5
    temperature: 0.1
features:
  enable_testing: false
limits:
  max_recursion_limit: 40
  command_timeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Agents.Coder.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Agents.Coder.Model)
	assert.InDelta(t, 0.1, cfg.Agents.Coder.Temperature, 1e-9)
	assert.InDelta(t, 0.7, cfg.Agents.Planner.Temperature, 1e-9)
	assert.False(t, cfg.Features.EnableTesting)
	assert.True(t, cfg.Features.EnableCodeReview)
	assert.False(t, cfg.Features.EnableShell)
	assert.Equal(t, 40, cfg.Limits.MaxRecursionLimit)
	assert.Equal(t, 10*time.Second, cfg.Limits.CommandTimeout)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty model", func(c *Config) { c.Agents.Reviewer.Model = "" }, "model"},
		{"hot temperature", func(c *Config) { c.Agents.Planner.Temperature = 2.5 }, "temperature"},
		{"bad provider", func(c *Config) { c.Agents.Coder.Provider = "cohere" }, "provider"},
		{"zero recursion", func(c *Config) { c.Limits.MaxRecursionLimit = 0 }, "limits.max_recursion_limit"},
		{"zero tool rounds", func(c *Config) { c.Agents.MaxToolRounds = 0 }, "agents.max_tool_rounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ce *ConfigurationError
			require.True(t, errors.As(err, &ce), "expected ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestSaveWritesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(Default(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "generated_projects_dir: generated_project"), text)
	assert.True(t, strings.Contains(text, "enable_code_review: true"), text)
}

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		cfg  ModelConfig
		want string
	}{
		{ModelConfig{Model: "claude-sonnet-4-5"}, ProviderAnthropic},
		{ModelConfig{Model: "gpt-4o"}, ProviderOpenAI},
		{ModelConfig{Model: "gemini-2.5-flash"}, ProviderGoogle},
		{ModelConfig{Model: "llama-3.3-70b-versatile"}, ProviderGroq},
		{ModelConfig{Model: "ollama:qwen2.5-coder"}, ProviderOllama},
		{ModelConfig{Provider: "gemini", Model: "anything"}, ProviderGoogle},
	}
	for _, tt := range tests {
		got, err := tt.cfg.ResolveProvider()
		require.NoError(t, err, tt.cfg.Model)
		assert.Equal(t, tt.want, got, tt.cfg.Model)
	}

	_, err := ModelConfig{Model: "mystery-model"}.ResolveProvider()
	assert.Error(t, err)
	assert.Equal(t, "qwen2.5-coder", ModelConfig{Model: "ollama:qwen2.5-coder"}.ModelID())
}

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 3.0+15.0, CalculateCost("claude-sonnet-4-5", 1_000_000, 1_000_000), 1e-9)
	assert.InDelta(t, 0.0015*2, CalculateCost("unlisted", 1000, 1000), 1e-12)
}

func TestGetAPIKeyMissingIsConfigurationError(t *testing.T) {
	t.Setenv(EnvGroqAPIKey, "")
	SetSecrets(nil)

	_, err := GetAPIKey(ProviderGroq)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	t.Setenv(EnvGroqAPIKey, "gsk-test")
	key, err := GetAPIKey(ProviderGroq)
	require.NoError(t, err)
	assert.Equal(t, "gsk-test", key)
}

func TestGetAPIKeyGeminiFallback(t *testing.T) {
	t.Setenv(EnvGoogleAPIKey, "")
	t.Setenv(EnvGeminiAPIKey, "gem-key")
	SetSecrets(nil)

	key, err := GetAPIKey(ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "gem-key", key)
}
