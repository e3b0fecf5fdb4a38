package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/config"
)

func clearKeys(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		config.EnvAnthropicAPIKey, config.EnvOpenAIAPIKey, config.EnvGoogleAPIKey,
		config.EnvGeminiAPIKey, config.EnvGroqAPIKey,
	} {
		t.Setenv(name, "")
	}
}

func TestCreateClientsMissingKey(t *testing.T) {
	clearKeys(t)
	f := NewLLMClientFactory(config.Default(), nil)

	_, err := f.CreateClients()
	require.Error(t, err)
	var ce *config.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, config.RolePlanner, ce.Role)
	assert.Equal(t, config.ProviderGoogle, ce.Provider)
}

func TestCreateClientsPerRole(t *testing.T) {
	clearKeys(t)
	t.Setenv(config.EnvGoogleAPIKey, "g-key")
	t.Setenv(config.EnvAnthropicAPIKey, "a-key")

	cfg := config.Default()
	cfg.Agents.Coder = config.ModelConfig{Model: "claude-sonnet-4-5", Temperature: 0.3}
	cfg.Agents.Tester = config.ModelConfig{Model: "ollama:qwen2.5-coder"}

	clients, err := NewLLMClientFactory(cfg, nil).CreateClients()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultModel, clients.For(config.RolePlanner).GetModelName())
	assert.Equal(t, "claude-sonnet-4-5", clients.For(config.RoleCoder).GetModelName())
	assert.Equal(t, "qwen2.5-coder", clients.For(config.RoleTester).GetModelName())
	assert.Nil(t, clients.For(config.Role("unknown")))
}

func TestCreateClientUnknownModel(t *testing.T) {
	cfg := config.Default()
	cfg.Agents.Planner = config.ModelConfig{Model: "mystery-model"}

	_, err := NewLLMClientFactory(cfg, nil).CreateClient(config.RolePlanner)
	assert.True(t, config.IsConfigurationError(err), "got %v", err)
}

func TestNewRawClientProviders(t *testing.T) {
	for _, provider := range []string{
		config.ProviderAnthropic, config.ProviderOpenAI, config.ProviderGroq,
		config.ProviderGoogle, config.ProviderOllama,
	} {
		client, err := NewRawClient(provider, "key", config.ModelConfig{Model: "m"})
		require.NoError(t, err, provider)
		assert.Equal(t, "m", client.GetModelName())
	}
	_, err := NewRawClient("nope", "key", config.ModelConfig{Model: "m"})
	assert.Error(t, err)
}

func TestWithModelDefaults(t *testing.T) {
	mock := llm.NewMockClient("gpt-4o").ReplyText("a").ReplyText("b")
	client := llm.Chain(mock, withModelDefaults(config.ModelConfig{Model: "gpt-4o", Temperature: 0.4}))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{Messages: []llm.CompletionMessage{llm.NewUserMessage("x")}})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.CompletionMessage{llm.NewUserMessage("x")}, Temperature: 1, MaxTokens: 10,
	})
	require.NoError(t, err)

	reqs := mock.Requests()
	assert.InDelta(t, 0.4, reqs[0].Temperature, 1e-6)
	assert.Equal(t, config.KnownModels["gpt-4o"].MaxOutputTokens, reqs[0].MaxTokens)
	assert.InDelta(t, 1, reqs[1].Temperature, 1e-6)
	assert.Equal(t, 10, reqs[1].MaxTokens)
}

func TestSingleClient(t *testing.T) {
	mock := llm.NewMockClient("m")
	c := SingleClient(mock)
	for _, role := range config.Roles() {
		assert.Same(t, llm.LLMClient(mock), c.For(role))
	}
}
