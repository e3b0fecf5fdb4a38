package config

import (
	"fmt"
	"os"
	"strings"
)

// Providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderGroq      = "groq"
	ProviderOllama    = "ollama"
)

// Environment variables consulted for credentials.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvGroqAPIKey      = "GROQ_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1/"

// DefaultCostPer1K is charged for models missing from KnownModels.
const DefaultCostPer1K = 0.0015

// ModelInfo is static pricing and limit data for a model.
type ModelInfo struct {
	Provider         string
	InputCPM         float64 // USD per million input tokens
	OutputCPM        float64 // USD per million output tokens
	MaxContextTokens int
	MaxOutputTokens  int
}

//nolint:gochecknoglobals // static model registry
var KnownModels = map[string]ModelInfo{
	"claude-sonnet-4-5": {
		Provider: ProviderAnthropic, InputCPM: 3.0, OutputCPM: 15.0,
		MaxContextTokens: 200000, MaxOutputTokens: 8192,
	},
	"claude-sonnet-4-20250514": {
		Provider: ProviderAnthropic, InputCPM: 3.0, OutputCPM: 15.0,
		MaxContextTokens: 200000, MaxOutputTokens: 8192,
	},
	"claude-3-5-haiku-latest": {
		Provider: ProviderAnthropic, InputCPM: 0.8, OutputCPM: 4.0,
		MaxContextTokens: 200000, MaxOutputTokens: 8192,
	},
	"gpt-4o": {
		Provider: ProviderOpenAI, InputCPM: 2.5, OutputCPM: 10.0,
		MaxContextTokens: 128000, MaxOutputTokens: 4096,
	},
	"gpt-4o-mini": {
		Provider: ProviderOpenAI, InputCPM: 0.15, OutputCPM: 0.6,
		MaxContextTokens: 128000, MaxOutputTokens: 16384,
	},
	"o4-mini": {
		Provider: ProviderOpenAI, InputCPM: 1.1, OutputCPM: 4.4,
		MaxContextTokens: 128000, MaxOutputTokens: 16384,
	},
	"gemini-2.0-flash": {
		Provider: ProviderGoogle, InputCPM: 0.10, OutputCPM: 0.40,
		MaxContextTokens: 1048576, MaxOutputTokens: 8192,
	},
	"gemini-2.0-flash-exp": {
		Provider: ProviderGoogle, InputCPM: 0.10, OutputCPM: 0.40,
		MaxContextTokens: 1048576, MaxOutputTokens: 8192,
	},
	"gemini-2.5-flash": {
		Provider: ProviderGoogle, InputCPM: 0.30, OutputCPM: 2.50,
		MaxContextTokens: 1048576, MaxOutputTokens: 65536,
	},
	"llama-3.3-70b-versatile": {
		Provider: ProviderGroq, InputCPM: 0.59, OutputCPM: 0.79,
		MaxContextTokens: 131072, MaxOutputTokens: 32768,
	},
	"mixtral-8x7b-32768": {
		Provider: ProviderGroq, InputCPM: 0.24, OutputCPM: 0.24,
		MaxContextTokens: 32768, MaxOutputTokens: 8192,
	},
}

type providerPattern struct {
	prefix   string
	provider string
}

//nolint:gochecknoglobals // inference rules for unknown models
var providerPatterns = []providerPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"groq:", ProviderGroq},
	{"ollama:", ProviderOllama},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"codellama", ProviderOllama},
	{"deepseek", ProviderOllama},
	{"phi", ProviderOllama},
}

// NormalizeProvider maps accepted spellings to a canonical provider name, or "".
func NormalizeProvider(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case ProviderAnthropic:
		return ProviderAnthropic
	case ProviderOpenAI:
		return ProviderOpenAI
	case ProviderGoogle, "gemini":
		return ProviderGoogle
	case ProviderGroq:
		return ProviderGroq
	case ProviderOllama:
		return ProviderOllama
	}
	return ""
}

// GetModelProvider infers a provider from a model name.
func GetModelProvider(model string) (string, error) {
	if info, ok := KnownModels[model]; ok {
		return info.Provider, nil
	}
	for _, p := range providerPatterns {
		if strings.HasPrefix(model, p.prefix) {
			return p.provider, nil
		}
	}
	return "", fmt.Errorf("unknown model %q: no provider mapping", model)
}

// ResolveProvider returns the configured provider, or the inferred one when unset.
func (m ModelConfig) ResolveProvider() (string, error) {
	if m.Provider != "" {
		if p := NormalizeProvider(m.Provider); p != "" {
			return p, nil
		}
		return "", fmt.Errorf("unsupported provider %q", m.Provider)
	}
	return GetModelProvider(m.Model)
}

// ModelID strips an explicit "ollama:" / "groq:" routing prefix.
func (m ModelConfig) ModelID() string {
	for _, prefix := range []string{"ollama:", "groq:"} {
		if strings.HasPrefix(m.Model, prefix) {
			return strings.TrimPrefix(m.Model, prefix)
		}
	}
	return m.Model
}

// GetModelInfo returns registry data for model, or conservative defaults.
func GetModelInfo(model string) (ModelInfo, bool) {
	if info, ok := KnownModels[model]; ok {
		return info, true
	}
	provider, _ := GetModelProvider(model)
	return ModelInfo{
		Provider:         provider,
		MaxContextTokens: 32000,
		MaxOutputTokens:  4096,
	}, false
}

// CalculateCost estimates USD cost of a call. Unknown models fall back to a
// flat DefaultCostPer1K across all tokens.
func CalculateCost(model string, promptTokens, completionTokens int) float64 {
	if info, ok := KnownModels[model]; ok {
		return float64(promptTokens)/1_000_000*info.InputCPM +
			float64(completionTokens)/1_000_000*info.OutputCPM
	}
	return float64(promptTokens+completionTokens) / 1000 * DefaultCostPer1K
}

// GetAPIKey returns the credential for provider from the secrets store or
// environment. For ollama it returns the host URL. A missing key is a
// *ConfigurationError.
func GetAPIKey(provider string) (string, error) {
	var names []string
	switch provider {
	case ProviderAnthropic:
		names = []string{EnvAnthropicAPIKey}
	case ProviderOpenAI:
		names = []string{EnvOpenAIAPIKey}
	case ProviderGoogle:
		names = []string{EnvGoogleAPIKey, EnvGeminiAPIKey}
	case ProviderGroq:
		names = []string{EnvGroqAPIKey}
	case ProviderOllama:
		if host := os.Getenv(EnvOllamaHost); host != "" {
			return host, nil
		}
		return "http://localhost:11434", nil
	default:
		return "", &ConfigurationError{Provider: provider, Reason: "unknown provider"}
	}

	for _, name := range names {
		if v, err := GetSecret(name); err == nil && v != "" {
			return v, nil
		}
	}
	return "", &ConfigurationError{
		Provider: provider,
		Field:    names[0],
		Reason:   "API key not found in secrets file or environment",
	}
}
