// Package agent builds the per-role LLM clients used by the pipeline. Each
// client is a provider implementation wrapped in the middleware chain
// metrics -> retry -> timeout -> provider.
package agent

import (
	"context"
	"fmt"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaiopt "github.com/openai/openai-go/option"

	"projectgen/pkg/agent/internal/llmimpl/anthropic"
	"projectgen/pkg/agent/internal/llmimpl/google"
	"projectgen/pkg/agent/internal/llmimpl/ollama"
	"projectgen/pkg/agent/internal/llmimpl/openaiofficial"
	"projectgen/pkg/agent/llm"
	"projectgen/pkg/agent/middleware/metrics"
	"projectgen/pkg/agent/middleware/retry"
	"projectgen/pkg/agent/middleware/timeout"
	"projectgen/pkg/config"
	"projectgen/pkg/logx"
)

// Clients holds one explicitly constructed client per pipeline role.
type Clients struct {
	Planner   llm.LLMClient
	Architect llm.LLMClient
	Coder     llm.LLMClient
	Reviewer  llm.LLMClient
	Tester    llm.LLMClient
}

// For returns the client for role, or nil.
func (c *Clients) For(role config.Role) llm.LLMClient {
	switch role {
	case config.RolePlanner:
		return c.Planner
	case config.RoleArchitect:
		return c.Architect
	case config.RoleCoder:
		return c.Coder
	case config.RoleReviewer:
		return c.Reviewer
	case config.RoleTester:
		return c.Tester
	}
	return nil
}

// SingleClient uses one client for every role. Used by tests and the refactor command.
func SingleClient(client llm.LLMClient) *Clients {
	return &Clients{Planner: client, Architect: client, Coder: client, Reviewer: client, Tester: client}
}

// LLMClientFactory creates LLM clients with properly configured middleware chains.
type LLMClientFactory struct {
	config   *config.Config
	recorder metrics.Recorder
	logger   *logx.Logger
}

// NewLLMClientFactory creates a factory. A nil recorder discards metrics.
func NewLLMClientFactory(cfg *config.Config, recorder metrics.Recorder) *LLMClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &LLMClientFactory{config: cfg, recorder: recorder, logger: logx.NewLogger("llm")}
}

// CreateClients builds the client for every role, failing with a
// *config.ConfigurationError on the first role whose credentials are missing.
func (f *LLMClientFactory) CreateClients() (*Clients, error) {
	clients := &Clients{}
	for _, role := range config.Roles() {
		client, err := f.CreateClient(role)
		if err != nil {
			return nil, err
		}
		switch role {
		case config.RolePlanner:
			clients.Planner = client
		case config.RoleArchitect:
			clients.Architect = client
		case config.RoleCoder:
			clients.Coder = client
		case config.RoleReviewer:
			clients.Reviewer = client
		case config.RoleTester:
			clients.Tester = client
		}
	}
	return clients, nil
}

// CreateClient creates the client for role with the full middleware chain.
// The API key comes from the secrets store or environment for the model's provider.
func (f *LLMClientFactory) CreateClient(role config.Role) (llm.LLMClient, error) {
	mc := f.config.Model(role)
	if mc.Model == "" {
		return nil, &config.ConfigurationError{Role: role, Field: "model", Reason: "no model configured"}
	}
	provider, err := mc.ResolveProvider()
	if err != nil {
		return nil, &config.ConfigurationError{Role: role, Field: "provider", Reason: err.Error()}
	}
	apiKey, err := config.GetAPIKey(provider)
	if err != nil {
		if ce, ok := err.(*config.ConfigurationError); ok { //nolint:errorlint // GetAPIKey returns the concrete type
			ce.Role = role
			return nil, ce
		}
		return nil, fmt.Errorf("resolve credentials for %s: %w", role, err)
	}

	raw, err := NewRawClient(provider, apiKey, mc)
	if err != nil {
		return nil, &config.ConfigurationError{Role: role, Provider: provider, Reason: err.Error()}
	}

	agents := f.config.Agents
	policy := retry.NewPolicy(retry.Config{
		MaxAttempts:   agents.Retry.MaxAttempts,
		InitialDelay:  agents.Retry.InitialDelay,
		MaxDelay:      agents.Retry.MaxDelay,
		BackoffFactor: agents.Retry.BackoffFactor,
		Jitter:        agents.Retry.Jitter,
	}, nil)
	logger := f.logger.WithComponent("llm-" + string(role))

	f.logger.Debug("created %s client for %s (%s)", provider, role, mc.ModelID())
	return llm.Chain(raw,
		metrics.Middleware(f.recorder, string(role), nil, logger),
		retry.Middleware(policy, logger),
		timeout.Middleware(agents.RequestTimeout),
		withModelDefaults(mc),
	), nil
}

// NewRawClient constructs an unwrapped provider client.
func NewRawClient(provider, apiKey string, mc config.ModelConfig) (llm.LLMClient, error) {
	model := mc.ModelID()
	switch provider {
	case config.ProviderAnthropic:
		var opts []anthropicopt.RequestOption
		if mc.BaseURL != "" {
			opts = append(opts, anthropicopt.WithBaseURL(mc.BaseURL))
		}
		return anthropic.NewClaudeClient(apiKey, model, opts...), nil
	case config.ProviderOpenAI:
		var opts []openaiopt.RequestOption
		if mc.BaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(mc.BaseURL))
		}
		return openaiofficial.NewOfficialClient(apiKey, model, opts...), nil
	case config.ProviderGroq:
		var opts []openaiopt.RequestOption
		if mc.BaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(mc.BaseURL))
		}
		return openaiofficial.NewGroqClient(apiKey, model, opts...), nil
	case config.ProviderGoogle:
		return google.NewGeminiClient(apiKey, model, mc.BaseURL), nil
	case config.ProviderOllama:
		host := apiKey
		if mc.BaseURL != "" {
			host = mc.BaseURL
		}
		return ollama.NewOllamaClient(host, model), nil
	}
	return nil, fmt.Errorf("unsupported provider %q", provider)
}

// withModelDefaults fills temperature and max tokens from the role's model
// settings when the request leaves them unset.
func withModelDefaults(mc config.ModelConfig) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(next, func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			if req.Temperature == 0 {
				req.Temperature = float32(mc.Temperature)
			}
			if req.MaxTokens == 0 {
				req.MaxTokens = mc.MaxTokens
				if req.MaxTokens == 0 {
					if info, ok := config.GetModelInfo(mc.ModelID()); ok {
						req.MaxTokens = info.MaxOutputTokens
					}
				}
			}
			return next.Complete(ctx, req)
		})
	}
}
