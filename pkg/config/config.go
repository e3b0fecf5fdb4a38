// Package config holds projectgen configuration: per-role model settings, feature
// toggles, paths and limits. Values come from viper (config.yaml + PROJECTGEN_ env).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Role identifies one LLM-backed pipeline stage.
type Role string

const (
	RolePlanner   Role = "planner"
	RoleArchitect Role = "architect"
	RoleCoder     Role = "coder"
	RoleReviewer  Role = "reviewer"
	RoleTester    Role = "tester"
)

// Roles lists every role in pipeline order.
func Roles() []Role {
	return []Role{RolePlanner, RoleArchitect, RoleCoder, RoleReviewer, RoleTester}
}

// ModelConfig selects and tunes the model used by one role.
type ModelConfig struct {
	// Provider is one of anthropic, openai, google (alias gemini), groq, ollama.
	// Empty means infer from the model name.
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	// MaxTokens caps completion length; 0 uses the model's default output limit.
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`
	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways, remote ollama).
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// RetryConfig controls the retry middleware wrapped around every provider client.
type RetryConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay  time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor" yaml:"backoff_factor"`
	Jitter        bool          `mapstructure:"jitter" yaml:"jitter"`
}

// AgentsConfig carries one ModelConfig per role plus shared client settings.
type AgentsConfig struct {
	Planner   ModelConfig `mapstructure:"planner" yaml:"planner"`
	Architect ModelConfig `mapstructure:"architect" yaml:"architect"`
	Coder     ModelConfig `mapstructure:"coder" yaml:"coder"`
	Reviewer  ModelConfig `mapstructure:"reviewer" yaml:"reviewer"`
	Tester    ModelConfig `mapstructure:"tester" yaml:"tester"`

	// MaxToolRounds bounds the coder's tool-call exchange for a single task.
	MaxToolRounds  int           `mapstructure:"max_tool_rounds" yaml:"max_tool_rounds"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	Retry          RetryConfig   `mapstructure:"retry" yaml:"retry"`
}

// FeaturesConfig toggles optional stages and tools.
type FeaturesConfig struct {
	EnableCodeReview bool `mapstructure:"enable_code_review" yaml:"enable_code_review"`
	EnableTesting    bool `mapstructure:"enable_testing" yaml:"enable_testing"`
	EnableGit        bool `mapstructure:"enable_git" yaml:"enable_git"`
	EnableWebSearch  bool `mapstructure:"enable_web_search" yaml:"enable_web_search"`
	EnableDocker     bool `mapstructure:"enable_docker" yaml:"enable_docker"`
	// EnableShell offers run_command, which executes outside the file gateway.
	EnableShell bool `mapstructure:"enable_shell" yaml:"enable_shell"`
}

// PathsConfig locates generated output and run state.
type PathsConfig struct {
	GeneratedProjectsDir string `mapstructure:"generated_projects_dir" yaml:"generated_projects_dir"`
	CheckpointDir        string `mapstructure:"checkpoint_dir" yaml:"checkpoint_dir"`
	SecretsDir           string `mapstructure:"secrets_dir" yaml:"secrets_dir"`
}

// LimitsConfig bounds the pipeline.
type LimitsConfig struct {
	MaxRecursionLimit int           `mapstructure:"max_recursion_limit" yaml:"max_recursion_limit"`
	MaxFileSize       int64         `mapstructure:"max_file_size" yaml:"max_file_size"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
}

// LoggingConfig controls logx.
type LoggingConfig struct {
	Debug        bool     `mapstructure:"debug" yaml:"debug"`
	DebugDomains []string `mapstructure:"debug_domains" yaml:"debug_domains,omitempty"`
	File         bool     `mapstructure:"file" yaml:"file"`
}

// Config is the complete projectgen configuration.
type Config struct {
	Agents   AgentsConfig   `mapstructure:"agents" yaml:"agents"`
	Features FeaturesConfig `mapstructure:"features" yaml:"features"`
	Paths    PathsConfig    `mapstructure:"paths" yaml:"paths"`
	Limits   LimitsConfig   `mapstructure:"limits" yaml:"limits"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// DefaultModel is used by every role unless overridden.
const DefaultModel = "gemini-2.0-flash"

// Default returns the built-in configuration.
func Default() *Config {
	role := func(temp float64) ModelConfig {
		return ModelConfig{Provider: ProviderGoogle, Model: DefaultModel, Temperature: temp}
	}
	return &Config{
		Agents: AgentsConfig{
			Planner:        role(0.7),
			Architect:      role(0.5),
			Coder:          role(0.3),
			Reviewer:       role(0.2),
			Tester:         role(0.4),
			MaxToolRounds:  25,
			RequestTimeout: 3 * time.Minute,
			Retry: RetryConfig{
				MaxAttempts:   3,
				InitialDelay:  time.Second,
				MaxDelay:      30 * time.Second,
				BackoffFactor: 2.0,
				Jitter:        true,
			},
		},
		Features: FeaturesConfig{
			EnableCodeReview: true,
			EnableTesting:    true,
			EnableGit:        true,
		},
		Paths: PathsConfig{
			GeneratedProjectsDir: "generated_project",
			CheckpointDir:        "checkpoints",
			SecretsDir:           ".projectgen",
		},
		Limits: LimitsConfig{
			MaxRecursionLimit: 100,
			MaxFileSize:       1024 * 1024,
			CommandTimeout:    30 * time.Second,
		},
	}
}

// SetDefaults registers Default() values with v so partial files and env vars
// layer on top of them.
func SetDefaults(v *viper.Viper) {
	d := Default()

	for _, r := range Roles() {
		m := d.Model(r)
		prefix := "agents." + string(r) + "."
		v.SetDefault(prefix+"provider", m.Provider)
		v.SetDefault(prefix+"model", m.Model)
		v.SetDefault(prefix+"temperature", m.Temperature)
		v.SetDefault(prefix+"max_tokens", m.MaxTokens)
	}
	v.SetDefault("agents.max_tool_rounds", d.Agents.MaxToolRounds)
	v.SetDefault("agents.request_timeout", d.Agents.RequestTimeout)
	v.SetDefault("agents.retry.max_attempts", d.Agents.Retry.MaxAttempts)
	v.SetDefault("agents.retry.initial_delay", d.Agents.Retry.InitialDelay)
	v.SetDefault("agents.retry.max_delay", d.Agents.Retry.MaxDelay)
	v.SetDefault("agents.retry.backoff_factor", d.Agents.Retry.BackoffFactor)
	v.SetDefault("agents.retry.jitter", d.Agents.Retry.Jitter)

	v.SetDefault("features.enable_code_review", d.Features.EnableCodeReview)
	v.SetDefault("features.enable_testing", d.Features.EnableTesting)
	v.SetDefault("features.enable_git", d.Features.EnableGit)
	v.SetDefault("features.enable_web_search", d.Features.EnableWebSearch)
	v.SetDefault("features.enable_docker", d.Features.EnableDocker)
	v.SetDefault("features.enable_shell", d.Features.EnableShell)

	v.SetDefault("paths.generated_projects_dir", d.Paths.GeneratedProjectsDir)
	v.SetDefault("paths.checkpoint_dir", d.Paths.CheckpointDir)
	v.SetDefault("paths.secrets_dir", d.Paths.SecretsDir)

	v.SetDefault("limits.max_recursion_limit", d.Limits.MaxRecursionLimit)
	v.SetDefault("limits.max_file_size", d.Limits.MaxFileSize)
	v.SetDefault("limits.command_timeout", d.Limits.CommandTimeout)

	v.SetDefault("logging.debug", d.Logging.Debug)
	v.SetDefault("logging.file", d.Logging.File)
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Model returns the model settings for role.
func (c *Config) Model(role Role) ModelConfig {
	switch role {
	case RolePlanner:
		return c.Agents.Planner
	case RoleArchitect:
		return c.Agents.Architect
	case RoleCoder:
		return c.Agents.Coder
	case RoleReviewer:
		return c.Agents.Reviewer
	case RoleTester:
		return c.Agents.Tester
	}
	return ModelConfig{}
}

// Validate checks the static shape of the configuration. Credentials are checked
// later, when clients are built.
func (c *Config) Validate() error {
	for _, r := range Roles() {
		m := c.Model(r)
		if strings.TrimSpace(m.Model) == "" {
			return &ConfigurationError{Role: r, Field: "model", Reason: "no model configured"}
		}
		if m.Temperature < 0 || m.Temperature > 2 {
			return &ConfigurationError{Role: r, Field: "temperature", Reason: fmt.Sprintf("%.2f outside [0, 2]", m.Temperature)}
		}
		if m.Provider != "" && NormalizeProvider(m.Provider) == "" {
			return &ConfigurationError{Role: r, Field: "provider", Reason: fmt.Sprintf("unsupported provider %q", m.Provider)}
		}
	}
	if c.Limits.MaxRecursionLimit <= 0 {
		return &ConfigurationError{Field: "limits.max_recursion_limit", Reason: "must be positive"}
	}
	if c.Limits.MaxFileSize <= 0 {
		return &ConfigurationError{Field: "limits.max_file_size", Reason: "must be positive"}
	}
	if c.Agents.MaxToolRounds <= 0 {
		return &ConfigurationError{Field: "agents.max_tool_rounds", Reason: "must be positive"}
	}
	if c.Paths.GeneratedProjectsDir == "" {
		return &ConfigurationError{Field: "paths.generated_projects_dir", Reason: "must be set"}
	}
	return nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// ConfigDir returns the per-user config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "projectgen")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".projectgen"
	}
	return filepath.Join(home, ".config", "projectgen")
}
