package main

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"projectgen/pkg/config"
	"projectgen/pkg/logx"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals

var rootCmd = &cobra.Command{
	Use:   "projectgen",
	Short: "Generate complete software projects from a prompt",
	Long: `projectgen plans, designs, writes, reviews and tests a software project
from a natural-language description. Each stage is handled by its own LLM agent
and every file operation is confined to the project directory.`,
	SilenceUsage: true,
	Version:      version,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/projectgen/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.SetEnvPrefix("PROJECTGEN")
	// PROJECTGEN_LIMITS_MAX_FILE_SIZE overrides limits.max_file_size.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logx.NewLogger("config").Warn("ignoring config file: %v", err)
		}
	}
}

// loadConfig decodes the merged configuration, applies logging settings and
// unlocks the secrets file when one exists.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logx.SetDebug(cfg.Logging.Debug, cfg.Logging.DebugDomains...)
	if err := unlockSecrets(cfg.Paths.SecretsDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath is where `config init` writes and what `config show` reports.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	if explicit := viper.GetString("config"); explicit != "" {
		return explicit
	}
	return filepath.Join(config.ConfigDir(), "config.yaml")
}
