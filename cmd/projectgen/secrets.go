package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"projectgen/pkg/config"
	"projectgen/pkg/logx"
)

// passwordEnv unlocks the secrets file without a prompt.
const passwordEnv = "PROJECTGEN_PASSWORD"

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage encrypted provider credentials",
	Long: `Provider API keys can be kept in an encrypted secrets file instead of the
environment. The file is encrypted with a password (scrypt + AES-GCM); set
PROJECTGEN_PASSWORD to unlock it without a prompt.`,
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <KEY>",
	Short: "Store a credential, e.g. ANTHROPIC_API_KEY",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretsSet,
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the names of stored credentials",
	Args:  cobra.NoArgs,
	RunE:  runSecretsList,
}

func init() {
	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsSetCmd)
	secretsCmd.AddCommand(secretsListCmd)
}

func secretsDir() string {
	return viper.GetString("paths.secrets_dir")
}

func runSecretsSet(cmd *cobra.Command, args []string) error {
	name := strings.ToUpper(strings.TrimSpace(args[0]))
	dir := secretsDir()

	exists := config.SecretsFileExists(dir)
	password, err := secretsPassword(!exists)
	if err != nil {
		return err
	}
	if exists {
		if err := config.LoadSecrets(dir, password); err != nil {
			return err
		}
	}

	value, err := readSecretValue(name)
	if err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("empty value for %s", name)
	}

	config.SetSecret(name, value)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create secrets directory: %w", err)
	}
	if err := config.SaveSecrets(dir, password); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "🔐 %s saved to %s\n", name, config.SecretsPath(dir))
	return nil
}

func runSecretsList(cmd *cobra.Command, _ []string) error {
	dir := secretsDir()
	if !config.SecretsFileExists(dir) {
		fmt.Fprintf(cmd.OutOrStdout(), "No secrets file at %s\n", config.SecretsPath(dir))
		return nil
	}
	password, err := secretsPassword(false)
	if err != nil {
		return err
	}
	if err := config.LoadSecrets(dir, password); err != nil {
		return err
	}
	for _, name := range config.SecretNames() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

// unlockSecrets loads the secrets file when present. Without a password the
// file stays locked and credentials come from the environment only.
func unlockSecrets(dir string) error {
	if !config.SecretsFileExists(dir) {
		return nil
	}
	password := os.Getenv(passwordEnv)
	if password == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			logx.NewLogger("secrets").Warn("secrets file is locked; set %s to unlock it", passwordEnv)
			return nil
		}
		var err error
		if password, err = promptPassword("Secrets password: "); err != nil {
			return err
		}
	}
	if err := config.LoadSecrets(dir, password); err != nil {
		return fmt.Errorf("unlock secrets: %w", err)
	}
	return nil
}

// secretsPassword returns the password from the environment or the terminal.
// A new file asks for confirmation.
func secretsPassword(confirm bool) (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no terminal to prompt for a password; set %s", passwordEnv)
	}
	pw, err := promptPassword("Secrets password: ")
	if err != nil {
		return "", err
	}
	if !confirm {
		return pw, nil
	}
	again, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", errors.New("passwords do not match")
	}
	return pw, nil
}

func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	defer clear(pw)
	return string(pw), nil
}

// readSecretValue prompts without echo on a terminal and reads one line otherwise,
// so `echo $KEY | projectgen secrets set KEY` works.
func readSecretValue(name string) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return promptPassword(name + ": ")
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s from stdin: %w", name, err)
	}
	return strings.TrimSpace(line), nil
}
