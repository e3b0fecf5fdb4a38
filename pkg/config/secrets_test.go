package config

import (
	"errors"
	"os"
	"testing"
)

func TestEncryptDecryptSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	values := map[string]string{
		EnvAnthropicAPIKey: "sk-ant-test123",
		EnvGroqAPIKey:      "gsk-test",
	}

	if err := EncryptSecretsFile(dir, "hunter22", values); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	info, err := os.Stat(SecretsPath(dir))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600, got %04o", info.Mode().Perm())
	}

	got, err := DecryptSecretsFile(dir, "hunter22")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	for k, v := range values {
		if got[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, got[k])
		}
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	dir := t.TempDir()
	if err := EncryptSecretsFile(dir, "right", map[string]string{"A": "b"}); err != nil {
		t.Fatal(err)
	}
	_, err := DecryptSecretsFile(dir, "wrong")
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
}

func TestSecretsTakePrecedenceOverEnv(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "from-env")
	SetSecrets(nil)
	t.Cleanup(func() { SetSecrets(nil) })

	if v, _ := GetSecret(EnvOpenAIAPIKey); v != "from-env" {
		t.Fatalf("expected env fallback, got %q", v)
	}

	SetSecret(EnvOpenAIAPIKey, "from-file")
	if v, _ := GetSecret(EnvOpenAIAPIKey); v != "from-file" {
		t.Fatalf("expected secret, got %q", v)
	}
}

func TestSaveAndLoadSecrets(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { SetSecrets(nil) })

	SetSecrets(nil)
	SetSecret(EnvGoogleAPIKey, "g-key")
	if err := SaveSecrets(dir, "pw"); err != nil {
		t.Fatal(err)
	}
	if !SecretsFileExists(dir) {
		t.Fatal("secrets file missing")
	}

	SetSecrets(nil)
	if err := LoadSecrets(dir, "pw"); err != nil {
		t.Fatal(err)
	}
	names := SecretNames()
	if len(names) != 1 || names[0] != EnvGoogleAPIKey {
		t.Fatalf("unexpected names %v", names)
	}
}
