package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/scrypt"
)

const (
	secretsFileName = "secrets.json.enc"
	saltSize        = 16
	nonceSize       = 12
	scryptN         = 32768
	scryptR         = 8
	scryptP         = 1
	keySize         = 32
)

// ErrWrongPassword is returned when the secrets file cannot be authenticated.
var ErrWrongPassword = errors.New("decryption failed (wrong password or corrupted file)")

//nolint:gochecknoglobals // decrypted secrets live in memory for the process lifetime
var (
	secrets    map[string]string
	secretsMux sync.RWMutex
)

// SecretsPath returns the encrypted secrets file location inside dir.
func SecretsPath(dir string) string {
	return filepath.Join(dir, secretsFileName)
}

// SecretsFileExists reports whether dir holds an encrypted secrets file.
func SecretsFileExists(dir string) bool {
	_, err := os.Stat(SecretsPath(dir))
	return err == nil
}

// SetSecrets replaces the in-memory secrets.
func SetSecrets(values map[string]string) {
	secretsMux.Lock()
	defer secretsMux.Unlock()
	secrets = values
}

// SetSecret stores one value in memory.
func SetSecret(name, value string) {
	secretsMux.Lock()
	defer secretsMux.Unlock()
	if secrets == nil {
		secrets = make(map[string]string)
	}
	secrets[name] = value
}

// SecretNames returns the names held in memory, sorted.
func SecretNames() []string {
	secretsMux.RLock()
	defer secretsMux.RUnlock()
	names := make([]string, 0, len(secrets))
	for k := range secrets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// GetSecret looks name up in the decrypted secrets, then the environment.
func GetSecret(name string) (string, error) {
	secretsMux.RLock()
	v, ok := secrets[name]
	secretsMux.RUnlock()
	if ok && v != "" {
		return v, nil
	}
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secret %s not found in secrets file or environment", name)
}

// SaveSecrets encrypts the in-memory secrets into dir.
func SaveSecrets(dir, password string) error {
	secretsMux.RLock()
	snapshot := make(map[string]string, len(secrets))
	for k, v := range secrets {
		snapshot[k] = v
	}
	secretsMux.RUnlock()
	return EncryptSecretsFile(dir, password, snapshot)
}

// LoadSecrets decrypts dir's secrets file into memory.
func LoadSecrets(dir, password string) error {
	values, err := DecryptSecretsFile(dir, password)
	if err != nil {
		return err
	}
	SetSecrets(values)
	return nil
}

func deriveKey(password string, salt []byte) ([]byte, error) {
	pw := []byte(password)
	defer zero(pw)
	key, err := scrypt.Key(pw, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// EncryptSecretsFile writes values to dir/secrets.json.enc as
// [salt][nonce][ciphertext+tag], mode 0600.
func EncryptSecretsFile(dir, password string, values map[string]string) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	key, err := deriveKey(password, salt)
	if err != nil {
		return err
	}
	defer zero(key)

	plaintext, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}
	defer zero(plaintext)

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	data := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	data = append(data, salt...)
	data = append(data, nonce...)
	data = append(data, ciphertext...)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create secrets directory: %w", err)
	}
	if err := os.WriteFile(SecretsPath(dir), data, 0o600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	return nil
}

// DecryptSecretsFile reads and decrypts dir/secrets.json.enc.
func DecryptSecretsFile(dir, password string) (map[string]string, error) {
	path := SecretsPath(dir)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat secrets file: %w", err)
	}
	if info.Mode().Perm() != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			return nil, fmt.Errorf("fix secrets file permissions: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}
	if len(data) < saltSize+nonceSize+16 {
		return nil, errors.New("secrets file is corrupted (too small)")
	}
	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	defer zero(plaintext)

	var values map[string]string
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}
	return values, nil
}
