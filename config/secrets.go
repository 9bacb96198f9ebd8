package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrSecretNotFound is returned when a store has no value for a key.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore resolves sensitive settings kept out of config files.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, def string) string
}

// EnvironmentSecretStore reads secrets from process environment variables.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore { return &EnvironmentSecretStore{} }

func (EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrSecretNotFound)
	}
	return v, nil
}

func (s EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	if v, err := s.Get(ctx, key); err == nil {
		return v
	}
	return def
}

// FileSecretStore reads one secret per file from a directory, the layout
// used by mounted container secrets. The key is the file name.
type FileSecretStore struct{ dir string }

func NewFileSecretStore(dir string) *FileSecretStore { return &FileSecretStore{dir: dir} }

func (s *FileSecretStore) Get(_ context.Context, key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid secret key %q", key)
	}
	b, err := os.ReadFile(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", key, ErrSecretNotFound)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *FileSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	if v, err := s.Get(ctx, key); err == nil {
		return v
	}
	return def
}

// Secret keys looked up by LoadSecrets.
const (
	SecretRedisPassword = "HANZIKIT_REDIS_PASSWORD"
	SecretSQLDSN        = "HANZIKIT_SQL_DSN"
	SecretAPIKeys       = "HANZIKIT_API_KEYS"
	SecretWebhook       = "HANZIKIT_WEBHOOK_SECRET"
)

// LoadSecrets fills secret fields from store. Values already present in cfg
// are kept when the store has nothing for their key.
func LoadSecrets(ctx context.Context, cfg *Config, store SecretStore) error {
	cfg.Storage.Redis.Password = store.GetWithDefault(ctx, SecretRedisPassword, cfg.Storage.Redis.Password)
	cfg.Storage.SQL.DSN = store.GetWithDefault(ctx, SecretSQLDSN, cfg.Storage.SQL.DSN)
	cfg.Integrations.WebhookSecret = store.GetWithDefault(ctx, SecretWebhook, cfg.Integrations.WebhookSecret)
	keys, err := store.Get(ctx, SecretAPIKeys)
	switch {
	case err == nil:
		cfg.Security.APIKeys = splitList(keys)
	case !errors.Is(err, ErrSecretNotFound):
		return err
	}
	return nil
}

// LoadSecretsFromEnv is LoadSecrets over the process environment.
func LoadSecretsFromEnv(cfg *Config) error {
	return LoadSecrets(context.Background(), cfg, NewEnvironmentSecretStore())
}
