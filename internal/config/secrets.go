package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	secretService  = "prepd"
	apiTokenKey    = "api_token"
	apiTokenEnvVar = "PREPD_API_TOKEN"
)

var errSecretNotFound = errors.New("secret not found")

// SecretStore persists small secrets outside the config file.
type SecretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// fileSecrets keeps secrets in a 0600 JSON file keyed by service then account.
type fileSecrets struct {
	path string
}

func NewSecretStore() SecretStore {
	return fileSecrets{path: secretsFilePath()}
}

func secretsFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "prepd", "secrets.json")
}

func (f fileSecrets) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	return secrets, nil
}

func (f fileSecrets) Get(service, account string) (string, error) {
	secrets, err := f.read()
	if err != nil {
		return "", err
	}
	val, ok := secrets[service][account]
	if !ok {
		return "", errSecretNotFound
	}
	return val, nil
}

func (f fileSecrets) Set(service, account, value string) error {
	secrets, err := f.read()
	if err != nil {
		return err
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, out, 0o600)
}

// GetAPIToken returns the bearer token for the HTTP API. PREPD_API_TOKEN
// wins; otherwise a token is read from the secret store, generating and
// persisting one on first use.
func GetAPIToken(s SecretStore) (string, error) {
	if tok := os.Getenv(apiTokenEnvVar); tok != "" {
		return tok, nil
	}

	tok, err := s.Get(secretService, apiTokenKey)
	if err == nil && tok != "" {
		return tok, nil
	}
	if err != nil && !errors.Is(err, errSecretNotFound) {
		return "", err
	}

	tok = uuid.New().String()
	if err := s.Set(secretService, apiTokenKey, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
