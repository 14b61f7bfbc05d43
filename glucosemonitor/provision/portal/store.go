package portal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNoCredentials is returned by Load when nothing has been cached yet.
var ErrNoCredentials = errors.New("no cached credentials")

type Credentials struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
}

// Store caches the last working credentials.
type Store interface {
	Load() (Credentials, error)
	Save(Credentials) error
}

// FileStore keeps credentials in a YAML file.
type FileStore struct {
	Path string
}

// DefaultPath is wifi.yaml under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "glucopanel", "wifi.yaml"), nil
}

func (s FileStore) Load() (Credentials, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	if creds.SSID == "" {
		return Credentials{}, ErrNoCredentials
	}
	return creds, nil
}

func (s FileStore) Save(creds Credentials) error {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
