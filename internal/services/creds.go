package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/gmsync/internal/shared"
)

// Credentials is the on-disk credential cache, written after a successful
// device authentication and reused on later runs.
type Credentials struct {
	Token    string `json:"token"`
	DeviceID string `json:"device_id"`
	Email    string `json:"email,omitempty"`
}

// CredentialPath returns the credential file path for the given cache
// directory and credential name. An empty dir resolves to ~/.gmsync.
func CredentialPath(dir, name string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".gmsync")
	}
	if name == "" {
		name = "oauth"
	}
	return filepath.Join(dir, name+".cred"), nil
}

// LoadCredentials reads a credential cache file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrMissingCredentials, path)
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	if creds.Token == "" {
		return nil, fmt.Errorf("%w: empty token in %s", shared.ErrInvalidCredentials, path)
	}
	return &creds, nil
}

// SaveCredentials writes the credential cache file with owner-only
// permissions, creating the parent directory as needed.
func SaveCredentials(path string, creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}
