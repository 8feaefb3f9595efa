package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/gmsync/internal/shared"
)

func TestCredentialPath(t *testing.T) {
	t.Run("explicit dir and name", func(t *testing.T) {
		path, err := CredentialPath("/tmp/creds", "work")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if path != filepath.Join("/tmp/creds", "work.cred") {
			t.Errorf("unexpected path: %s", path)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		path, err := CredentialPath("", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		home, _ := os.UserHomeDir()
		if path != filepath.Join(home, ".gmsync", "oauth.cred") {
			t.Errorf("unexpected default path: %s", path)
		}
	})
}

func TestSaveAndLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "oauth.cred")

	creds := &Credentials{Token: "tok123", DeviceID: "00:11:22:33:44:55", Email: "user@example.com"}
	if err := SaveCredentials(path, creds); err != nil {
		t.Fatalf("failed to save credentials: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("credential file missing: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("failed to load credentials: %v", err)
	}
	if loaded.Token != "tok123" || loaded.Email != "user@example.com" {
		t.Errorf("unexpected credentials: %+v", loaded)
	}
}

func TestLoadCredentialsErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCredentials(filepath.Join(dir, "missing.cred"))
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.cred")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if _, err := LoadCredentials(path); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		path := filepath.Join(dir, "empty.cred")
		if err := os.WriteFile(path, []byte(`{"token": ""}`), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if _, err := LoadCredentials(path); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
