package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charliek/revive/internal/api"
	"github.com/charliek/revive/internal/config"
)

// reviveDir returns the per-user directory (~/.revive)
func reviveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".revive"
	}
	return filepath.Join(home, ".revive")
}

// tokenPath returns the path to the API token file
func tokenPath() string {
	return filepath.Join(reviveDir(), "token")
}

// generateToken generates a random 256-bit token
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// saveToken writes the token readable by the owner only
func saveToken(token string) error {
	if err := os.MkdirAll(reviveDir(), 0700); err != nil {
		return fmt.Errorf("creating revive directory: %w", err)
	}
	if err := os.WriteFile(tokenPath(), []byte(token), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// loadToken reads the token saved by the daemon
func loadToken() (string, error) {
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// isAuthRequired decides whether the API needs a bearer token. An explicit
// setting wins; otherwise auth is on unless the API only listens locally.
func isAuthRequired(cfg *config.Config) bool {
	if cfg.API.Auth != nil {
		return *cfg.API.Auth
	}
	return !api.IsLocalhost(cfg.API.Host)
}

// resolveToken returns the token the API should accept, generating and
// saving one when auth is on and none was configured.
func resolveToken(cfg *config.Config) (string, error) {
	if !isAuthRequired(cfg) {
		return "", nil
	}
	if cfg.API.Token != "" {
		return cfg.API.Token, nil
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generating auth token: %w", err)
	}
	if err := saveToken(token); err != nil {
		return "", err
	}
	return token, nil
}
