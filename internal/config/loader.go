package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/domain"
	"github.com/joho/godotenv"
)

// LoadEnvFile reads a .env file and returns the variables as a map
func LoadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("env file not found: %s", path)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}

	return env, nil
}

// MergeEnv merges multiple environment maps in order, with later maps taking precedence
func MergeEnv(envMaps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, env := range envMaps {
		for k, v := range env {
			result[k] = v
		}
	}
	return result
}

// processEnv returns the secret variables present in the process environment
func processEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range []string{
		constants.EnvBotToken,
		constants.EnvAdminID,
		constants.EnvHetznerToken,
		constants.EnvLogChannelID,
		constants.EnvAPIToken,
		constants.EnvWatchServerID,
	} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env
}

// LoadSecrets fills the secret fields of config from its env file and the
// process environment. Process variables win over the file. A missing env
// file is not an error; secrets may come from the environment alone.
func LoadSecrets(config *Config, configDir string) error {
	var fileEnv map[string]string
	if config.EnvFile != "" {
		envPath := resolvePath(config.EnvFile, configDir)
		if _, err := os.Stat(envPath); err == nil {
			if err := CheckFilePermissions(envPath); err != nil {
				return err
			}
			fileEnv, err = LoadEnvFile(envPath)
			if err != nil {
				return err
			}
		}
	}

	return ApplySecrets(config, MergeEnv(fileEnv, processEnv()))
}

// ApplySecrets copies secret values from env into config
func ApplySecrets(config *Config, env map[string]string) error {
	var errs []string

	if v := strings.TrimSpace(env[constants.EnvBotToken]); v != "" {
		config.Telegram.Token = v
	}
	if v := strings.TrimSpace(env[constants.EnvHetznerToken]); v != "" {
		config.Provider.Token = v
	}
	if v := strings.TrimSpace(env[constants.EnvAPIToken]); v != "" {
		config.API.Token = v
	}
	if v := strings.TrimSpace(env[constants.EnvWatchServerID]); v != "" {
		config.Watchdog.ServerID = v
	}

	if v := strings.TrimSpace(env[constants.EnvAdminID]); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: must be a numeric telegram user id", constants.EnvAdminID))
		} else {
			config.Telegram.AdminID = id
		}
	}
	if v := strings.TrimSpace(env[constants.EnvLogChannelID]); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: must be a numeric telegram chat id", constants.EnvLogChannelID))
		} else {
			config.Telegram.LogChannelID = id
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// resolvePath resolves a potentially relative path against a base directory
func resolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	candidates := []string{
		"revive.yaml",
		"revive.yml",
		".revive.yaml",
		".revive.yml",
	}

	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	return "", fmt.Errorf("%w (tried: %v)", domain.ErrConfigNotFound, candidates)
}

// CheckFilePermissions checks if a file has secure permissions.
// On Unix-like systems, it verifies the file is not world-writable.
func CheckFilePermissions(path string) error {
	// Skip permission check on Windows
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking file permissions: %w", err)
	}

	// World-writable = others have write (0002)
	if info.Mode().Perm()&0002 != 0 {
		return fmt.Errorf("file %s has insecure permissions: world-writable files can be modified by any user. Please run: chmod o-w %s", path, path)
	}

	return nil
}
