/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/dblog/pkg/ledger"
	"github.com/ssargent/dblog/pkg/program"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DBLOG_"

// Storage backends.
const (
	BackendLog    = "log"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// Config represents the dblog node configuration
type Config struct {
	DataDir       string        `yaml:"data_dir" env:"DATA_DIR"`
	Backend       string        `yaml:"backend" env:"BACKEND"`
	FsyncInterval time.Duration `yaml:"fsync_interval" env:"FSYNC_INTERVAL"`
	ProgramID     string        `yaml:"program_id" env:"PROGRAM_ID"`
	Port          int           `yaml:"port" env:"PORT"`
	Bind          string        `yaml:"bind" env:"BIND"`
	Security      Security      `yaml:"security" envPrefix:"SECURITY_"`
	Logging       Logging       `yaml:"logging" envPrefix:"LOG_"`
}

// Security contains security-related configuration
type Security struct {
	// APIKey guards every API route except health and metrics. Empty
	// disables authentication.
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// KeypairPath is the payer keypair the CLI signs with.
	KeypairPath string `yaml:"keypair_path" env:"KEYPAIR"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:       "./data",
		Backend:       BackendLog,
		FsyncInterval: 0,
		ProgramID:     program.DefaultProgramID,
		Port:          8080,
		Bind:          "127.0.0.1",
		Security: Security{
			APIKey: "",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path and applies
// DBLOG_* environment overrides on top of it.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides fields of config from DBLOG_* environment variables.
func ApplyEnv(config *Config) error {
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}
	return nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLog, BackendPebble, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendLog, BackendPebble, BackendMemory)
	}
	if c.Backend != BackendMemory && c.DataDir == "" {
		return fmt.Errorf("data_dir is required for the %s backend", c.Backend)
	}
	if c.FsyncInterval < 0 {
		return fmt.Errorf("fsync_interval must not be negative")
	}
	if _, err := ledger.ParsePubkey(c.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id: %w", err)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}
	return nil
}

// ProgramKey returns the parsed program id.
func (c *Config) ProgramKey() (ledger.Pubkey, error) {
	return ledger.ParsePubkey(c.ProgramID)
}

// Addr returns the host:port the API listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key and
// payer keypair.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	kp, err := ledger.NewKeypair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payer keypair: %w", err)
	}
	config.Security.KeypairPath = filepath.Join(filepath.Dir(configPath), "payer.json")
	if err := ledger.SaveKeypair(kp, config.Security.KeypairPath); err != nil {
		return nil, fmt.Errorf("failed to save payer keypair: %w", err)
	}

	// Save the configuration
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./dblog.yaml"
	}

	// For Linux/macOS, use ~/.config/dblog/config.yaml
	configDir := filepath.Join(homeDir, ".config", "dblog")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
