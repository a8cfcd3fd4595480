package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Wallet.Network == "" {
		cfg.Wallet.Network = "mainnet"
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 30 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}

	if cfg.Wallet.Address == "" && cfg.Wallet.SecretKey == "" {
		return nil, fmt.Errorf("wallet: either address or secret_key is required")
	}
	if cfg.Wallet.Address != "" && cfg.Wallet.SecretKey != "" {
		return nil, fmt.Errorf("wallet: address and secret_key are mutually exclusive")
	}

	return &cfg, nil
}
