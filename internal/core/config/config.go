package config

import (
	"time"

	redisclient "github.com/vietddude/tonkit/internal/infra/redis"
	"github.com/vietddude/tonkit/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Wallet   WalletConfig       `yaml:"wallet"`
	Sync     SyncConfig         `yaml:"sync"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Storage  StorageConfig      `yaml:"storage"`
}

// ServerConfig holds HTTP server settings (metrics endpoint).
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// WalletConfig identifies the watched wallet. Exactly one of Address or
// SecretKey is set: an address makes the kit watch-only, a hex-encoded
// ed25519 secret key enables signing and derives the address.
type WalletConfig struct {
	Network   string `yaml:"network"    mapstructure:"network"` // mainnet, testnet
	Address   string `yaml:"address"    mapstructure:"address"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}

// SyncConfig holds periodic refresh settings. The interval is the poll
// backstop behind the push listener.
type SyncConfig struct {
	Interval  time.Duration `yaml:"interval"  mapstructure:"interval"`
	Retention time.Duration `yaml:"retention" mapstructure:"retention"` // 0 = keep everything
}

// StorageConfig selects the cache backend.
type StorageConfig struct {
	Driver   string          `yaml:"driver"   mapstructure:"driver"` // memory, postgres
	Postgres postgres.Config `yaml:"postgres" mapstructure:"postgres"`
}
