// Package config loads the sw configuration from ~/.smartwallet/config.toml,
// SW_-prefixed environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	configDir  = ".smartwallet"
	configName = "config"
	configType = "toml"
	envPrefix  = "SW"

	// EntryPointV07 is the canonical EntryPoint v0.7 deployment.
	EntryPointV07 = "0x0000000071727De22E5E9d8BAf0edAc6f37da032"
)

var ErrNetworkNotConfigured = errors.New("network is not configured")

type Config struct {
	Network   NetworkConfig
	Contracts ContractsConfig
	Session   SessionConfig
	Bundler   BundlerConfig
	Storage   StorageConfig
	Log       LogConfig
	// File is the config file that was read, empty when none was found.
	File string
}

type NetworkConfig struct {
	RPCURL       string
	BundlerURL   string
	PaymasterURL string
	ChainID      uint64
	// PaymasterPolicy is passed as the ERC-7677 context when set.
	PaymasterPolicy string
}

type ContractsConfig struct {
	EntryPoint common.Address
	Factory    common.Address
}

type SessionConfig struct {
	ImmediateAttempts   int
	AttemptDelay        time.Duration
	BaseBackoff         time.Duration
	MaxBackoff          time.Duration
	AccessorAttempts    int
	AccessorDelay       time.Duration
	AccessorTimeout     time.Duration
	ReceiptPollInterval time.Duration
}

type BundlerConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type StorageConfig struct {
	DataPath    string
	HistoryPath string
	SecretsDir  string
	// SecretsBackend is one of SecretsBackendAuto, SecretsBackendPass or SecretsBackendFile.
	SecretsBackend string
}

const (
	SecretsBackendAuto = "auto"
	SecretsBackendPass = "pass"
	SecretsBackendFile = "file"
)

type LogConfig struct {
	Level logrus.Level
}

type Options struct {
	// ConfigFile overrides the ~/.smartwallet/config.toml lookup.
	ConfigFile string
	// EnvFile is loaded before the environment is read; missing files are ignored.
	EnvFile string
	// Home overrides the user home directory.
	Home string
}

// Load reads the configuration. Variables already set in the environment win
// over the .env file.
func Load(opts Options) (*Config, error) {
	home := opts.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v, filepath.Join(home, configDir))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(filepath.Join(home, configDir))
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("network.rpc_url", "")
	v.SetDefault("network.bundler_url", "")
	v.SetDefault("network.paymaster_url", "")
	v.SetDefault("network.paymaster_policy", "")
	v.SetDefault("network.chain_id", 0)

	v.SetDefault("contracts.entry_point", EntryPointV07)
	v.SetDefault("contracts.factory", "")

	v.SetDefault("session.immediate_attempts", 5)
	v.SetDefault("session.attempt_delay", "500ms")
	v.SetDefault("session.base_backoff", "1s")
	v.SetDefault("session.max_backoff", "60s")
	v.SetDefault("session.accessor_attempts", 3)
	v.SetDefault("session.accessor_delay", "1s")
	v.SetDefault("session.accessor_timeout", "30s")
	v.SetDefault("session.receipt_poll_interval", "2s")

	v.SetDefault("bundler.requests_per_second", 10)
	v.SetDefault("bundler.burst", 5)

	v.SetDefault("storage.data_path", filepath.Join(dir, "wallet.toml"))
	v.SetDefault("storage.history_path", filepath.Join(dir, "history.db"))
	v.SetDefault("storage.secrets_dir", filepath.Join(dir, "secrets"))
	v.SetDefault("storage.secrets_backend", SecretsBackendAuto)

	v.SetDefault("log.level", "warn")
}

func fromViper(v *viper.Viper) (*Config, error) {
	level, err := logrus.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	entryPoint, err := optionalAddress(v, "contracts.entry_point")
	if err != nil {
		return nil, err
	}
	factory, err := optionalAddress(v, "contracts.factory")
	if err != nil {
		return nil, err
	}

	return &Config{
		Network: NetworkConfig{
			RPCURL:          v.GetString("network.rpc_url"),
			BundlerURL:      v.GetString("network.bundler_url"),
			PaymasterURL:    v.GetString("network.paymaster_url"),
			PaymasterPolicy: v.GetString("network.paymaster_policy"),
			ChainID:         v.GetUint64("network.chain_id"),
		},
		Contracts: ContractsConfig{
			EntryPoint: entryPoint,
			Factory:    factory,
		},
		Session: SessionConfig{
			ImmediateAttempts:   v.GetInt("session.immediate_attempts"),
			AttemptDelay:        v.GetDuration("session.attempt_delay"),
			BaseBackoff:         v.GetDuration("session.base_backoff"),
			MaxBackoff:          v.GetDuration("session.max_backoff"),
			AccessorAttempts:    v.GetInt("session.accessor_attempts"),
			AccessorDelay:       v.GetDuration("session.accessor_delay"),
			AccessorTimeout:     v.GetDuration("session.accessor_timeout"),
			ReceiptPollInterval: v.GetDuration("session.receipt_poll_interval"),
		},
		Bundler: BundlerConfig{
			RequestsPerSecond: v.GetFloat64("bundler.requests_per_second"),
			Burst:             v.GetInt("bundler.burst"),
		},
		Storage: StorageConfig{
			DataPath:       v.GetString("storage.data_path"),
			HistoryPath:    v.GetString("storage.history_path"),
			SecretsDir:     v.GetString("storage.secrets_dir"),
			SecretsBackend: strings.ToLower(strings.TrimSpace(v.GetString("storage.secrets_backend"))),
		},
		Log:  LogConfig{Level: level},
		File: v.ConfigFileUsed(),
	}, nil
}

func optionalAddress(v *viper.Viper, key string) (common.Address, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", key, raw)
	}
	return common.HexToAddress(raw), nil
}

// Validate checks the settings every command needs. Network settings are
// checked separately by RequireNetwork so offline commands keep working.
func (c *Config) Validate() error {
	if c.Storage.DataPath == "" {
		return errors.New("storage.data_path cannot be empty")
	}
	if c.Storage.HistoryPath == "" {
		return errors.New("storage.history_path cannot be empty")
	}
	if c.Storage.SecretsDir == "" {
		return errors.New("storage.secrets_dir cannot be empty")
	}
	switch c.Storage.SecretsBackend {
	case SecretsBackendAuto, SecretsBackendPass, SecretsBackendFile:
	default:
		return fmt.Errorf("storage.secrets_backend must be auto, pass or file, got %q", c.Storage.SecretsBackend)
	}
	if c.Session.BaseBackoff > c.Session.MaxBackoff {
		return fmt.Errorf("session.base_backoff %s exceeds session.max_backoff %s", c.Session.BaseBackoff, c.Session.MaxBackoff)
	}
	return nil
}

// RequireNetwork reports the first missing setting needed to reach the chain.
func (c *Config) RequireNetwork() error {
	switch {
	case c.Network.RPCURL == "":
		return fmt.Errorf("%w: set network.rpc_url or SW_NETWORK_RPC_URL", ErrNetworkNotConfigured)
	case c.Network.BundlerURL == "":
		return fmt.Errorf("%w: set network.bundler_url or SW_NETWORK_BUNDLER_URL", ErrNetworkNotConfigured)
	case c.Contracts.Factory == (common.Address{}):
		return fmt.Errorf("%w: set contracts.factory or SW_CONTRACTS_FACTORY", ErrNetworkNotConfigured)
	case c.Contracts.EntryPoint == (common.Address{}):
		return fmt.Errorf("%w: set contracts.entry_point or SW_CONTRACTS_ENTRY_POINT", ErrNetworkNotConfigured)
	}
	return nil
}
