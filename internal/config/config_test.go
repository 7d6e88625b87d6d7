package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfg, err := Load(Options{Home: home, EnvFile: filepath.Join(home, "missing.env")})
	require.NoError(t, err)

	dir := filepath.Join(home, ".smartwallet")
	assert.Equal(t, filepath.Join(dir, "wallet.toml"), cfg.Storage.DataPath)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.Storage.HistoryPath)
	assert.Equal(t, filepath.Join(dir, "secrets"), cfg.Storage.SecretsDir)
	assert.Equal(t, SecretsBackendAuto, cfg.Storage.SecretsBackend)
	assert.Equal(t, common.HexToAddress(EntryPointV07), cfg.Contracts.EntryPoint)
	assert.Equal(t, common.Address{}, cfg.Contracts.Factory)
	assert.Equal(t, 5, cfg.Session.ImmediateAttempts)
	assert.Equal(t, time.Second, cfg.Session.BaseBackoff)
	assert.Equal(t, time.Minute, cfg.Session.MaxBackoff)
	assert.Equal(t, 30*time.Second, cfg.Session.AccessorTimeout)
	assert.InDelta(t, 10, cfg.Bundler.RequestsPerSecond, 0)
	assert.Equal(t, logrus.WarnLevel, cfg.Log.Level)
	assert.Empty(t, cfg.File)

	require.ErrorIs(t, cfg.RequireNetwork(), ErrNetworkNotConfigured)
}

func TestLoadReadsConfigFile(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	path := filepath.Join(home, ".smartwallet", "config.toml")
	writeFile(t, path,
		"[network]",
		`rpc_url = "https://sepolia.base.org"`,
		`bundler_url = "https://bundler.example/rpc"`,
		"chain_id = 84532",
		"",
		"[contracts]",
		`factory = "0x9406Cc6185a346906296840746125a0E44976454"`,
		"",
		"[session]",
		`max_backoff = "2m"`,
		"immediate_attempts = 3",
		"",
		"[log]",
		`level = "debug"`,
	)

	cfg, err := Load(Options{Home: home, EnvFile: filepath.Join(home, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "https://sepolia.base.org", cfg.Network.RPCURL)
	assert.Equal(t, uint64(84532), cfg.Network.ChainID)
	assert.Equal(t, common.HexToAddress("0x9406Cc6185a346906296840746125a0E44976454"), cfg.Contracts.Factory)
	assert.Equal(t, 2*time.Minute, cfg.Session.MaxBackoff)
	assert.Equal(t, 3, cfg.Session.ImmediateAttempts)
	assert.Equal(t, logrus.DebugLevel, cfg.Log.Level)
	require.NoError(t, cfg.RequireNetwork())
}

func TestLoadExplicitConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	writeFile(t, path, "[storage]", `data_path = "/tmp/sw/custom.toml"`)

	cfg, err := Load(Options{Home: dir, ConfigFile: path, EnvFile: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/sw/custom.toml", cfg.Storage.DataPath)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	home := t.TempDir()
	writeFile(t, filepath.Join(home, ".smartwallet", "config.toml"),
		"[network]",
		`bundler_url = "https://from-file.example"`,
	)
	t.Setenv("SW_NETWORK_BUNDLER_URL", "https://from-env.example")
	t.Setenv("SW_SESSION_BASE_BACKOFF", "2s")

	cfg, err := Load(Options{Home: home, EnvFile: filepath.Join(home, "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example", cfg.Network.BundlerURL)
	assert.Equal(t, 2*time.Second, cfg.Session.BaseBackoff)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	home := t.TempDir()
	envFile := filepath.Join(home, ".env")
	writeFile(t, envFile,
		"SW_NETWORK_PAYMASTER_POLICY=sponsor-all",
		"SW_NETWORK_RPC_URL=https://from-dotenv.example",
	)
	t.Setenv("SW_NETWORK_RPC_URL", "https://from-env.example")
	t.Cleanup(func() { _ = os.Unsetenv("SW_NETWORK_PAYMASTER_POLICY") })

	cfg, err := Load(Options{Home: home, EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "sponsor-all", cfg.Network.PaymasterPolicy)
	assert.Equal(t, "https://from-env.example", cfg.Network.RPCURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name:  "log level",
			lines: []string{"[log]", `level = "loud"`},
			want:  "log.level",
		},
		{
			name:  "factory address",
			lines: []string{"[contracts]", `factory = "0x1234"`},
			want:  "contracts.factory: invalid address",
		},
		{
			name:  "backoff order",
			lines: []string{"[session]", `base_backoff = "2m"`, `max_backoff = "1m"`},
			want:  "exceeds session.max_backoff",
		},
		{
			name:  "secrets backend",
			lines: []string{"[storage]", `secrets_backend = "vault"`},
			want:  "storage.secrets_backend",
		},
		{
			name:  "malformed toml",
			lines: []string{"[network", "rpc_url ="},
			want:  "read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			home := t.TempDir()
			writeFile(t, filepath.Join(home, ".smartwallet", "config.toml"), tt.lines...)

			_, err := Load(Options{Home: home, EnvFile: filepath.Join(home, "missing.env")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRequireNetworkNamesMissingSetting(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Network:   NetworkConfig{RPCURL: "http://rpc", BundlerURL: "http://bundler"},
		Contracts: ContractsConfig{EntryPoint: common.HexToAddress(EntryPointV07)},
	}

	err := cfg.RequireNetwork()
	require.ErrorIs(t, err, ErrNetworkNotConfigured)
	assert.Contains(t, err.Error(), "contracts.factory")
}
