// Package config loads executor configuration from the environment (and
// an optional config file), the same layered-viper pattern the rest of
// this module's predecessor used for its inspector.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the executor daemon.
type Config struct {
	RPC           RPCConfig
	AMM           AMMConfig
	Order         OrderConfig
	Executor      ExecutorConfig
	Logging       LoggingConfig
	TokenRegistry TokenRegistryConfig
}

// RPCConfig holds chain RPC connection settings.
type RPCConfig struct {
	URL            string
	RetryAttempts  int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// AMMConfig holds the AMM query endpoint used by the adapter to fetch
// pool reserves.
type AMMConfig struct {
	QueryURL string
}

// OrderConfig holds the address of the limit-order contract being
// monitored.
type OrderConfig struct {
	ContractAddress string
}

// TokenRegistryConfig points at the file cmd/seed produces and
// cmd/executor loads at startup.
type TokenRegistryConfig struct {
	Path string
}

// ExecutorConfig holds the executor daemon's own tunables.
type ExecutorConfig struct {
	Enabled         bool
	CheckInterval   time.Duration
	Cooldown        time.Duration
	OperatorKeyPath string
	ExecGas         uint64
	StatusAddr      string
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load reads configuration from environment and an optional config file.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("rpc.url", "")
	v.SetDefault("rpc.retry_attempts", 3)
	v.SetDefault("rpc.retry_delay", "1s")
	v.SetDefault("rpc.request_timeout", "10s")

	v.SetDefault("amm.query_url", "")

	v.SetDefault("order.contract_address", "")

	v.SetDefault("token_registry.path", "")

	v.SetDefault("executor.enabled", true)
	v.SetDefault("executor.check_interval", "30s")
	v.SetDefault("executor.cooldown", "300s")
	v.SetDefault("executor.operator_key_path", "")
	v.SetDefault("executor.exec_gas", 80_000_000)
	v.SetDefault("executor.status_addr", "127.0.0.1:8090")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Environment variables follow the normative names from the external
	// interface table directly, not the viper dotted-key convention, so
	// map them explicitly instead of relying on SetEnvKeyReplacer alone.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v, "rpc.url", "CHAIN_RPC_URL")
	bindEnv(v, "amm.query_url", "AMM_QUERY_URL")
	bindEnv(v, "order.contract_address", "CONTRACT_ADDRESS")
	bindEnv(v, "token_registry.path", "TOKEN_REGISTRY_PATH")
	bindEnv(v, "executor.enabled", "ENABLE_EXECUTOR")
	bindEnv(v, "executor.check_interval", "CHECK_INTERVAL_S")
	bindEnv(v, "executor.cooldown", "COOLDOWN_S")
	bindEnv(v, "executor.operator_key_path", "OPERATOR_KEY_PATH")
	bindEnv(v, "executor.exec_gas", "EXEC_GAS")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.stellarnova-executor")

	_ = v.ReadInConfig()

	checkInterval, err := secondsEnvOrDuration(v, "executor.check_interval", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cooldown, err := secondsEnvOrDuration(v, "executor.cooldown", 300*time.Second)
	if err != nil {
		return nil, err
	}
	retryDelay, _ := time.ParseDuration(v.GetString("rpc.retry_delay"))
	requestTimeout, _ := time.ParseDuration(v.GetString("rpc.request_timeout"))

	cfg := &Config{
		RPC: RPCConfig{
			URL:            v.GetString("rpc.url"),
			RetryAttempts:  v.GetInt("rpc.retry_attempts"),
			RetryDelay:     retryDelay,
			RequestTimeout: requestTimeout,
		},
		AMM: AMMConfig{
			QueryURL: v.GetString("amm.query_url"),
		},
		Order: OrderConfig{
			ContractAddress: v.GetString("order.contract_address"),
		},
		TokenRegistry: TokenRegistryConfig{
			Path: v.GetString("token_registry.path"),
		},
		Executor: ExecutorConfig{
			Enabled:         v.GetBool("executor.enabled"),
			CheckInterval:   checkInterval,
			Cooldown:        cooldown,
			OperatorKeyPath: v.GetString("executor.operator_key_path"),
			ExecGas:         v.GetUint64("executor.exec_gas"),
			StatusAddr:      v.GetString("executor.status_addr"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	return cfg, nil
}

// bindEnv attaches the normative environment variable name from
// SPEC_FULL.md §6 to a dotted viper key, since those names don't follow
// viper's default dotted-to-underscore mapping (no common prefix).
func bindEnv(v *viper.Viper, key, envName string) {
	_ = v.BindEnv(key, envName)
}

// secondsEnvOrDuration reads key as a plain integer number of seconds
// (CHECK_INTERVAL_S, COOLDOWN_S are specified in seconds, not Go duration
// strings) and falls back to def if unset or unparsable.
func secondsEnvOrDuration(v *viper.Viper, key string, def time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	secs := v.GetInt64(key)
	if secs <= 0 {
		return def, nil
	}
	return time.Duration(secs) * time.Second, nil
}
