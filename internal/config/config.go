// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chains    []ChainConfig   `mapstructure:"chains"`
	Quoting   QuotingConfig   `mapstructure:"quoting"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Permit    PermitConfig    `mapstructure:"permit"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	HealthPort  int    `mapstructure:"health_port"`
}

// ChainConfig holds per-chain addresses and endpoints.
type ChainConfig struct {
	ChainID            uint64   `mapstructure:"chain_id"`
	RPCURL             string   `mapstructure:"rpc_url"`
	ExecutionTarget    string   `mapstructure:"execution_target"`
	Permit2Address     string   `mapstructure:"permit2_address"`
	UniswapQuoter      string   `mapstructure:"uniswap_quoter"`
	UniswapRouter      string   `mapstructure:"uniswap_router"`
	ZeroExBaseURL      string   `mapstructure:"zeroex_base_url"`
	ZeroExRouter       string   `mapstructure:"zeroex_router"`
	AllowedRouters     []string `mapstructure:"allowed_routers"`
	AllowedTokens      []string `mapstructure:"allowed_tokens"`
	DefaultGasPriceWei string   `mapstructure:"default_gas_price_wei"`
}

// ExecutionTargetHex returns the execution target as common.Address.
func (c *ChainConfig) ExecutionTargetHex() common.Address {
	return common.HexToAddress(c.ExecutionTarget)
}

// UniswapQuoterHex returns the quoter address as common.Address.
func (c *ChainConfig) UniswapQuoterHex() common.Address {
	return common.HexToAddress(c.UniswapQuoter)
}

// QuotingConfig holds router quote client configuration.
type QuotingConfig struct {
	ClientTimeout      time.Duration `mapstructure:"client_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
	PriceBias          float64       `mapstructure:"price_bias"`
	DefaultTTLSeconds  int           `mapstructure:"default_ttl_seconds"`
	ZeroExRatePerMin   int           `mapstructure:"zeroex_rate_per_min"`
	ZeroExAPIKey       string        `mapstructure:"zeroex_api_key"`
	DustThresholdUSD   float64       `mapstructure:"dust_threshold_usd"`
	EnabledRouterTypes []string      `mapstructure:"enabled_router_types"`
}

// OracleConfig holds price/gas oracle configuration.
type OracleConfig struct {
	PriceBaseURL string        `mapstructure:"price_base_url"`
	PriceAPIKey  string        `mapstructure:"price_api_key"`
	PriceTTL     time.Duration `mapstructure:"price_ttl"`
	GasTTL       time.Duration `mapstructure:"gas_ttl"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SimulatorConfig holds external transaction simulator credentials.
type SimulatorConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	AccountSlug string        `mapstructure:"account_slug"`
	ProjectSlug string        `mapstructure:"project_slug"`
	AccessKey   string        `mapstructure:"access_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Configured reports whether simulator credentials are present.
// Without them the simulation adapter serves deterministic fallbacks.
func (c *SimulatorConfig) Configured() bool {
	return c.AccountSlug != "" && c.ProjectSlug != "" && c.AccessKey != ""
}

// PermitConfig holds signature-request defaults.
type PermitConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// StatsConfig holds the request-stats store configuration.
type StatsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("AGENT")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "AGENT_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "AGENT_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "AGENT_LOG_LEVEL", "LOG_LEVEL")

	// Quoting
	v.BindEnv("quoting.zeroex_api_key", "AGENT_ZEROEX_API_KEY", "ZEROEX_API_KEY")

	// Oracle
	v.BindEnv("oracle.price_base_url", "AGENT_PRICE_ORACLE_URL", "PRICE_ORACLE_URL")
	v.BindEnv("oracle.price_api_key", "AGENT_PRICE_ORACLE_KEY", "PRICE_ORACLE_KEY")

	// Simulator
	v.BindEnv("simulator.account_slug", "AGENT_TENDERLY_ACCOUNT", "TENDERLY_ACCOUNT")
	v.BindEnv("simulator.project_slug", "AGENT_TENDERLY_PROJECT", "TENDERLY_PROJECT")
	v.BindEnv("simulator.access_key", "AGENT_TENDERLY_ACCESS_KEY", "TENDERLY_ACCESS_KEY")

	// Telemetry
	v.BindEnv("telemetry.enabled", "AGENT_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "AGENT_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "AGENT_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "defi-agent")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8081)

	// Ethereum mainnet defaults; other chains come from the config file.
	v.SetDefault("chains", []map[string]any{
		{
			"chain_id":              uint64(1),
			"rpc_url":               "",
			"execution_target":      "0x0000000000000000000000000000000000000000",
			"permit2_address":       "0x000000000022D473030F116dDEE9F6B43aC78BA3",
			"uniswap_quoter":        "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
			"uniswap_router":        "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
			"zeroex_base_url":       "https://api.0x.org",
			"zeroex_router":         "0xDef1C0ded9bec7F1a1670819833240f027b25EfF",
			"default_gas_price_wei": "25000000000",
		},
	})

	// Quoting defaults
	v.SetDefault("quoting.client_timeout", "5s")
	v.SetDefault("quoting.max_retries", 2)
	v.SetDefault("quoting.price_bias", 1.0)
	v.SetDefault("quoting.default_ttl_seconds", 60)
	v.SetDefault("quoting.zeroex_rate_per_min", 60)
	v.SetDefault("quoting.dust_threshold_usd", 1.0)
	v.SetDefault("quoting.enabled_router_types", []string{"UNISWAP_V3", "ZEROX"})

	// Oracle defaults
	v.SetDefault("oracle.price_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("oracle.price_ttl", "10s")
	v.SetDefault("oracle.gas_ttl", "15s")
	v.SetDefault("oracle.timeout", "3s")

	// Simulator defaults
	v.SetDefault("simulator.base_url", "https://api.tenderly.co/api/v1")
	v.SetDefault("simulator.timeout", "10s")

	// Permit defaults
	v.SetDefault("permit.ttl_seconds", 3600)

	// Stats defaults
	v.SetDefault("stats.enabled", true)
	v.SetDefault("stats.path", "agent-stats.db")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "defi-agent")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}
	seen := make(map[uint64]bool, len(c.Chains))
	for i := range c.Chains {
		ch := &c.Chains[i]
		if ch.ChainID == 0 {
			return fmt.Errorf("chains[%d]: chain_id is required", i)
		}
		if seen[ch.ChainID] {
			return fmt.Errorf("chains[%d]: duplicate chain_id %d", i, ch.ChainID)
		}
		seen[ch.ChainID] = true
		if ch.ExecutionTarget != "" && !common.IsHexAddress(ch.ExecutionTarget) {
			return fmt.Errorf("chains[%d]: invalid execution_target: %s", i, ch.ExecutionTarget)
		}
		if ch.UniswapQuoter != "" && !common.IsHexAddress(ch.UniswapQuoter) {
			return fmt.Errorf("chains[%d]: invalid uniswap_quoter: %s", i, ch.UniswapQuoter)
		}
		if ch.Permit2Address != "" && !common.IsHexAddress(ch.Permit2Address) {
			return fmt.Errorf("chains[%d]: invalid permit2_address: %s", i, ch.Permit2Address)
		}
	}
	if c.Quoting.PriceBias <= 0 || c.Quoting.PriceBias > 1 {
		return fmt.Errorf("quoting.price_bias must be in (0, 1], got %v", c.Quoting.PriceBias)
	}
	if c.Permit.TTLSeconds < 1 || c.Permit.TTLSeconds > 86400 {
		return fmt.Errorf("permit.ttl_seconds must be in [1, 86400], got %d", c.Permit.TTLSeconds)
	}
	return nil
}

// Chain returns the config for a chain id, if present.
func (c *Config) Chain(chainID uint64) (*ChainConfig, bool) {
	for i := range c.Chains {
		if c.Chains[i].ChainID == chainID {
			return &c.Chains[i], true
		}
	}
	return nil, false
}

// ChainIDs returns all configured chain ids.
func (c *Config) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(c.Chains))
	for i := range c.Chains {
		ids = append(ids, c.Chains[i].ChainID)
	}
	return ids
}
