// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/letscook/internal/program"
)

type Config struct {
	RPCList          []string `mapstructure:"rpc_list"`
	WebSocketURL     string   `mapstructure:"websocket_url"`
	ProgramID        string   `mapstructure:"program_id"`
	FeeAccount       string   `mapstructure:"fee_account"`
	PythBTC          string   `mapstructure:"pyth_btc"`
	PythETH          string   `mapstructure:"pyth_eth"`
	PythSOL          string   `mapstructure:"pyth_sol"`
	Keypair          string   `mapstructure:"keypair"`
	TxTimeoutMs      int      `mapstructure:"tx_timeout_ms"`
	CheckInTimeoutMs int64    `mapstructure:"check_in_timeout_ms"`
	PriorityFeeMin   uint64   `mapstructure:"priority_fee_min"`
	PriorityFeeMax   uint64   `mapstructure:"priority_fee_max"`
	ComputeUnits     uint32   `mapstructure:"compute_units"`
	BirdeyeAPIKey    string   `mapstructure:"birdeye_api_key"`
	BirdeyeEnabled   bool     `mapstructure:"birdeye_enabled"`
	PostgresURL      string   `mapstructure:"postgres_url"`
	HomepageOnly     bool     `mapstructure:"homepage_only"`
	DebugLogging     bool     `mapstructure:"debug_logging"`
	LogFile          string   `mapstructure:"log_file"`
	ListenAddr       string   `mapstructure:"listen_addr"`
	RefreshCron      string   `mapstructure:"refresh_cron"`
}

const (
	DefaultTxTimeoutMs      = 30_000
	DefaultCheckInTimeoutMs = int64(48 * time.Hour / time.Millisecond)
	DefaultPriorityFeeMin   = 1_000
	DefaultPriorityFeeMax   = 1_000_000
	DefaultComputeUnits     = 400_000
	DefaultListenAddr       = ":8080"
	DefaultRefreshCron      = "@every 1m"
	DefaultLogFile          = "letscook.log"

	// Pyth mainnet price accounts.
	DefaultPythBTC = "GVXRSBjFk6e6J3NbVPXohDJetcTjaeeuykUpbQF8UoMU"
	DefaultPythETH = "JBu1AL4obBcCMqKBBxhpWCNUt136ijcuMZLFvTP7iWdB"
	DefaultPythSOL = "H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG"
)

// EnvPrefix prefixes every environment override, e.g. LETSCOOK_RPC_LIST.
const EnvPrefix = "LETSCOOK"

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"tx_timeout_ms":       DefaultTxTimeoutMs,
		"check_in_timeout_ms": DefaultCheckInTimeoutMs,
		"priority_fee_min":    DefaultPriorityFeeMin,
		"priority_fee_max":    DefaultPriorityFeeMax,
		"compute_units":       DefaultComputeUnits,
		"listen_addr":         DefaultListenAddr,
		"refresh_cron":        DefaultRefreshCron,
		"log_file":            DefaultLogFile,
		"pyth_btc":            DefaultPythBTC,
		"pyth_eth":            DefaultPythETH,
		"pyth_sol":            DefaultPythSOL,
		"birdeye_enabled":     false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.WebSocketURL == "" {
		return errors.New("missing websocket_url in configuration")
	}
	if err := validateURLWithCache(cfg.WebSocketURL, "ws"); err != nil {
		return errors.New("invalid WebSocket URL protocol")
	}
	if cfg.ProgramID == "" {
		return errors.New("missing program_id in configuration")
	}
	if cfg.FeeAccount == "" {
		return errors.New("missing fee_account in configuration")
	}
	if _, err := cfg.Addresses(); err != nil {
		return err
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.BirdeyeEnabled && cfg.BirdeyeAPIKey == "" {
		return errors.New("birdeye_api_key is required when birdeye_enabled is set")
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.TxTimeoutMs <= 0 {
		return errors.New("invalid tx_timeout_ms")
	}
	if cfg.CheckInTimeoutMs <= 0 {
		return errors.New("invalid check_in_timeout_ms")
	}
	if cfg.PriorityFeeMax < cfg.PriorityFeeMin {
		return errors.New("priority_fee_max is below priority_fee_min")
	}
	if cfg.ComputeUnits == 0 {
		return errors.New("invalid compute_units")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	key := protocol + "|" + rawURL
	if _, ok := urlCache.Load(key); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(key, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envKeypair := v.GetString("KEYPAIR"); envKeypair != "" {
		cfg.Keypair = envKeypair
	}
	if envKey := v.GetString("BIRDEYE_API_KEY"); envKey != "" {
		cfg.BirdeyeAPIKey = envKey
	}
	if envDSN := v.GetString("POSTGRES_URL"); envDSN != "" {
		cfg.PostgresURL = envDSN
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}

// Addresses parses the configured program accounts.
func (c *Config) Addresses() (program.Addresses, error) {
	var a program.Addresses
	fields := []struct {
		name string
		raw  string
		dst  *solana.PublicKey
	}{
		{"program_id", c.ProgramID, &a.Program},
		{"fee_account", c.FeeAccount, &a.FeeAccount},
		{"pyth_btc", c.PythBTC, &a.PythBTC},
		{"pyth_eth", c.PythETH, &a.PythETH},
		{"pyth_sol", c.PythSOL, &a.PythSOL},
	}
	for _, f := range fields {
		key, err := solana.PublicKeyFromBase58(f.raw)
		if err != nil {
			return program.Addresses{}, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		*f.dst = key
	}
	return a, nil
}

// TxTimeout is how long a submission waits for confirmation.
func (c *Config) TxTimeout() time.Duration {
	return time.Duration(c.TxTimeoutMs) * time.Millisecond
}

// CheckInTimeout is how long after a sale ends liquidity may stay undeployed
// before ticket holders can refund.
func (c *Config) CheckInTimeout() time.Duration {
	return time.Duration(c.CheckInTimeoutMs) * time.Millisecond
}
