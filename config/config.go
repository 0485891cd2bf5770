package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	PriceSourceCoinbase = "coinbase"
	PriceSourceOneClick = "oneclick"

	DefaultPriceInterval = 6 * time.Second
	DefaultPriceTimeout  = 5 * time.Second
)

// Config holds the application configuration
type Config struct {
	Wallet      WalletConfig
	Price       PriceConfig
	OneClick    OneClickConfig
	Development bool
	AutoConfirm bool
}

// WalletConfig configures the signing wallet and its RPC endpoints
type WalletConfig struct {
	PrivateKey string
	// RPC lists endpoints per chain id, tried in order
	RPC      map[int64][]string
	GasLimit *uint64
	GasPrice *int64
}

// PriceConfig selects the fiat rate feed
type PriceConfig struct {
	Source   string
	URL      string
	Interval time.Duration
	// Timeout bounds a single fetch
	Timeout time.Duration
}

// OneClickConfig holds 1Click API credentials for the oneclick price source
type OneClickConfig struct {
	JWTToken string
	BaseURL  string
}

// Public endpoints used when nothing is configured for a chain
var defaultRPC = map[int64][]string{
	1:      {"https://eth.drpc.org", "https://eth.llamarpc.com"},
	10:     {"https://optimism.drpc.org", "https://mainnet.optimism.io"},
	137:    {"https://polygon-rpc.com", "https://polygon.drpc.org"},
	8453:   {"https://mainnet.base.org", "https://base.drpc.org"},
	42161:  {"https://arb1.arbitrum.io/rpc", "https://arbitrum.drpc.org"},
	59144:  {"https://rpc.linea.build"},
	534352: {"https://rpc.scroll.io"},
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".ca-send")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("price.source", PriceSourceCoinbase)
	v.SetDefault("price.url", "https://api.coinbase.com/v2/exchange-rates?currency=USD")
	v.SetDefault("price.interval", DefaultPriceInterval)
	v.SetDefault("price.timeout", DefaultPriceTimeout)
	v.SetDefault("oneclick.base_url", "https://1click.chaindefuser.com")

	v.SetEnvPrefix("CA_SEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Wallet: WalletConfig{
			PrivateKey: v.GetString("private_key"),
			RPC:        make(map[int64][]string),
		},
		Price: PriceConfig{
			Source:   strings.ToLower(v.GetString("price.source")),
			URL:      v.GetString("price.url"),
			Interval: v.GetDuration("price.interval"),
			Timeout:  v.GetDuration("price.timeout"),
		},
		OneClick: OneClickConfig{
			JWTToken: v.GetString("oneclick.jwt_token"),
			BaseURL:  v.GetString("oneclick.base_url"),
		},
		Development: v.GetBool("development"),
		AutoConfirm: v.GetBool("auto_confirm"),
	}

	if v.IsSet("gas_limit") {
		limit := v.GetUint64("gas_limit")
		cfg.Wallet.GasLimit = &limit
	}
	if v.IsSet("gas_price") {
		price := v.GetInt64("gas_price")
		cfg.Wallet.GasPrice = &price
	}

	for id, urls := range defaultRPC {
		cfg.Wallet.RPC[id] = urls
	}
	for key := range v.GetStringMap("rpc") {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id '%s' in rpc section", key)
		}
		if urls := splitList(v.GetStringSlice("rpc." + key)); len(urls) > 0 {
			cfg.Wallet.RPC[id] = urls
		}
	}
	// Per-chain env overrides: CA_SEND_RPC_<chainId>=url1,url2
	for id := range defaultRPC {
		key := fmt.Sprintf("rpc.%d", id)
		_ = v.BindEnv(key)
		if urls := splitList(v.GetStringSlice(key)); len(urls) > 0 {
			cfg.Wallet.RPC[id] = urls
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the parts of the configuration every command needs
func (c *Config) Validate() error {
	switch c.Price.Source {
	case PriceSourceCoinbase:
		if c.Price.URL == "" {
			return fmt.Errorf("price.url is required for the coinbase price source")
		}
	case PriceSourceOneClick:
		if c.OneClick.JWTToken == "" {
			return fmt.Errorf("JWT token not found. Set CA_SEND_ONECLICK_JWT_TOKEN or oneclick.jwt_token to use the oneclick price source")
		}
	default:
		return fmt.Errorf("unknown price source '%s' (expected %s or %s)", c.Price.Source, PriceSourceCoinbase, PriceSourceOneClick)
	}

	if c.Price.Interval <= 0 {
		return fmt.Errorf("price.interval must be positive")
	}
	if c.Price.Timeout <= 0 {
		return fmt.Errorf("price.timeout must be positive")
	}

	return nil
}

// splitList accepts both yaml lists and comma separated env values
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
