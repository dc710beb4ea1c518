package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"oregrid/internal/domain"
)

// Config is the complete agent configuration.
type Config struct {
	RPC        RPCConfig        `yaml:"rpc"`
	Wallet     WalletConfig     `yaml:"wallet"`
	Martingale MartingaleConfig `yaml:"martingale"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Discord    DiscordConfig    `yaml:"discord"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// RPCConfig points at the ledger RPC endpoint. The push subscription derives
// its websocket endpoint from the same URL.
type RPCConfig struct {
	URL string `yaml:"url"`
}

// WalletConfig holds the signing key. Prefer the WALLET_PRIVATE_KEY env var
// over committing the key to the YAML file.
type WalletConfig struct {
	PrivateKey string `yaml:"private_key"`
}

// MartingaleConfig controls the stake progression.
type MartingaleConfig struct {
	BaseBetSol            float64 `yaml:"base_bet_sol"`
	Multiplier            float64 `yaml:"multiplier"`
	MaxConsecutiveLosses  int     `yaml:"max_consecutive_losses"`
	WarnConsecutiveLosses int     `yaml:"warn_consecutive_losses"`
	BlocksPerBet          int     `yaml:"blocks_per_bet"`
}

// BaseBetLamports converts the base stake to lamports.
func (m MartingaleConfig) BaseBetLamports() uint64 {
	return uint64(m.BaseBetSol * domain.LamportsPerSol)
}

// MonitoringConfig controls safety thresholds.
type MonitoringConfig struct {
	MinBalanceSol         float64 `yaml:"min_balance_sol"`
	AutoClaimSolThreshold float64 `yaml:"auto_claim_sol_threshold"`
}

// MinBalanceLamports converts the balance floor to lamports.
func (m MonitoringConfig) MinBalanceLamports() uint64 {
	return uint64(m.MinBalanceSol * domain.LamportsPerSol)
}

// AutoClaimThresholdLamports converts the claim threshold to lamports.
func (m MonitoringConfig) AutoClaimThresholdLamports() uint64 {
	return uint64(m.AutoClaimSolThreshold * domain.LamportsPerSol)
}

// DiscordConfig holds the outbound webhook channels; empty URLs disable them.
type DiscordConfig struct {
	WebhookURL      string `yaml:"webhook_url"`
	StatsWebhookURL string `yaml:"stats_webhook_url"`
	WarnWebhookURL  string `yaml:"warn_webhook_url"`
	StatsInterval   int    `yaml:"stats_interval"`
}

// StorageConfig controls round-history persistence. An empty DSN disables it.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config and the .env file if present. Env vars override
// the corresponding YAML keys.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.RPC.URL = v
	}
	if v := os.Getenv("WALLET_PRIVATE_KEY"); v != "" {
		cfg.Wallet.PrivateKey = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Discord.WebhookURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Martingale.Multiplier == 0 {
		cfg.Martingale.Multiplier = 2.0
	}
	if cfg.Martingale.WarnConsecutiveLosses == 0 {
		cfg.Martingale.WarnConsecutiveLosses = cfg.Martingale.MaxConsecutiveLosses
	}
	if cfg.Monitoring.AutoClaimSolThreshold == 0 {
		cfg.Monitoring.AutoClaimSolThreshold = 0.1
	}
	if cfg.Discord.StatsInterval == 0 {
		cfg.Discord.StatsInterval = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.RPC.URL == "" {
		return fmt.Errorf("rpc.url is required")
	}
	if c.Wallet.PrivateKey == "" {
		return fmt.Errorf("wallet.private_key is required (or set WALLET_PRIVATE_KEY)")
	}
	if c.Martingale.BaseBetSol <= 0 {
		return fmt.Errorf("martingale.base_bet_sol must be positive")
	}
	if c.Martingale.Multiplier <= 1 {
		return fmt.Errorf("martingale.multiplier must be greater than 1")
	}
	if c.Martingale.BlocksPerBet < 1 || c.Martingale.BlocksPerBet > domain.TotalBlocks {
		return fmt.Errorf("martingale.blocks_per_bet must be between 1 and %d", domain.TotalBlocks)
	}
	if c.Martingale.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("martingale.max_consecutive_losses must be at least 1")
	}
	if c.Martingale.WarnConsecutiveLosses > c.Martingale.MaxConsecutiveLosses {
		return fmt.Errorf("martingale.warn_consecutive_losses must be <= max_consecutive_losses")
	}
	return nil
}
