package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Alecsis/py-chain/internal/sign"
	"github.com/Alecsis/py-chain/internal/txpipe"
)

const (
	DefaultNodeID        = "ledgerd"
	DefaultNodeAddr      = ":9300"
	DefaultMaxSupply     = int64(1_000_000_000_000)
	DefaultPrecision     = 6
	DefaultFaucetBalance = int64(1_000_000)
)

type NodeConfig struct {
	ID             string         `toml:"id"`
	Addr           string         `toml:"addr"`
	CorsOrigins    []string       `toml:"cors_origins"`
	MaxSupply      int64          `toml:"max_supply"`
	Precision      *int           `toml:"precision"`
	FaucetAddress  string         `toml:"faucet_address"`
	FaucetLimit    int64          `toml:"faucet_limit"`
	UnknownBalance string         `toml:"unknown_balance"`
	MetricsToken   string         `toml:"metrics_token"`
	Genesis        []GenesisEntry `toml:"genesis"`
}

type GenesisEntry struct {
	Address string `toml:"address"`
	Amount  int64  `toml:"amount"`
}

// DefaultNodeConfig is what a node runs with when no file is given.
func DefaultNodeConfig() NodeConfig {
	var cfg NodeConfig
	applyNodeDefaults(&cfg)
	return cfg
}

func LoadNodeConfig(path string) (NodeConfig, error) {
	var cfg NodeConfig
	if err := loadToml(path, &cfg); err != nil {
		return NodeConfig{}, err
	}
	applyNodeDefaults(&cfg)
	if err := ValidateNodeConfig(cfg); err != nil {
		return NodeConfig{}, err
	}
	return cfg, nil
}

func applyNodeDefaults(cfg *NodeConfig) {
	if cfg.ID == "" {
		cfg.ID = DefaultNodeID
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultNodeAddr
	}
	if cfg.MaxSupply == 0 {
		cfg.MaxSupply = DefaultMaxSupply
	}
	if cfg.Precision == nil {
		precision := DefaultPrecision
		cfg.Precision = &precision
	}
	if cfg.FaucetAddress == "" {
		cfg.FaucetAddress = txpipe.DefaultFaucetAddress
	}
	if cfg.UnknownBalance == "" {
		cfg.UnknownBalance = string(txpipe.UnknownBalanceNull)
	}
	// a nil genesis list seeds the faucet; an explicit empty list seeds nothing
	if cfg.Genesis == nil {
		cfg.Genesis = []GenesisEntry{{Address: cfg.FaucetAddress, Amount: DefaultFaucetBalance}}
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateNodeConfig(cfg NodeConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("node config missing id")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("node config missing addr")
	}
	if cfg.MaxSupply <= 0 {
		return fmt.Errorf("node config max_supply must be positive")
	}
	if cfg.Precision == nil || *cfg.Precision < 0 {
		return fmt.Errorf("node config precision must be non-negative")
	}
	if strings.TrimSpace(cfg.FaucetAddress) == "" {
		return fmt.Errorf("node config missing faucet_address")
	}
	if cfg.FaucetLimit < 0 {
		return fmt.Errorf("node config faucet_limit must not be negative")
	}
	switch txpipe.UnknownBalance(cfg.UnknownBalance) {
	case txpipe.UnknownBalanceNull, txpipe.UnknownBalanceZero:
	default:
		return fmt.Errorf("node config unknown_balance must be %q or %q", txpipe.UnknownBalanceNull, txpipe.UnknownBalanceZero)
	}

	var total int64
	for i, entry := range cfg.Genesis {
		if err := ValidateGenesisEntry(entry, cfg.FaucetAddress); err != nil {
			return fmt.Errorf("genesis[%d] invalid: %w", i, err)
		}
		if entry.Amount > cfg.MaxSupply-total {
			return fmt.Errorf("genesis allocations exceed max_supply %d", cfg.MaxSupply)
		}
		total += entry.Amount
	}
	return nil
}

// ValidateGenesisEntry accepts either a protocol address or the faucet
// pseudo-account.
func ValidateGenesisEntry(entry GenesisEntry, faucetAddress string) error {
	if entry.Address != faucetAddress && !sign.ValidAddress(entry.Address) {
		return fmt.Errorf("address is not a valid address")
	}
	if entry.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}
