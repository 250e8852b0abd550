package config

import (
	"github.com/Alecsis/py-chain/internal/ledger"
	"github.com/Alecsis/py-chain/internal/txpipe"
)

func (cfg NodeConfig) Allocations() []ledger.Allocation {
	out := make([]ledger.Allocation, 0, len(cfg.Genesis))
	for _, entry := range cfg.Genesis {
		out = append(out, ledger.Allocation{Address: entry.Address, Amount: entry.Amount})
	}
	return out
}

func (cfg NodeConfig) PipelineOptions() txpipe.Options {
	return txpipe.Options{
		FaucetAddress:  cfg.FaucetAddress,
		FaucetLimit:    cfg.FaucetLimit,
		UnknownBalance: txpipe.UnknownBalance(cfg.UnknownBalance),
	}
}

// NewLedger builds ledger state from cfg and applies its genesis allocation.
func (cfg NodeConfig) NewLedger() (*ledger.State, error) {
	precision := DefaultPrecision
	if cfg.Precision != nil {
		precision = *cfg.Precision
	}
	state, err := ledger.New(cfg.MaxSupply, precision)
	if err != nil {
		return nil, err
	}
	if err := state.ApplyGenesis(cfg.Allocations()); err != nil {
		return nil, err
	}
	return state, nil
}
