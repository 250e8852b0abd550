package ledger

import "fmt"

// Allocation is one genesis credit.
type Allocation struct {
	Address string
	Amount  int64
}

// ApplyGenesis mints every allocation in order. It stops at the first
// failure; callers are expected to discard the ledger in that case.
func (s *State) ApplyGenesis(allocs []Allocation) error {
	for i, a := range allocs {
		if a.Address == "" {
			return fmt.Errorf("genesis[%d]: %w", i, ErrUnknownAddress)
		}
		if err := s.Mint(a.Address, a.Amount); err != nil {
			return fmt.Errorf("genesis[%d] %s: %w", i, a.Address, err)
		}
	}
	return nil
}
