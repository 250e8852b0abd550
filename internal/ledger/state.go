// Package ledger holds the authoritative account state: balances in integer
// minor units and the next expected sequence number per address.
//
// Invariants kept by every mutation:
//   - no stored balance is <= 0; zero and absent are the same thing
//   - total supply equals the sum of balances and never exceeds max supply
//   - sequences only move forward, one step per applied transaction
package ledger

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Book is the set of operations over ledger state. State implements it with
// locking; the view handed to Atomically implements it without.
type Book interface {
	Mint(address string, amount int64) error
	Burn(address string, amount int64) error
	Transfer(sender, recipient string, amount int64) error
	Balance(address string) (int64, bool)
	NextSequence(address string) uint64
	AdvanceSequence(address string)
}

// State is an in-memory ledger safe for concurrent use.
type State struct {
	mu        sync.RWMutex
	maxSupply int64
	precision int
	total     int64
	balances  map[string]int64
	sequences map[string]uint64
}

var _ Book = (*State)(nil)

// New builds an empty ledger. maxSupply and precision are fixed for its
// lifetime.
func New(maxSupply int64, precision int) (*State, error) {
	if maxSupply <= 0 {
		return nil, fmt.Errorf("%w: max_supply must be positive", ErrInvalidConfig)
	}
	if precision < 0 {
		return nil, fmt.Errorf("%w: precision must not be negative", ErrInvalidConfig)
	}
	return &State{
		maxSupply: maxSupply,
		precision: precision,
		balances:  make(map[string]int64),
		sequences: make(map[string]uint64),
	}, nil
}

func (s *State) MaxSupply() int64 { return s.maxSupply }

// Precision is the number of decimals a minor unit represents. It is
// informational; all arithmetic is on minor units.
func (s *State) Precision() int { return s.precision }

func (s *State) TotalSupply() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

func (s *State) Mint(address string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mint(address, amount)
}

func (s *State) Burn(address string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.burn(address, amount)
}

func (s *State) Transfer(sender, recipient string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfer(sender, recipient, amount)
}

// Balance returns the balance of address and whether it holds any funds.
// Unknown addresses are (0, false), not an error.
func (s *State) Balance(address string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[address]
	return b, ok
}

func (s *State) NextSequence(address string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sequences[address]
}

func (s *State) AdvanceSequence(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(address)
}

// Atomically runs fn with exclusive access to the ledger. Checks and
// mutations done through the provided Book cannot interleave with any other
// writer.
func (s *State) Atomically(fn func(Book) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(unlocked{s})
}

// Snapshot is a point-in-time copy of the ledger.
type Snapshot struct {
	TotalSupply int64             `json:"total_supply"`
	MaxSupply   int64             `json:"max_supply"`
	Precision   int               `json:"precision"`
	Balances    map[string]int64  `json:"balances"`
	Sequences   map[string]uint64 `json:"sequences"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balances := make(map[string]int64, len(s.balances))
	for k, v := range s.balances {
		balances[k] = v
	}
	sequences := make(map[string]uint64, len(s.sequences))
	for k, v := range s.sequences {
		sequences[k] = v
	}
	return Snapshot{
		TotalSupply: s.total,
		MaxSupply:   s.maxSupply,
		Precision:   s.precision,
		Balances:    balances,
		Sequences:   sequences,
	}
}

func (s *State) mint(address string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > s.maxSupply-s.total {
		return ErrSupplyExceeded
	}
	s.balances[address] += amount
	s.total += amount
	log.Info().Str("op", "mint").Str("address", address).Int64("amount", amount).Msg("ledger")
	return nil
}

func (s *State) burn(address string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	bal, ok := s.balances[address]
	if !ok {
		return ErrUnknownAddress
	}
	if amount > bal {
		return ErrInsufficientBalance
	}
	if s.total-amount < 0 {
		panic(fmt.Sprintf("ledger: total supply would go negative (total=%d burn=%d)", s.total, amount))
	}
	s.debit(address, bal, amount)
	s.total -= amount
	log.Info().Str("op", "burn").Str("address", address).Int64("amount", amount).Msg("ledger")
	return nil
}

func (s *State) transfer(sender, recipient string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	bal, ok := s.balances[sender]
	if !ok {
		return ErrUnknownAddress
	}
	if amount > bal {
		return ErrInsufficientBalance
	}
	if sender != recipient {
		s.debit(sender, bal, amount)
		s.balances[recipient] += amount
	}
	log.Info().
		Str("op", "transfer").
		Str("from", sender).
		Str("to", recipient).
		Int64("amount", amount).
		Msg("ledger")
	return nil
}

func (s *State) debit(address string, bal, amount int64) {
	if bal == amount {
		delete(s.balances, address)
		return
	}
	s.balances[address] = bal - amount
}

func (s *State) advance(address string) {
	s.sequences[address]++
}

// unlocked is the Book view used inside Atomically; the caller already holds
// the write lock.
type unlocked struct {
	s *State
}

func (u unlocked) Mint(address string, amount int64) error { return u.s.mint(address, amount) }
func (u unlocked) Burn(address string, amount int64) error { return u.s.burn(address, amount) }

func (u unlocked) Transfer(sender, recipient string, amount int64) error {
	return u.s.transfer(sender, recipient, amount)
}

func (u unlocked) Balance(address string) (int64, bool) {
	b, ok := u.s.balances[address]
	return b, ok
}

func (u unlocked) NextSequence(address string) uint64 { return u.s.sequences[address] }
func (u unlocked) AdvanceSequence(address string)     { u.s.advance(address) }
