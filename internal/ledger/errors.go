package ledger

import "errors"

var (
	ErrUnknownAddress      = errors.New("ledger: address does not exist")
	ErrInsufficientBalance = errors.New("ledger: balance not enough")
	ErrInvalidAmount       = errors.New("ledger: amount must be positive")
	ErrSupplyExceeded      = errors.New("ledger: max supply exceeded")
	ErrInvalidConfig       = errors.New("ledger: invalid configuration")
)
