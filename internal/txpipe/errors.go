package txpipe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Alecsis/py-chain/internal/ledger"
)

// Code is the machine-readable failure kind carried in a Result.
type Code string

const (
	CodeMalformedRequest    Code = "malformed_request"
	CodeBadSequenceNumber   Code = "bad_sequence_number"
	CodeBadSignature        Code = "bad_signature"
	CodeUnknownRoute        Code = "unknown_route"
	CodeUnknownAddress      Code = "unknown_address"
	CodeInsufficientBalance Code = "insufficient_balance"
	CodeInvalidAmount       Code = "invalid_amount"
	CodeSupplyExceeded      Code = "supply_exceeded"
	CodeInternal            Code = "internal"
)

var (
	ErrMalformedRequest  = errors.New("malformed request")
	ErrBadSequenceNumber = errors.New("bad sequence number")
	ErrBadSignature      = errors.New("bad signature")
	ErrUnknownRoute      = errors.New("unknown route")
)

// SequenceError reports the sequence number the ledger expected.
type SequenceError struct {
	Expected uint64
	Got      uint64
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("sequence number is incorrect, should be %d", e.Expected)
}

func (e *SequenceError) Unwrap() error { return ErrBadSequenceNumber }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedRequest}, args...)...)
}

// classify maps any error produced while handling a request onto a code and
// a client-facing message.
func classify(err error) (Code, string) {
	switch {
	case sequenceError(err) != nil:
		return CodeBadSequenceNumber, sequenceError(err).Error()
	case errors.Is(err, ErrMalformedRequest):
		return CodeMalformedRequest, err.Error()
	case errors.Is(err, ErrBadSignature):
		return CodeBadSignature, err.Error()
	case errors.Is(err, ErrUnknownRoute):
		return CodeUnknownRoute, err.Error()
	case errors.Is(err, ledger.ErrUnknownAddress):
		return CodeUnknownAddress, trimLedgerPrefix(err)
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return CodeInsufficientBalance, trimLedgerPrefix(err)
	case errors.Is(err, ledger.ErrInvalidAmount):
		return CodeInvalidAmount, trimLedgerPrefix(err)
	case errors.Is(err, ledger.ErrSupplyExceeded):
		return CodeSupplyExceeded, trimLedgerPrefix(err)
	default:
		return CodeInternal, "internal error"
	}
}

func trimLedgerPrefix(err error) string {
	return strings.Replace(err.Error(), "ledger: ", "", 1)
}

func sequenceError(err error) *SequenceError {
	var se *SequenceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
