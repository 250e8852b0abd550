// Package txpipe authenticates signed envelopes and applies them to the
// ledger.
//
// A transaction moves through, in order and stopping at the first failure:
// - structural checks on header, payload route and signature presence
// - sequence check against the signer's next expected sequence
// - signature check over the payload bytes exactly as received
// - strict per-route payload decoding and dispatch
// - ledger mutation, then sequence advance
//
// Everything from the sequence check on runs inside one ledger critical
// section. Queries skip authentication and only read.
package txpipe

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alecsis/py-chain/internal/ledger"
	"github.com/Alecsis/py-chain/internal/observability"
	"github.com/Alecsis/py-chain/internal/sign"
)

// Ledger is what the pipeline needs from ledger state.
type Ledger interface {
	Atomically(fn func(ledger.Book) error) error
	Balance(address string) (int64, bool)
	NextSequence(address string) uint64
	TotalSupply() int64
	MaxSupply() int64
	Precision() int
}

var _ Ledger = (*ledger.State)(nil)

// UnknownBalance selects how a balance query for an unseen address answers.
type UnknownBalance string

const (
	UnknownBalanceNull UnknownBalance = "null"
	UnknownBalanceZero UnknownBalance = "zero"
)

const DefaultFaucetAddress = "faucet"

type Options struct {
	// FaucetAddress is the account the faucet route pays from.
	FaucetAddress string
	// FaucetLimit caps a single faucet request; zero means no cap.
	FaucetLimit    int64
	UnknownBalance UnknownBalance
}

func (o Options) withDefaults() Options {
	if o.FaucetAddress == "" {
		o.FaucetAddress = DefaultFaucetAddress
	}
	if o.UnknownBalance == "" {
		o.UnknownBalance = UnknownBalanceNull
	}
	return o
}

// Pipeline is stateless apart from its ledger handle and options.
type Pipeline struct {
	ledger Ledger
	opts   Options
}

func New(l Ledger, opts Options) *Pipeline {
	return &Pipeline{ledger: l, opts: opts.withDefaults()}
}

func (p *Pipeline) Options() Options { return p.opts }

// Submit decodes a raw envelope and processes it.
func (p *Pipeline) Submit(raw []byte) Result {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		observability.RecordTransaction("", string(CodeMalformedRequest), 0)
		return failure(err)
	}
	return p.SubmitEnvelope(env)
}

// SubmitEnvelope authenticates env and applies it. It never panics on user
// input; every rejection comes back as a failed Result.
func (p *Pipeline) SubmitEnvelope(env Envelope) Result {
	start := time.Now()
	tx, err := env.open()
	if err == nil {
		err = p.ledger.Atomically(func(b ledger.Book) error {
			return p.apply(b, env, tx)
		})
	}

	res := ok()
	if err != nil {
		res = failure(err)
	}
	observability.RecordTransaction(tx.Route, string(res.Code), time.Since(start))
	if res.Success {
		observability.SetTotalSupply(p.ledger.TotalSupply())
	}

	event := log.Debug()
	if res.Success {
		event = log.Info()
	}
	event.
		Str("route", tx.Route).
		Str("sender", tx.Sender).
		Uint64("sequence", tx.Sequence).
		Bool("success", res.Success).
		Str("code", string(res.Code)).
		Msg("transaction")
	return res
}

func (p *Pipeline) apply(b ledger.Book, env Envelope, tx opened) error {
	if expected := b.NextSequence(tx.Sender); tx.Sequence != expected {
		return &SequenceError{Expected: expected, Got: tx.Sequence}
	}
	if !sign.Verify(tx.Sender, env.Header, env.Payload, env.Signature) {
		return ErrBadSignature
	}

	req, err := decodeRequest(tx.Route, env.Payload)
	if err != nil {
		return err
	}
	if err := p.dispatch(b, tx.Sender, req); err != nil {
		return err
	}
	b.AdvanceSequence(tx.Sender)
	return nil
}

func (p *Pipeline) dispatch(b ledger.Book, sender string, req Request) error {
	switch r := req.(type) {
	case Transfer:
		if _, err := sign.ParseAddress(r.To); err != nil {
			return malformed("recipient is not a valid address")
		}
		return b.Transfer(sender, r.To, r.Amount)
	case Faucet:
		if p.opts.FaucetLimit > 0 && r.Amount > p.opts.FaucetLimit {
			return fmt.Errorf("faucet limit is %d: %w", p.opts.FaucetLimit, ledger.ErrInvalidAmount)
		}
		err := b.Transfer(p.opts.FaucetAddress, sender, r.Amount)
		if errors.Is(err, ledger.ErrUnknownAddress) {
			return fmt.Errorf("faucet is empty: %w", ledger.ErrInsufficientBalance)
		}
		return err
	case Burn:
		return b.Burn(sender, r.Amount)
	default:
		return ErrUnknownRoute
	}
}
