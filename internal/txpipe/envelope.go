package txpipe

import (
	"encoding/json"

	"github.com/Alecsis/py-chain/internal/sign"
)

// Envelope is a signed transaction as it travels on the wire. Header and
// Payload are kept as the exact bytes received, since the signature covers
// them byte for byte.
type Envelope struct {
	Header    json.RawMessage `json:"header"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// Header identifies the signer and the claimed sequence number.
type Header struct {
	PublicKey  string `json:"public_key"`
	SequenceNb uint64 `json:"sequence_nb"`
}

type headerWire struct {
	PublicKey  *string `json:"public_key"`
	SequenceNb *uint64 `json:"sequence_nb"`
}

// opened is an envelope that passed the structural checks.
type opened struct {
	Sender   string
	Sequence uint64
	Route    string
}

// DecodeEnvelope parses a raw request body.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var probe struct {
		Header    json.RawMessage `json:"header"`
		Payload   json.RawMessage `json:"payload"`
		Signature *string         `json:"signature"`
	}
	if err := decodeStrict("envelope", raw, &probe, "header", "payload", "signature"); err != nil {
		return Envelope{}, err
	}
	if len(probe.Header) == 0 || len(probe.Payload) == 0 || probe.Signature == nil {
		return Envelope{}, malformed("missing header, payload or signature")
	}
	return Envelope{Header: probe.Header, Payload: probe.Payload, Signature: *probe.Signature}, nil
}

// open runs the structural checks: header fields present and well typed,
// signer shaped like an address, signature present, payload route present.
func (e Envelope) open() (opened, error) {
	if !isObject(e.Header) {
		return opened{}, malformed("header must be an object")
	}
	if e.Signature == "" {
		return opened{}, malformed("missing signature")
	}
	var h headerWire
	if err := decodeStrict("header", e.Header, &h, "public_key", "sequence_nb"); err != nil {
		return opened{}, err
	}
	if h.PublicKey == nil || h.SequenceNb == nil {
		return opened{}, malformed("missing public_key or sequence_nb")
	}
	if !sign.ValidAddress(*h.PublicKey) {
		return opened{}, ErrBadSignature
	}
	route, err := peekRoute(e.Payload)
	if err != nil {
		return opened{}, err
	}
	return opened{Sender: *h.PublicKey, Sequence: *h.SequenceNb, Route: route}, nil
}

// NewEnvelope builds and signs an envelope for req at the given sequence.
func NewEnvelope(key *sign.PrivateKey, sequence uint64, req Request) (Envelope, error) {
	header, err := json.Marshal(Header{PublicKey: key.Address(), SequenceNb: sequence})
	if err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Envelope{}, err
	}
	sig, err := sign.Sign(key, header, payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Header: header, Payload: payload, Signature: sig}, nil
}
