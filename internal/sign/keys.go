package sign

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// AddressLen is the hex length of an address: X || Y, 32 bytes each.
	AddressLen = 128

	pointLen   = 64
	privKeyLen = 32

	uncompressedPrefix byte = 0x04
)

var (
	ErrNotObject       = errors.New("sign: not a json object")
	ErrInvalidAddress  = errors.New("sign: invalid address")
	ErrInvalidKey      = errors.New("sign: invalid private key")
	ErrInvalidKeyFile  = errors.New("sign: invalid key file")
	ErrInvalidSigLen   = errors.New("sign: invalid signature length")
	ErrInvalidSigValue = errors.New("sign: invalid signature value")
)

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a fresh random key.
func GenerateKey() (*PrivateKey, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: k}, nil
}

// ParsePrivateKeyHex imports a 32-byte hex private key.
func ParsePrivateKeyHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil || len(b) != privKeyLen {
		return nil, ErrInvalidKey
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, ErrInvalidKey
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&scalar)}, nil
}

// Hex exports the private key.
func (k *PrivateKey) Hex() string {
	return hex.EncodeToString(k.key.Serialize())
}

// Address is the account identifier owned by this key.
func (k *PrivateKey) Address() string {
	return AddressOf(k.key.PubKey())
}

// AddressOf encodes a public key as an address: hex of the raw point bytes
// without the uncompressed-point prefix.
func AddressOf(pub *secp256k1.PublicKey) string {
	return hex.EncodeToString(pub.SerializeUncompressed()[1:])
}

// ValidAddress reports whether s has the address shape: 128 lowercase hex
// characters. It does not touch the curve; ParseAddress does.
func ValidAddress(s string) bool {
	if len(s) != AddressLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}

// ParseAddress decodes an address into a public key on the curve.
func ParseAddress(s string) (*secp256k1.PublicKey, error) {
	if !ValidAddress(s) {
		return nil, ErrInvalidAddress
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != pointLen {
		return nil, ErrInvalidAddress
	}
	full := make([]byte, 0, pointLen+1)
	full = append(full, uncompressedPrefix)
	full = append(full, raw...)
	pub, err := secp256k1.ParsePubKey(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return pub, nil
}

// LoadOrCreateKey reads a hex private key from path, generating and storing a
// new one with 0600 permissions when the file is missing or empty.
func LoadOrCreateKey(path string) (*PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		k, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(k.Hex()+"\n"), 0o600); err != nil {
			return nil, err
		}
		return k, nil
	}

	k, err := ParsePrivateKeyHex(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", ErrInvalidKeyFile, path)
	}
	return k, nil
}
