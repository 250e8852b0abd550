package sign

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	scalarLen = 32
	// SignatureLen is the hex length of an r || s signature.
	SignatureLen = 4 * scalarLen
)

// Sign signs the canonical encoding of (header, payload). The signature is
// deterministic (RFC6979) and always low-S.
func Sign(key *PrivateKey, header, payload []byte) (string, error) {
	if key == nil || key.key == nil {
		return "", ErrInvalidKey
	}
	digest, err := Digest(header, payload)
	if err != nil {
		return "", err
	}
	// compact form is [recovery byte || r || s]
	compact := ecdsa.SignCompact(key.key, digest, false)
	return hex.EncodeToString(compact[1:]), nil
}

// Verify reports whether signature was produced by the key behind address
// over (header, payload). Every decoding problem is a plain false.
func Verify(address string, header, payload []byte, signature string) bool {
	pub, err := ParseAddress(address)
	if err != nil {
		return false
	}
	sig, err := parseSignature(signature)
	if err != nil {
		return false
	}
	digest, err := Digest(header, payload)
	if err != nil {
		return false
	}
	return sig.Verify(digest, pub)
}

func parseSignature(s string) (*ecdsa.Signature, error) {
	if len(s) != SignatureLen {
		return nil, ErrInvalidSigLen
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidSigValue
	}

	var r, sv secp256k1.ModNScalar
	if overflow := r.SetByteSlice(raw[:scalarLen]); overflow || r.IsZero() {
		return nil, ErrInvalidSigValue
	}
	if overflow := sv.SetByteSlice(raw[scalarLen:]); overflow || sv.IsZero() {
		return nil, ErrInvalidSigValue
	}
	// high-S twins of valid signatures are not accepted
	if sv.IsOverHalfOrder() {
		return nil, ErrInvalidSigValue
	}
	return ecdsa.NewSignature(&r, &sv), nil
}
