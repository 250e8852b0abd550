package sign

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ProtocolVersion identifies the canonical encoding below. Any change to
// separator, base64 alphabet or digest must bump it.
const ProtocolVersion = 1

const separator = '.'

// Canonicalize returns the bytes that are signed for a (header, payload) pair:
//
//	base64std(compact(header) || "." || compact(payload))
//
// Both parts must be JSON objects as received on the wire. Compaction only
// drops insignificant whitespace, so field order and values are preserved.
// Whitespace between tokens is therefore not covered by the signature:
// reformatting a signed part still verifies, while changing any other byte
// does not.
func Canonicalize(header, payload []byte) ([]byte, error) {
	h, err := compactObject(header)
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrNotObject, err)
	}
	p, err := compactObject(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrNotObject, err)
	}

	raw := make([]byte, 0, len(h)+1+len(p))
	raw = append(raw, h...)
	raw = append(raw, separator)
	raw = append(raw, p...)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// Digest is the 32-byte message hash fed to ECDSA.
func Digest(header, payload []byte) ([]byte, error) {
	msg, err := Canonicalize(header, payload)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(msg)
	return sum[:], nil
}

func compactObject(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, in); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if len(out) < 2 || out[0] != '{' || out[len(out)-1] != '}' {
		return nil, fmt.Errorf("not an object")
	}
	return out, nil
}
