// Package sign owns the message authentication contract.
//
// Ownership boundary:
// - canonical (header, payload) encoding
// - secp256k1 key handling and address derivation
// - signature production and verification
//
// An address is the hex encoding of the signer's raw public point (X || Y),
// so no lookup is needed to verify a transaction. Verification fails closed.
package sign
