// Package primitives implements the hashing, address-derivation, and
// signature primitives the rest of the module treats as fixed-contract
// collaborators: SHA-256, double-SHA-256, hash160, and RSA sign/verify.
// Built on the standard library plus golang.org/x/crypto/ripemd160 for the
// one primitive the standard library lacks.
package primitives

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required primitive, see DESIGN.md
)

// SHA256Hex returns the hex-encoded SHA-256 digest of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DoubleSHA256Hex returns SHA256Hex(SHA256Hex(s)), the "double hash" used
// throughout the chain for transaction and block header hashing. The
// second pass re-hashes the hex *text* of the first digest, not its raw
// bytes.
func DoubleSHA256Hex(s string) string {
	return SHA256Hex(SHA256Hex(s))
}

// Hash160Hex returns RIPEMD160(SHA256(s)) as hex text, hashing over the hex
// text of the SHA-256 digest.
func Hash160Hex(s string) string {
	shaHex := SHA256Hex(s)
	r := ripemd160.New()
	r.Write([]byte(shaHex))
	return hex.EncodeToString(r.Sum(nil))
}
