// Package crypto provides request signature verification and operator API
// key hashing for the marketplace HTTP surface.
package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ErrBadSignature is returned when a signature does not decode or does not
// recover to a valid public key.
var ErrBadSignature = errors.New("crypto: bad signature")

// ErrStaleTimestamp is returned when a signed timestamp falls outside the
// accepted clock skew window.
var ErrStaleTimestamp = errors.New("crypto: stale timestamp")

// Verifier recovers the caller address from EIP-191 personal-sign signatures
// over request metadata. Every mutating request carries a timestamp, and the
// signed message binds it to the method and path so a captured signature
// cannot be replayed elsewhere or later.
type Verifier struct {
	// MaxSkew bounds how far a signed timestamp may drift from server time.
	MaxSkew time.Duration

	nowFn func() time.Time
}

// NewVerifier creates a Verifier with the given clock skew bound.
func NewVerifier(maxSkew time.Duration) *Verifier {
	return &Verifier{MaxSkew: maxSkew, nowFn: time.Now}
}

// AuthMessage builds the canonical message that callers sign:
// "{timestamp}{method}{path}".
func AuthMessage(timestamp, method, path string) string {
	return timestamp + method + path
}

// Verify checks the timestamp freshness, recovers the signer address from the
// signature, and returns it. The signature is the hex-encoded 65-byte
// personal-sign output, with or without a 0x prefix.
func (v *Verifier) Verify(timestamp, method, path, sigHex string) (common.Address, error) {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: parse timestamp %q: %w", timestamp, err)
	}

	skew := v.nowFn().Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.MaxSkew {
		return common.Address{}, ErrStaleTimestamp
	}

	return RecoverAddress(AuthMessage(timestamp, method, path), sigHex)
}

// RecoverAddress recovers the Ethereum address that produced an EIP-191
// personal-sign signature over message.
func RecoverAddress(message, sigHex string) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: decode signature: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, ErrBadSignature
	}

	// Normalize v from {27,28} to the {0,1} go-ethereum expects.
	recSig := make([]byte, 65)
	copy(recSig, sig)
	if recSig[64] >= 27 {
		recSig[64] -= 27
	}
	if recSig[64] > 1 {
		return common.Address{}, ErrBadSignature
	}

	pub, err := ethcrypto.SigToPub(personalHash(message), recSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: recover public key: %w", err)
	}

	return ethcrypto.PubkeyToAddress(*pub), nil
}

// SignMessage produces an EIP-191 personal-sign signature over message with
// the given hex-encoded secp256k1 private key. The returned signature uses
// v in {27,28} and carries a 0x prefix.
func SignMessage(privateKeyHex, message string) (string, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("crypto: invalid private key: %w", err)
	}

	sig, err := ethcrypto.Sign(personalHash(message), pk)
	if err != nil {
		return "", fmt.Errorf("crypto: sign: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}

	return "0x" + hex.EncodeToString(sig), nil
}

// AddressOf returns the Ethereum address for a hex-encoded private key.
func AddressOf(privateKeyHex string) (common.Address, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(pk.PublicKey), nil
}

// personalHash computes the EIP-191 digest:
//
//	keccak256("\x19Ethereum Signed Message:\n" || len(message) || message)
func personalHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return ethcrypto.Keccak256([]byte(prefixed))
}
