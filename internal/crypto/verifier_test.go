package crypto

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

// Well-known throwaway key for deterministic tests.
const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSignAndRecover(t *testing.T) {
	addr, err := AddressOf(testKeyHex)
	if err != nil {
		t.Fatalf("AddressOf: %v", err)
	}

	msg := AuthMessage("1700000000", "POST", "/v1/properties")
	sig, err := SignMessage(testKeyHex, msg)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}

	got, err := RecoverAddress(msg, sig)
	if err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	if got != addr {
		t.Errorf("recovered %s, want %s", got.Hex(), addr.Hex())
	}

	// A different message must not recover the same address.
	other, err := RecoverAddress(AuthMessage("1700000000", "POST", "/v1/auctions"), sig)
	if err == nil && other == addr {
		t.Error("signature verified against a different message")
	}
}

func TestVerifierSkew(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := NewVerifier(30 * time.Second)
	v.nowFn = func() time.Time { return now }

	fresh := strconv.FormatInt(now.Unix()-5, 10)
	msg := AuthMessage(fresh, "POST", "/v1/properties")
	sig, err := SignMessage(testKeyHex, msg)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	if _, err := v.Verify(fresh, "POST", "/v1/properties", sig); err != nil {
		t.Fatalf("Verify fresh: %v", err)
	}

	stale := strconv.FormatInt(now.Unix()-120, 10)
	staleSig, err := SignMessage(testKeyHex, AuthMessage(stale, "POST", "/v1/properties"))
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	if _, err := v.Verify(stale, "POST", "/v1/properties", staleSig); !errors.Is(err, ErrStaleTimestamp) {
		t.Errorf("expected ErrStaleTimestamp, got %v", err)
	}
}

func TestRecoverRejectsMalformed(t *testing.T) {
	if _, err := RecoverAddress("msg", "0xdeadbeef"); err == nil {
		t.Error("short signature accepted")
	}
	if _, err := RecoverAddress("msg", "zz"); err == nil {
		t.Error("non-hex signature accepted")
	}
}

func TestAPIKeyHashRoundTrip(t *testing.T) {
	hash, err := HashAPIKey("super-secret-ops-key")
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}

	if !CheckAPIKey("super-secret-ops-key", hash) {
		t.Error("correct key rejected")
	}
	if CheckAPIKey("wrong-key", hash) {
		t.Error("wrong key accepted")
	}
	if CheckAPIKey("super-secret-ops-key", "not-a-hash") {
		t.Error("malformed stored hash accepted")
	}
}
