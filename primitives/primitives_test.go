package primitives

import "testing"

func TestDoubleSHA256HexDeterministic(t *testing.T) {
	a := DoubleSHA256Hex("hello")
	b := DoubleSHA256Hex("hello")
	if a != b {
		t.Fatalf("DoubleSHA256Hex is not deterministic: %s != %s", a, b)
	}
	if a == SHA256Hex("hello") {
		t.Fatalf("double hash should differ from single hash")
	}
}

func TestHash160HexLength(t *testing.T) {
	h := Hash160Hex("some public key material")
	// RIPEMD-160 digests are 20 bytes, 40 hex chars.
	if len(h) != 40 {
		t.Fatalf("expected 40 hex chars, got %d (%s)", len(h), h)
	}
}

func TestAccountAddressDerivation(t *testing.T) {
	acct, err := NewAccount()
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	if acct.Address() == "" || acct.PubKeyHash() == "" {
		t.Fatalf("expected non-empty address and pubKeyHash")
	}
	if acct.Address() == acct.PubKeyHash() {
		t.Fatalf("address and pubKeyHash should differ (address includes version byte)")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	acct, err := NewAccount()
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	txHash := DoubleSHA256Hex("some canonical transaction text")
	sig, err := acct.Sign(txHash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !VerifySignature(acct.PublicKeyHex(), txHash, sig) {
		t.Fatalf("expected signature to verify")
	}
	if VerifySignature(acct.PublicKeyHex(), txHash+"tampered", sig) {
		t.Fatalf("signature should not verify against a different hash")
	}
}

func TestSignVerifyWrongKeyFails(t *testing.T) {
	a, err := NewAccount()
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	b, err := NewAccount()
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	txHash := DoubleSHA256Hex("tx")
	sig, err := a.Sign(txHash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if VerifySignature(b.PublicKeyHex(), txHash, sig) {
		t.Fatalf("signature should not verify under a different account's key")
	}
}
