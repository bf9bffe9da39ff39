package script

import (
	"testing"

	"github.com/kalymgr/tlcd/primitives"
)

func TestP2PKHRoundTrip(t *testing.T) {
	acct, err := primitives.NewAccount()
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	txHash := primitives.DoubleSHA256Hex("a transaction")
	sig, err := acct.Sign(txHash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	scriptSig := "<" + sig + "> <" + acct.PublicKeyHex() + ">"
	scriptPubKey := "dup hash160 <" + acct.PubKeyHash() + "> equalVerify checkSig"

	ok, err := Eval(scriptSig, scriptPubKey, txHash)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !ok {
		t.Fatalf("expected P2PKH script to evaluate true")
	}
}

func TestP2PKHWrongPubKeyHashFails(t *testing.T) {
	acct, err := primitives.NewAccount()
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	txHash := primitives.DoubleSHA256Hex("a transaction")
	sig, err := acct.Sign(txHash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	scriptSig := "<" + sig + "> <" + acct.PublicKeyHex() + ">"
	scriptPubKey := "dup hash160 <deadbeef> equalVerify checkSig"

	ok, err := Eval(scriptSig, scriptPubKey, txHash)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatched pubKeyHash to fail")
	}
}

func TestP2PKHWrongSignatureFails(t *testing.T) {
	acct, err := primitives.NewAccount()
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	other, err := primitives.NewAccount()
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	txHash := primitives.DoubleSHA256Hex("a transaction")
	sig, err := other.Sign(txHash) // signed by the wrong key

	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	scriptSig := "<" + sig + "> <" + acct.PublicKeyHex() + ">"
	scriptPubKey := "dup hash160 <" + acct.PubKeyHash() + "> equalVerify checkSig"

	ok, err := Eval(scriptSig, scriptPubKey, txHash)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if ok {
		t.Fatalf("expected signature from the wrong key to fail checkSig")
	}
}

func TestUnknownOperatorFailsParse(t *testing.T) {
	_, err := Eval("<sig> <pubkey>", "dup nonsenseOp equalVerify checkSig", "hash")
	if err == nil {
		t.Fatalf("expected unknown operator to be rejected")
	}
}

func TestOperatorsOnEmptyStackAreNoOps(t *testing.T) {
	ok, err := Eval("", "drop dup hash160 op_2 op_3", "hash")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	// after op_2, op_3 the stack is ["2","3"], top is "3" -> truthy
	if !ok {
		t.Fatalf("expected truthy result from literal pushes")
	}
}

func TestEqualPushesBoolean(t *testing.T) {
	ok, err := Eval("<a> <a>", "equal", "hash")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !ok {
		t.Fatalf("expected <a> <a> equal to accept")
	}

	ok, err = Eval("<a> <b>", "equal", "hash")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if ok {
		t.Fatalf("expected <a> <b> equal to reject")
	}
}

func TestEvalIsDeterministic(t *testing.T) {
	scriptSig := "<sig> <pubkey>"
	scriptPubKey := "dup hash160 <abc> equalVerify checkSig"
	r1, err1 := Eval(scriptSig, scriptPubKey, "txhash")
	r2, err2 := Eval(scriptSig, scriptPubKey, "txhash")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if r1 != r2 {
		t.Fatalf("Eval is not deterministic: %v != %v", r1, r2)
	}
}
