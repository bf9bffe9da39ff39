package chain

import "testing"

type fakePeerSource struct {
	peers  []string
	chains map[string][]*Block
	errs   map[string]error
}

func (f *fakePeerSource) Peers() []string { return f.peers }

func (f *fakePeerSource) FetchChain(peer string) ([]*Block, error) {
	if err, ok := f.errs[peer]; ok {
		return nil, err
	}
	return f.chains[peer], nil
}

func TestResolveConflictsAdoptsLongerValidChain(t *testing.T) {
	creator := mustAccount(t)
	a := mustAccount(t)
	local := NewEngine(testParams(), creator)

	remote := NewEngine(testParams(), creator)
	if ok, err := remote.SubmitTransaction(creator, []Transfer{{Recipient: a.PubKeyHash(), Value: 10}}); err != nil || !ok {
		t.Fatalf("remote submit: ok=%v err=%v", ok, err)
	}
	if _, err := remote.ExecuteTransactions(); err != nil {
		t.Fatalf("remote execute: %v", err)
	}

	source := &fakePeerSource{
		peers:  []string{"peer1"},
		chains: map[string][]*Block{"peer1": remote.Chain()},
	}

	adopted, err := local.ResolveConflicts(source)
	if err != nil {
		t.Fatalf("resolveConflicts: %v", err)
	}
	if !adopted {
		t.Fatalf("expected the longer valid remote chain to be adopted")
	}
	if len(local.Chain()) != 2 {
		t.Fatalf("local chain length = %d, want 2", len(local.Chain()))
	}
	if !local.Validate() {
		t.Fatalf("adopted chain should validate")
	}
}

func TestResolveConflictsSkipsUnreachablePeer(t *testing.T) {
	creator := mustAccount(t)
	local := NewEngine(testParams(), creator)

	source := &fakePeerSource{
		peers: []string{"dead-peer"},
		errs:  map[string]error{"dead-peer": errConnRefused},
	}

	adopted, err := local.ResolveConflicts(source)
	if err != nil {
		t.Fatalf("resolveConflicts: %v", err)
	}
	if adopted {
		t.Fatalf("expected no adoption when every peer fetch fails")
	}
}

func TestResolveConflictsRejectsChainNotStrictlyLonger(t *testing.T) {
	creator := mustAccount(t)
	local := NewEngine(testParams(), creator)

	source := &fakePeerSource{
		peers:  []string{"peer1"},
		chains: map[string][]*Block{"peer1": local.Chain()},
	}

	adopted, err := local.ResolveConflicts(source)
	if err != nil {
		t.Fatalf("resolveConflicts: %v", err)
	}
	if adopted {
		t.Fatalf("expected no adoption when the candidate chain isn't strictly longer")
	}
}

var errConnRefused = &fakeErr{"connection refused"}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }
