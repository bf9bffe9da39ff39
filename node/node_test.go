package node

import (
	"testing"
	"time"

	"github.com/kalymgr/tlcd/chain"
	"github.com/kalymgr/tlcd/config"
	"github.com/kalymgr/tlcd/primitives"
)

func mustAccount(t *testing.T) *primitives.Account {
	t.Helper()
	acc, err := primitives.NewAccount()
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	return acc
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestTwoNodesHandshakeAndExchangePeers(t *testing.T) {
	params := config.MainNetParams

	engineA := chain.NewEngine(params, mustAccount(t))
	engineB := chain.NewEngine(params, mustAccount(t))

	nodeA := New(params, engineA, "127.0.0.1", 19001)
	nodeB := New(params, engineB, "127.0.0.1", 19002)

	if err := nodeA.Listen("127.0.0.1:19001"); err != nil {
		t.Fatalf("nodeA.Listen: %v", err)
	}
	defer nodeA.Shutdown()
	if err := nodeB.Listen("127.0.0.1:19002"); err != nil {
		t.Fatalf("nodeB.Listen: %v", err)
	}
	defer nodeB.Shutdown()

	if err := nodeA.ConnectTo("127.0.0.1:19002"); err != nil {
		t.Fatalf("nodeA.ConnectTo: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(nodeA.Peers()) == 1 && len(nodeB.Peers()) == 1
	})

	if !nodeA.PeerTable().Has("127.0.0.1_19002") {
		t.Fatalf("nodeA's peer table missing nodeB")
	}
	if !nodeB.PeerTable().Has("127.0.0.1_19001") {
		t.Fatalf("nodeB's peer table missing nodeA")
	}
}

func TestSelfConnectRefused(t *testing.T) {
	params := config.MainNetParams
	engine := chain.NewEngine(params, mustAccount(t))
	n := New(params, engine, "127.0.0.1", 19003)

	if err := n.Listen("127.0.0.1:19003"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer n.Shutdown()

	if err := n.ConnectTo("127.0.0.1:19003"); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if len(n.Peers()) != 0 {
		t.Fatalf("self-connection should never be registered as a peer, got %d", len(n.Peers()))
	}
}
