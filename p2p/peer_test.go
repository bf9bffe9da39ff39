package p2p

import (
	"net"
	"testing"
	"time"

	"github.com/kalymgr/tlcd/config"
)

func testParams() config.NetworkParams {
	return config.MainNetParams
}

// loopbackPair opens a real TCP loopback connection rather than net.Pipe:
// the handshake has both sides writing back-to-back without draining in
// between, which deadlocks over net.Pipe's unbuffered, fully-synchronous
// Read/Write pairing but not over a kernel socket buffer.
func loopbackPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	acceptedCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			acceptedCh <- nil
			return
		}
		acceptedCh <- c
	}()

	dialed, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	accepted := <-acceptedCh
	if accepted == nil {
		t.Fatal("accept failed")
	}
	return dialed, accepted
}

func connectedPair(t *testing.T, aParams, bParams config.NetworkParams) (*Peer, *Peer, *PeerTable, *PeerTable) {
	t.Helper()
	connA, connB := loopbackPair(t)

	tableA := NewPeerTable("127.0.0.1_9001")
	tableB := NewPeerTable("127.0.0.1_9002")

	peerA := NewPeer(connA, aParams, tableA, "127.0.0.1_9001", Handlers{})
	peerB := NewPeer(connB, bParams, tableB, "127.0.0.1_9002", Handlers{})

	doneA := make(chan error, 1)
	doneB := make(chan error, 1)
	go func() { doneA <- peerA.Run() }()
	go func() { doneB <- peerB.Run() }()

	if err := peerA.InitiateHandshake(); err != nil {
		t.Fatalf("InitiateHandshake: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for peerA.State() != StateConnected || peerB.State() != StateConnected {
		select {
		case <-deadline:
			t.Fatalf("handshake did not reach CONNECTED: a=%s b=%s", peerA.State(), peerB.State())
		case <-time.After(5 * time.Millisecond):
		}
	}
	return peerA, peerB, tableA, tableB
}

func TestHandshakeAddsEachSideToTheOthersTable(t *testing.T) {
	params := testParams()
	peerA, peerB, tableA, tableB := connectedPair(t, params, params)
	defer peerA.Close()
	defer peerB.Close()

	if !tableA.Has("127.0.0.1_9002") {
		t.Fatalf("A's peer table missing B's endpoint")
	}
	if !tableB.Has("127.0.0.1_9001") {
		t.Fatalf("B's peer table missing A's endpoint")
	}
}

func TestHandshakeRejectsVersionMismatch(t *testing.T) {
	paramsA := testParams()
	paramsB := testParams()
	paramsB.ProtocolVersion = paramsA.ProtocolVersion + 1

	connA, connB := loopbackPair(t)
	tableA := NewPeerTable("127.0.0.1_9001")
	tableB := NewPeerTable("127.0.0.1_9002")
	peerA := NewPeer(connA, paramsA, tableA, "127.0.0.1_9001", Handlers{})
	peerB := NewPeer(connB, paramsB, tableB, "127.0.0.1_9002", Handlers{})

	doneA := make(chan error, 1)
	doneB := make(chan error, 1)
	go func() { doneA <- peerA.Run() }()
	go func() { doneB <- peerB.Run() }()

	_ = peerA.InitiateHandshake()

	select {
	case <-doneA:
	case <-time.After(2 * time.Second):
		t.Fatal("peerA did not close after version mismatch")
	}
	select {
	case <-doneB:
	case <-time.After(2 * time.Second):
		t.Fatal("peerB did not close after version mismatch")
	}

	if tableA.Has("127.0.0.1_9002") {
		t.Fatalf("A's peer table should not contain B after version mismatch")
	}
	if tableB.Has("127.0.0.1_9001") {
		t.Fatalf("B's peer table should not contain A after version mismatch")
	}
}

func TestPeerTableIdempotentUnderRepeatedAddr(t *testing.T) {
	table := NewPeerTable("self_1")
	endpoints := []string{"a_1", "b_2", "self_1", "a_1"}

	table.Union(endpoints)
	first := table.List()

	table.Union(endpoints)
	second := table.List()

	if len(first) != len(second) {
		t.Fatalf("applying the same addr twice changed the peer table: %v vs %v", first, second)
	}
	if table.Has("self_1") {
		t.Fatalf("peer table must never contain self")
	}
	if !table.Has("a_1") || !table.Has("b_2") {
		t.Fatalf("peer table missing expected entries: %v", second)
	}
}

func TestGetAddrReturnsPeerTable(t *testing.T) {
	params := testParams()
	connA, connB := loopbackPair(t)
	tableA := NewPeerTable("127.0.0.1_9001")
	tableB := NewPeerTable("127.0.0.1_9002")
	tableB.Add("other_3")

	received := make(chan []string, 1)
	peerA := NewPeer(connA, params, tableA, "127.0.0.1_9001", Handlers{})
	peerB := NewPeer(connB, params, tableB, "127.0.0.1_9002", Handlers{
		GetAddr: func() []string { return tableB.List() },
	})
	_ = received

	go peerA.Run()
	go peerB.Run()
	_ = peerA.InitiateHandshake()

	deadline := time.After(2 * time.Second)
	for peerA.State() != StateConnected {
		select {
		case <-deadline:
			t.Fatal("handshake never completed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := peerA.SendGetAddr(); err != nil {
		t.Fatalf("SendGetAddr: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if !tableA.Has("other_3") {
		t.Fatalf("expected A's table to learn B's peer after getaddr/addr")
	}
}
