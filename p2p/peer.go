package p2p

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/kalymgr/tlcd/config"
	"github.com/kalymgr/tlcd/logs"
	"github.com/pkg/errors"
)

var log = logs.Get(logs.TagP2P)

// Handlers are the chain/peer-table callbacks a Peer invokes once CONNECTED.
// The node package supplies these; p2p itself knows nothing about the chain
// engine, keeping the two packages decoupled.
type Handlers struct {
	// GetAddr returns the endpoints to answer a GETADDR with.
	GetAddr func() []string
	// GetBlocks returns the inventory to answer a GETBLOCKS for headerHash
	// with. What an unrecognized headerHash yields is up to the callback;
	// the node package answers it with the blocks after the first one.
	GetBlocks func(headerHash string) []InventoryItem
	// GetData returns one encoded block payload per requested inventory
	// item, in order; an item with no matching block is skipped.
	GetData func(items []InventoryItem) []string
	// OnBlock is invoked once per inbound BLOCK message.
	OnBlock func(payload string)
	// OnInv is invoked with the inventory of an inbound INV message, before
	// the automatic GETDATA request it triggers. Callers that need to know
	// how many blocks to expect (e.g. a synchronous chain fetch) use this;
	// the automatic request itself does not depend on it.
	OnInv func(items []InventoryItem)
}

// Peer drives the version-handshake state machine and message dispatch for
// a single connection. One Peer exists per TCP connection, for its whole
// lifetime.
type Peer struct {
	params config.NetworkParams
	table  *PeerTable

	conn   net.Conn
	reader *bufio.Reader

	selfEndpoint string
	handlers     Handlers

	mu                sync.Mutex
	state             State
	remoteEndpoint    string
	inactivityCounter time.Duration
	lastPingPong      time.Time
	closed            bool
}

// NewPeer wraps conn in a fresh, unconnected Peer. selfEndpoint is this
// node's own "host_port" listening address, used for the self-connect
// guard and stamped into outbound VERSION payloads.
func NewPeer(conn net.Conn, params config.NetworkParams, table *PeerTable, selfEndpoint string, handlers Handlers) *Peer {
	return &Peer{
		params:       params,
		table:        table,
		conn:         conn,
		reader:       bufio.NewReader(conn),
		selfEndpoint: selfEndpoint,
		handlers:     handlers,
		state:        StateReadyToConnect,
		lastPingPong: time.Now(),
	}
}

// State returns the peer's current handshake state.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// RemoteEndpoint returns the peer's "host_port" endpoint once known (empty
// before the VERSION handshake completes).
func (p *Peer) RemoteEndpoint() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remoteEndpoint
}

// Connected reports whether the handshake has reached CONNECTED.
func (p *Peer) Connected() bool {
	return p.State() == StateConnected
}

// InitiateHandshake sends our VERSION and moves to WAITING_VERACK. Call this
// after constructing a Peer for an outbound dial; an inbound connection
// instead waits for the remote side's VERSION to arrive first.
func (p *Peer) InitiateHandshake() error {
	p.mu.Lock()
	if p.state != StateReadyToConnect {
		p.mu.Unlock()
		return errors.Errorf("p2p: cannot send version from state %s", p.state)
	}
	p.state = StateWaitingVerack
	p.mu.Unlock()
	return p.sendVersion()
}

func (p *Peer) sendVersion() error {
	host, port := splitEndpoint(p.selfEndpoint)
	return p.send(CmdVersion, VersionPayload{
		Version:   p.params.ProtocolVersion,
		Services:  0,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		IPAddress: host,
		Port:      port,
	})
}

// splitEndpoint splits a "host_port" endpoint string (the Endpoint format)
// back into its host and numeric port.
func splitEndpoint(endpoint string) (host string, port int) {
	i := strings.LastIndexByte(endpoint, '_')
	if i < 0 {
		return endpoint, 0
	}
	host = endpoint[:i]
	for _, r := range endpoint[i+1:] {
		if r < '0' || r > '9' {
			return host, 0
		}
		port = port*10 + int(r-'0')
	}
	return host, port
}

// Run reads and dispatches messages until the connection closes or a fatal
// protocol error occurs (version mismatch, self-connect). It blocks the
// calling goroutine for the connection's whole lifetime, matching the
// teacher's one-goroutine-per-connection shape.
func (p *Peer) Run() error {
	for {
		cmd, raw, err := readMessage(p.reader)
		if err != nil {
			p.markClosed()
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "p2p: reading message")
		}
		p.touch()
		if err := p.dispatch(cmd, raw); err != nil {
			p.markClosed()
			return err
		}
		if p.State() == StateReadyToConnect && p.isDropped() {
			return nil
		}
	}
}

func (p *Peer) isDropped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Peer) markClosed() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.conn.Close()
}

func (p *Peer) touch() {
	p.mu.Lock()
	p.inactivityCounter = 0
	p.mu.Unlock()
}

func (p *Peer) dispatch(cmd Command, raw json.RawMessage) error {
	switch cmd {
	case CmdVersion:
		return p.handleVersion(raw)
	case CmdVerAck:
		return p.handleVerAck()
	case CmdReject:
		return p.handleReject(raw)
	}

	if !p.Connected() {
		return errors.Errorf("p2p: command %d received before handshake completed", cmd)
	}

	switch cmd {
	case CmdGetAddr:
		return p.handleGetAddr()
	case CmdAddr:
		return p.handleAddr(raw)
	case CmdGetBlocks:
		return p.handleGetBlocks(raw)
	case CmdInv:
		return p.handleInv(raw)
	case CmdGetData:
		return p.handleGetData(raw)
	case CmdBlock:
		return p.handleBlock(raw)
	case CmdPing:
		return p.handlePing(raw)
	case CmdPong:
		return p.handlePong(raw)
	default:
		return p.reject(cmd, "unknown command")
	}
}

// handleVersion implements the WAITING_VERACK entry the diagram describes
// for "either direction": a node answers an inbound VERSION with its own
// VERSION followed by a VERACK (if it hasn't sent a VERSION yet) or with a
// VERACK alone (if it was the one waiting), after the version-mismatch and
// self-connect checks.
func (p *Peer) handleVersion(raw json.RawMessage) error {
	var payload VersionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errors.Wrap(err, "p2p: unmarshaling VERSION payload")
	}

	if payload.Version != p.params.ProtocolVersion {
		if err := p.send(CmdReject, RejectPayload{
			MsgRejectedType: "version",
			RejectCode:      RejectCodeDifVersion,
			Reason:          "protocol version mismatch",
		}); err != nil {
			log.Debugf("p2p: sending reject to %s: %v", p.RemoteEndpoint(), err)
		}
		p.markClosed()
		return errors.New("p2p: peer protocol version mismatch")
	}

	endpoint := Endpoint(payload.IPAddress, payload.Port)
	if endpoint == p.selfEndpoint {
		p.markClosed()
		return errors.New("p2p: refusing self-connection")
	}

	p.mu.Lock()
	already := p.state == StateWaitingVerack
	p.remoteEndpoint = endpoint
	p.mu.Unlock()

	p.table.Add(endpoint)

	if already {
		return p.send(CmdVerAck, VerAckPayload{})
	}

	p.mu.Lock()
	p.state = StateWaitingVerack
	p.mu.Unlock()
	if err := p.sendVersion(); err != nil {
		return err
	}
	return p.send(CmdVerAck, VerAckPayload{})
}

func (p *Peer) handleVerAck() error {
	p.mu.Lock()
	if p.state != StateWaitingVerack {
		p.mu.Unlock()
		return nil
	}
	p.state = StateConnected
	remote := p.remoteEndpoint
	p.mu.Unlock()
	log.Debugf("p2p: handshake complete with %s", remote)
	return nil
}

func (p *Peer) handleReject(raw json.RawMessage) error {
	var payload RejectPayload
	_ = json.Unmarshal(raw, &payload)
	log.Debugf("p2p: peer %s rejected %s: %s", p.RemoteEndpoint(), payload.MsgRejectedType, payload.Reason)
	p.mu.Lock()
	p.state = StateReadyToConnect
	p.mu.Unlock()
	p.markClosed()
	return nil
}

func (p *Peer) reject(cmd Command, reason string) error {
	return p.send(CmdReject, RejectPayload{RejectCode: 0, Reason: reason})
}

func (p *Peer) handleGetAddr() error {
	var endpoints []string
	if p.handlers.GetAddr != nil {
		endpoints = p.handlers.GetAddr()
	}
	return p.send(CmdAddr, AddrPayload{IPAddresses: endpoints, IPAddressCount: len(endpoints)})
}

func (p *Peer) handleAddr(raw json.RawMessage) error {
	var payload AddrPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errors.Wrap(err, "p2p: unmarshaling ADDR payload")
	}
	p.table.Union(payload.IPAddresses)
	return nil
}

func (p *Peer) handleGetBlocks(raw json.RawMessage) error {
	var payload GetBlocksPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errors.Wrap(err, "p2p: unmarshaling GETBLOCKS payload")
	}
	var items []InventoryItem
	if p.handlers.GetBlocks != nil {
		items = p.handlers.GetBlocks(payload.HeaderHash)
	}
	if len(items) > p.params.MaxBlocksPerInv {
		items = items[:p.params.MaxBlocksPerInv]
	}
	return p.send(CmdInv, InvPayload{Inventory: items, Count: len(items)})
}

// handleInv picks the first min(count, MaxBlocksPerGetData) entries and
// requests them, the requester side of block sync.
func (p *Peer) handleInv(raw json.RawMessage) error {
	var payload InvPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errors.Wrap(err, "p2p: unmarshaling INV payload")
	}
	if p.handlers.OnInv != nil {
		p.handlers.OnInv(payload.Inventory)
	}
	items := payload.Inventory
	if len(items) > p.params.MaxBlocksPerGetData {
		items = items[:p.params.MaxBlocksPerGetData]
	}
	if len(items) == 0 {
		return nil
	}
	return p.send(CmdGetData, InvPayload{Inventory: items, Count: len(items)})
}

func (p *Peer) handleGetData(raw json.RawMessage) error {
	var payload InvPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errors.Wrap(err, "p2p: unmarshaling GETDATA payload")
	}
	var blocks []string
	if p.handlers.GetData != nil {
		blocks = p.handlers.GetData(payload.Inventory)
	}
	for _, b := range blocks {
		if err := p.send(CmdBlock, BlockPayload{Payload: b}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Peer) handleBlock(raw json.RawMessage) error {
	var payload BlockPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errors.Wrap(err, "p2p: unmarshaling BLOCK payload")
	}
	if p.handlers.OnBlock != nil {
		p.handlers.OnBlock(payload.Payload)
	}
	return nil
}

func (p *Peer) handlePing(raw json.RawMessage) error {
	var payload PingPongPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errors.Wrap(err, "p2p: unmarshaling PING payload")
	}
	return p.send(CmdPong, payload)
}

func (p *Peer) handlePong(raw json.RawMessage) error {
	p.mu.Lock()
	p.lastPingPong = time.Now()
	p.mu.Unlock()
	return nil
}

// SendGetAddr asks the peer for its peer table.
func (p *Peer) SendGetAddr() error {
	return p.send(CmdGetAddr, GetAddrPayload{})
}

// SendGetBlocks starts block sync by asking for inventory after
// localTipHeaderHash.
func (p *Peer) SendGetBlocks(localTipHeaderHash string) error {
	return p.send(CmdGetBlocks, GetBlocksPayload{HeaderHash: localTipHeaderHash})
}

// SendPing sends a liveness probe carrying nonce; the peer is expected to
// echo it back in a PONG.
func (p *Peer) SendPing(nonce int) error {
	return p.send(CmdPing, PingPongPayload{Nonce: nonce})
}

// AdvanceInactivity adds interval to the connection's inactivity counter.
// The node package calls this once per TimeOfInactivityInterval tick.
func (p *Peer) AdvanceInactivity(interval time.Duration) {
	p.mu.Lock()
	p.inactivityCounter += interval
	p.mu.Unlock()
}

// CheckInactivity reports whether the connection should be pinged and/or
// closed, per the counter thresholds in params. Call once per
// CheckInactivityInterval tick.
func (p *Peer) CheckInactivity() (shouldPing, shouldClose bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inactivityCounter > p.params.InactivityCloseLimit {
		return false, true
	}
	if p.inactivityCounter > p.params.InactivityPingLimit {
		return true, false
	}
	return false, false
}

// Close closes the underlying connection. Safe to call more than once.
func (p *Peer) Close() error {
	p.markClosed()
	return nil
}

func (p *Peer) send(cmd Command, payload interface{}) error {
	return writeMessage(p.conn, cmd, payload)
}
