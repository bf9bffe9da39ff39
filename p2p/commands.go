// Package p2p implements the wire protocol between node processes: message
// envelopes, the per-connection version handshake state machine, peer
// exchange, initial block download, and keepalive. A Peer reads and writes
// the net.Conn it is given; listening, dialing, and timers belong to the
// node package, which hands each connection to a Peer and drives its
// inactivity counters off a time.Ticker.
package p2p

// Command is the integer command code carried in every message envelope.
type Command int

// Data message commands (1-49). Only BLOCK, GETBLOCKS, GETDATA, and INV are
// implemented; the rest are reserved command space a future revision may
// fill in.
const (
	CmdBlock       Command = 1
	CmdGetBlocks   Command = 2
	CmdGetData     Command = 3
	CmdGetHeaders  Command = 4
	CmdHeaders     Command = 5
	CmdInv         Command = 6
	CmdMempool     Command = 7
	CmdMerkleBlock Command = 8
	CmdCmpctBlock  Command = 9
	CmdSendCmpct   Command = 10
	CmdGetBlockTxn Command = 11
	CmdBlockTxn    Command = 12
	CmdNotFound    Command = 13
	CmdTx          Command = 14
)

// Control message commands (50+).
const (
	CmdAddr    Command = 50
	CmdGetAddr Command = 51
	CmdVersion Command = 52
	CmdVerAck  Command = 53
	CmdPing    Command = 54
	CmdPong    Command = 55
	CmdReject  Command = 56
)

// Inventory item types carried by INV and GETDATA.
const (
	InvTypeTx    = 1
	InvTypeBlock = 2
)

// RejectCodeDifVersion is the only reject code this design defines.
const RejectCodeDifVersion = 1

// StartString identifies the network a message belongs to, the same role
// Bitcoin-family wire protocols give it: a peer speaking a different
// network's StartString is not this design's peer.
const StartString = "TLCD1"
