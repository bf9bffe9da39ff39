// Package config holds the static network parameters the chain engine,
// script VM, and P2P protocol are configured with. It does not parse flags
// or configuration files — process bootstrapping lives in cmd/tlcnode,
// which reads a handful of values from the command line and builds a
// NetworkParams value to hand to the core.
package config

import "time"

// NetworkParams bundles every tunable the core reads by value instead of by
// a global.
type NetworkParams struct {
	Name string

	// DefaultPort is the TCP port a node listens on by default.
	DefaultPort string

	// ProtocolVersion is the version carried in the VERSION handshake.
	// Peers whose protocol version differs are rejected.
	ProtocolVersion int

	// TargetThreshold is the number of leading hex zero digits a PoW
	// hash must have.
	TargetThreshold int

	// BlockVersion is the version stamped on every mined block header.
	BlockVersion int

	// InitialSupply is the value of the single genesis output.
	InitialSupply int

	// MaxBlocksPerInv caps how many block hashes an INV response carries
	// for a single GETBLOCKS request.
	MaxBlocksPerInv int

	// MaxBlocksPerGetData caps how many inventory entries a single
	// GETDATA request asks for.
	MaxBlocksPerGetData int

	// TimeOfInactivityInterval is how often a connection's inactivity
	// counter is advanced.
	TimeOfInactivityInterval time.Duration

	// CheckInactivityInterval is how often the inactivity counter is
	// examined against the ping/close limits.
	CheckInactivityInterval time.Duration

	// InactivityPingLimit is the inactivity-counter threshold past which
	// a ping is sent.
	InactivityPingLimit time.Duration

	// InactivityCloseLimit is the inactivity-counter threshold past
	// which the connection is closed.
	InactivityCloseLimit time.Duration

	// HeaderStalenessLimit is the tip-header age past which initial
	// block download is triggered.
	HeaderStalenessLimit time.Duration

	// HeaderLeadLimit is the |header_chain|-|block_chain| gap past which
	// initial block download is triggered.
	HeaderLeadLimit int
}

// MainNetParams are the default, production-shaped parameters.
var MainNetParams = NetworkParams{
	Name:                     "mainnet",
	DefaultPort:              "8010",
	ProtocolVersion:          1,
	TargetThreshold:          1,
	BlockVersion:             1,
	InitialSupply:            100,
	MaxBlocksPerInv:          500,
	MaxBlocksPerGetData:      128,
	TimeOfInactivityInterval: 300 * time.Second,
	CheckInactivityInterval:  300 * time.Second,
	InactivityPingLimit:      1800 * time.Second,
	InactivityCloseLimit:     5400 * time.Second,
	HeaderStalenessLimit:     24 * time.Hour,
	HeaderLeadLimit:          144,
}

// TestNetParams are identical to MainNetParams except for the listen port,
// separating mainnet from testnet by port alone.
var TestNetParams = func() NetworkParams {
	p := MainNetParams
	p.Name = "testnet"
	p.DefaultPort = "8020"
	return p
}()
