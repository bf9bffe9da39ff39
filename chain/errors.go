package chain

import "github.com/pkg/errors"

// Sentinel validation errors. Every one of these is a "local drop"
// decision: the offending transaction or block is discarded without
// affecting other pending work.
var (
	ErrInsufficientBalance = errors.New("chain: sender's spendable balance is less than the transfer total")
	ErrBadSignature        = errors.New("chain: transaction signature does not verify")
	ErrScriptFailed        = errors.New("chain: script evaluation rejected an input")
	ErrNoSenderPublicKey   = errors.New("chain: transaction carries no recoverable sender public key")
	ErrMerkleMismatch      = errors.New("chain: merkle root does not match the block's transactions")
	ErrBadProofOfWork      = errors.New("chain: block does not satisfy the proof-of-work predicate")
	ErrBadPrevBlockHash    = errors.New("chain: block's prevBlockHeaderHash does not match the previous block")
)
