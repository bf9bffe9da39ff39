package chain

import "github.com/pkg/errors"

// mine increments header.Nonce from 0 until the proof-of-work predicate
// holds, without holding e.mu: hashing is CPU-bound and must not starve
// other callers of the engine while it runs. header is a pointer into a
// block that has not yet been published to the chain, so mutating its
// Nonce field here is safe without additional synchronization.
func (e *Engine) mine(header *BlockHeader) (uint64, error) {
	for nonce := uint64(0); ; nonce++ {
		header.Nonce = nonce
		if header.satisfiesTarget() {
			return nonce, nil
		}
		if nonce == ^uint64(0) {
			return 0, errors.New("chain: proof-of-work search space exhausted")
		}
	}
}
