package chain

// Validate reports whether every non-genesis block in the chain correctly
// chains to its predecessor, satisfies the proof-of-work predicate against
// its own stored nonce, and carries a merkle root that matches its current
// transaction list. The genesis block is trusted and never checked.
func (e *Engine) Validate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateLocked()
}

func (e *Engine) validateLocked() bool {
	return validateChain(e.chain)
}
