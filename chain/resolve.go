package chain

// PeerChainSource is the subset of the P2P layer's peer table the chain
// engine needs to resolve conflicts: the set of known peer endpoints and a
// way to fetch a peer's full chain. Kept as an interface here (rather than
// importing the p2p package directly) so chain has no dependency on the
// networking layer; the node shell supplies the concrete implementation.
type PeerChainSource interface {
	Peers() []string
	FetchChain(peer string) ([]*Block, error)
}

// ResolveConflicts polls every peer in source for its chain and keeps the
// longest one that is both strictly longer than the local chain and passes
// validateChain. A peer fetch failure is logged and that peer is skipped;
// it never aborts the whole resolution attempt. Returns true and replaces
// the local chain (and rebuilds the UTXO set from it) iff a winning
// candidate was found.
func (e *Engine) ResolveConflicts(source PeerChainSource) (bool, error) {
	e.mu.Lock()
	localLen := len(e.chain)
	e.mu.Unlock()

	var winner []*Block
	for _, peer := range source.Peers() {
		candidate, err := source.FetchChain(peer)
		if err != nil {
			log.Debugf("resolveConflicts: skipping peer %s: %v", peer, err)
			continue
		}
		if len(candidate) <= localLen {
			continue
		}
		if winner != nil && len(candidate) <= len(winner) {
			continue
		}
		if !validateChain(candidate) {
			continue
		}
		winner = candidate
	}

	if winner == nil {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.chain = winner
	e.headerChain = make([]*BlockHeader, len(winner))
	for i := range winner {
		e.headerChain[i] = &winner[i].Header
	}
	e.utxoSet = rebuildUTXOSet(winner)
	log.Infof("resolveConflicts: adopted peer chain of length %d", len(winner))
	return true, nil
}

// validateChain applies the same prevBlockHeaderHash/PoW checks Validate
// does, to an arbitrary candidate chain rather than the engine's own. It
// additionally recomputes each non-genesis block's merkle root against its
// own transaction list, so that swapping a block's transactions without
// re-mining it is caught even though the stored header hash never changes.
func validateChain(blocks []*Block) bool {
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Header.PrevBlockHeaderHash != blocks[i-1].HeaderHash() {
			return false
		}
		if !blocks[i].SatisfiesProofOfWork() {
			return false
		}
		if !blocks[i].merkleRootMatches() {
			return false
		}
	}
	return true
}

// rebuildUTXOSet replays every block's transactions in order to recompute
// the UTXO set a candidate chain implies, since adopting a peer's chain
// wholesale must also adopt the spendable state it produces.
func rebuildUTXOSet(blocks []*Block) *UTXOSet {
	set := NewUTXOSet()
	for _, b := range blocks {
		for _, tx := range b.Transactions {
			for _, in := range tx.Inputs {
				set.Remove(UTXOKey{TxHash: in.PrevTxHash, Index: in.PrevTxOutIndex})
			}
			for i, out := range tx.Outputs {
				set.Put(UTXOKey{TxHash: tx.TxHash, Index: i}, out)
			}
		}
	}
	return set
}
