package chain

// AdoptBlock appends an externally-received block (e.g. from a BLOCK
// message) to the local chain, provided it correctly extends the current
// tip: its prevBlockHeaderHash must match the tip's header hash, it must
// satisfy the proof-of-work predicate, and its merkle root must match its
// own transaction list. On success every transaction's outputs are added to
// the UTXO set and every input it references is removed, exactly as a
// locally-mined block's transactions are applied.
func (e *Engine) AdoptBlock(block *Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tip := e.chain[len(e.chain)-1]
	if block.Header.PrevBlockHeaderHash != tip.HeaderHash() {
		return ErrBadPrevBlockHash
	}
	if !block.SatisfiesProofOfWork() {
		return ErrBadProofOfWork
	}
	if !block.merkleRootMatches() {
		return ErrMerkleMismatch
	}

	blockNumber := len(e.chain)
	for _, tx := range block.Transactions {
		n := blockNumber
		tx.BlockNumber = &n
		for _, in := range tx.Inputs {
			e.utxoSet.Remove(UTXOKey{TxHash: in.PrevTxHash, Index: in.PrevTxOutIndex})
		}
		for i, out := range tx.Outputs {
			e.utxoSet.Put(UTXOKey{TxHash: tx.TxHash, Index: i}, out)
		}
		e.confirmed = append(e.confirmed, tx)
	}

	e.chain = append(e.chain, block)
	e.headerChain = append(e.headerChain, &block.Header)
	log.Infof("adoptBlock: appended peer block %d with %d transaction(s)", blockNumber, len(block.Transactions))
	return nil
}
