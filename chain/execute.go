package chain

import (
	"github.com/kalymgr/tlcd/primitives"
	"github.com/kalymgr/tlcd/script"
	"github.com/pkg/errors"
)

// ExecuteTransactions drains the pending list into a new block: each
// pending transaction is checked, re-inputted against the live UTXO set,
// and (on success) folded into the block under construction. Transactions
// are processed in submission order; a failure drops that transaction and
// the next one is tried. If at least one transaction succeeds, the block is
// mined and appended to the chain; the pending list is cleared either way.
// Returns the number of transactions that made it into the block.
func (e *Engine) ExecuteTransactions() (int, error) {
	accepted, block, blockNumber := e.buildBlockLocked()
	if accepted == 0 {
		return 0, nil
	}

	// Mining is CPU-bound and unbounded; it runs without e.mu held so other
	// callers (Balance, SubmitTransaction, peer handlers) are never blocked
	// by it. The block under construction is not reachable from anywhere
	// else yet, so mutating its header here is race-free.
	nonce, err := e.mine(&block.Header)
	if err != nil {
		return accepted, err
	}
	block.Header.Nonce = nonce

	e.mu.Lock()
	defer e.mu.Unlock()
	e.chain = append(e.chain, block)
	e.headerChain = append(e.headerChain, &block.Header)
	log.Infof("executeTransactions: mined block %d with %d transaction(s)", blockNumber, accepted)
	return accepted, nil
}

// buildBlockLocked applies every pending transaction to the live UTXO set
// under e.mu, assembling (but not yet mining) the candidate block. It
// returns accepted == 0 when no transaction succeeded, in which case block
// is nil and the pending list has still been cleared.
func (e *Engine) buildBlockLocked() (accepted int, block *Block, blockNumber int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := e.pending
	e.pending = nil

	tip := e.chain[len(e.chain)-1]
	block = &Block{
		Header: BlockHeader{
			Version:         e.params.BlockVersion,
			TargetThreshold: e.params.TargetThreshold,
		},
	}

	blockNumber = len(e.chain)
	for _, tx := range pending {
		if err := e.executeOne(tx, block, blockNumber); err != nil {
			log.Debugf("executeTransactions: dropping tx %s: %v", tx.TxHash, err)
			continue
		}
		accepted++
	}

	if accepted == 0 {
		log.Debugf("executeTransactions: no transaction succeeded, block not appended")
		return 0, nil, blockNumber
	}

	block.Header.PrevBlockHeaderHash = tip.HeaderHash()
	block.Header.TimeStartHashing = e.nowFunc()
	block.computeMerkleRoot()
	return accepted, block, blockNumber
}

// executeOne validates and applies a single pending transaction against the
// engine's live state, appending it to block on success. The transaction is
// rejected — without mutating anything — if its overall signature doesn't
// verify or if the sender's live spendable balance is insufficient.
//
// Inputs are re-selected here from the live UTXO set rather than reused
// from whatever SubmitTransaction originally attached: an earlier
// transaction in the same block may already have spent the entries the
// sender held at submission time and credited a fresh change output in
// their place, and that change output is the only thing left to spend from
// within this block. Each candidate entry is authorized the same way
// spendableEntriesLocked authorizes one: by building a scriptSig and
// running it against the entry's own ScriptPubKey through script.Eval,
// rather than trusting Output.Recipient. The transaction's own
// already-verified overall signature stands in as that scriptSig's
// signature component, so checkSig is evaluated against tx.TxHash (the
// hash that signature covers), since a change output created mid-block was
// never signed by the sender individually — it did not exist yet.
func (e *Engine) executeOne(tx *Transaction, block *Block, blockNumber int) error {
	pubKeyHex, ok := tx.SenderPublicKeyHex()
	if !ok {
		return ErrNoSenderPublicKey
	}
	if !primitives.VerifySignature(pubKeyHex, tx.TxHash, tx.Signature) {
		return ErrBadSignature
	}

	senderHash := primitives.Hash160Hex(pubKeyHex)
	required := tx.NonChangeOutputsTotalValue()
	scriptSig := p2pkhScriptSig(tx.Signature, pubKeyHex)

	candidates := e.utxoSet.EntriesFor(senderHash)
	entries := make([]UTXOEntry, 0, len(candidates))
	for _, entry := range candidates {
		authorized, err := script.Eval(scriptSig, entry.Output.ScriptPubKey, tx.TxHash)
		if err != nil {
			return errors.Wrap(err, "evaluating scriptPubKey")
		}
		if authorized {
			entries = append(entries, entry)
		}
	}

	spendableTotal := 0
	for _, entry := range entries {
		spendableTotal += entry.Output.Value
	}
	if spendableTotal < required {
		return ErrInsufficientBalance
	}

	var inputs []TxInput
	selectedTotal := 0
	for _, entry := range entries {
		if selectedTotal >= required {
			break
		}
		inputs = append(inputs, TxInput{
			PrevTxHash:     entry.Key.TxHash,
			PrevTxOutIndex: entry.Key.Index,
			ScriptSig:      scriptSig,
			Value:          entry.Output.Value,
			Recipient:      entry.Output.Recipient,
		})
		selectedTotal += entry.Output.Value
	}
	if selectedTotal < required {
		return ErrInsufficientBalance
	}

	tx.SetInputs(inputs)
	if selectedTotal > required {
		tx.AddOutput(TxOutput{
			Value:        selectedTotal - required,
			Sender:       senderHash,
			Recipient:    senderHash,
			ScriptPubKey: p2pkhScriptPubKey(senderHash),
		})
	}

	n := blockNumber
	tx.BlockNumber = &n
	block.Transactions = append(block.Transactions, tx)
	e.confirmed = append(e.confirmed, tx)

	for _, in := range inputs {
		e.utxoSet.Remove(UTXOKey{TxHash: in.PrevTxHash, Index: in.PrevTxOutIndex})
	}
	for i, out := range tx.Outputs {
		e.utxoSet.Put(UTXOKey{TxHash: tx.TxHash, Index: i}, out)
	}
	return nil
}
