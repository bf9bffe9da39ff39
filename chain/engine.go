package chain

import (
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/kalymgr/tlcd/config"
	"github.com/kalymgr/tlcd/logs"
	"github.com/kalymgr/tlcd/primitives"
	"github.com/kalymgr/tlcd/script"
	"github.com/pkg/errors"
)

var log = logs.Get(logs.TagChain)

// Engine owns the chain, the header chain, the UTXO set, and the pending
// transaction list, and is the only thing allowed to mutate them. Callers
// outside the reactor goroutine only ever observe Engine state through its
// exported accessor methods.
type Engine struct {
	mu sync.Mutex

	params config.NetworkParams

	chain       []*Block
	headerChain []*BlockHeader
	utxoSet     *UTXOSet
	pending     []*Transaction
	confirmed   []*Transaction

	nowFunc func() float64
}

// NewEngine builds a fresh chain seeded with a synthetic genesis block that
// pays params.InitialSupply to creator.
func NewEngine(params config.NetworkParams, creator *primitives.Account) *Engine {
	e := &Engine{
		params:  params,
		utxoSet: NewUTXOSet(),
		nowFunc: defaultNow,
	}
	e.createGenesisBlock(creator)
	return e
}

// defaultNow returns the current time as the fractional-seconds-since-epoch
// value BlockHeader.TimeStartHashing is stamped with.
func defaultNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func (e *Engine) createGenesisBlock(creator *primitives.Account) {
	genesisTx := NewTransaction("-")
	out := TxOutput{
		Value:        e.params.InitialSupply,
		Sender:       "-",
		Recipient:    creator.PubKeyHash(),
		ScriptPubKey: p2pkhScriptPubKey(creator.PubKeyHash()),
	}
	genesisTx.AddOutput(out)
	genesisTx.ComputeHash()

	header := BlockHeader{
		Version:             e.params.BlockVersion,
		PrevBlockHeaderHash: GenesisPrevBlockHeaderHash,
		TargetThreshold:     e.params.TargetThreshold,
		TimeStartHashing:    e.nowFunc(),
	}
	block := &Block{Header: header, Transactions: []*Transaction{genesisTx}}
	block.computeMerkleRoot()

	blockNumber := 0
	genesisTx.BlockNumber = &blockNumber

	e.chain = append(e.chain, block)
	e.headerChain = append(e.headerChain, &block.Header)
	e.utxoSet.Put(UTXOKey{TxHash: genesisTx.TxHash, Index: 0}, out)
	e.confirmed = append(e.confirmed, genesisTx)

	log.Infof("genesis block created, supply %d -> %s", e.params.InitialSupply, creator.Address())
}

// Chain returns the current chain, tip-last.
func (e *Engine) Chain() []*Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Block, len(e.chain))
	copy(out, e.chain)
	return out
}

// HeaderChain returns the current header chain, tip-last.
func (e *Engine) HeaderChain() []*BlockHeader {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*BlockHeader, len(e.headerChain))
	copy(out, e.headerChain)
	return out
}

// PendingCount returns the number of transactions awaiting inclusion.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// UTXOCount returns the number of unspent outputs in the UTXO set.
func (e *Engine) UTXOCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.utxoSet.Len()
}

// spendableEntriesLocked returns account's UTXO entries that a
// freshly-constructed scriptSig for account's key can actually spend, i.e.
// script.Eval(scriptSig, entry.ScriptPubKey, entry.Key.TxHash) evaluates
// true. Must be called with e.mu held.
func (e *Engine) spendableEntriesLocked(account *primitives.Account) ([]UTXOEntry, error) {
	candidates := e.utxoSet.EntriesFor(account.PubKeyHash())
	spendable := make([]UTXOEntry, 0, len(candidates))
	for _, entry := range candidates {
		sig, err := account.Sign(entry.Key.TxHash)
		if err != nil {
			return nil, errors.Wrap(err, "signing UTXO proof")
		}
		scriptSig := p2pkhScriptSig(sig, account.PublicKeyHex())
		ok, err := script.Eval(scriptSig, entry.Output.ScriptPubKey, entry.Key.TxHash)
		if err != nil {
			return nil, errors.Wrap(err, "evaluating scriptPubKey")
		}
		if ok {
			spendable = append(spendable, entry)
		}
	}
	return spendable, nil
}

// SpendableUTXOs returns account's currently spendable UTXO entries.
func (e *Engine) SpendableUTXOs(account *primitives.Account) ([]UTXOEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spendableEntriesLocked(account)
}

// Balance returns the sum of account's currently spendable UTXO entries.
func (e *Engine) Balance(account *primitives.Account) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries, err := e.spendableEntriesLocked(account)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, entry := range entries {
		total += entry.Output.Value
	}
	return total, nil
}

// SubmitTransaction selects enough of sender's spendable UTXO entries to
// cover the transfer total, attaches a P2PKH scriptSig to each, builds one
// output per transfer, hashes and signs the transaction, and appends it to
// the pending list. It silently does nothing (returns false, nil) when
// sender's spendable balance is strictly less than the transfer total.
func (e *Engine) SubmitTransaction(sender *primitives.Account, transfers []Transfer) (bool, error) {
	total := 0
	for _, tr := range transfers {
		total += tr.Value
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	spendable, err := e.spendableEntriesLocked(sender)
	if err != nil {
		return false, err
	}
	spendableTotal := 0
	for _, entry := range spendable {
		spendableTotal += entry.Output.Value
	}
	if spendableTotal < total {
		log.Debugf("submitTransaction: %s has %d spendable, needs %d, dropping", sender.Address(), spendableTotal, total)
		return false, nil
	}

	inputs, _, err := selectInputs(spendable, sender, total)
	if err != nil {
		return false, err
	}

	tx := NewTransaction(sender.PubKeyHash())
	for _, tr := range transfers {
		tx.AddOutput(TxOutput{
			Value:        tr.Value,
			Sender:       sender.PubKeyHash(),
			Recipient:    tr.Recipient,
			ScriptPubKey: p2pkhScriptPubKey(tr.Recipient),
		})
	}
	tx.SetInputs(inputs)
	tx.ComputeHash()
	sig, err := sender.Sign(tx.TxHash)
	if err != nil {
		return false, errors.Wrap(err, "signing transaction")
	}
	tx.Signature = sig

	e.pending = append(e.pending, tx)
	log.Debugf("submitTransaction: queued tx %s from %s for %d", tx.TxHash, sender.PubKeyHash(), total)
	log.Tracef("submitTransaction: queued tx detail: %s", spew.Sdump(tx))
	return true, nil
}
