package chain

// UTXOKey identifies a single unspent output by the hash of the
// transaction that created it and that transaction's output index.
type UTXOKey struct {
	TxHash string
	Index  int
}

// UTXOEntry pairs a key with the output it refers to, for callers that
// need both (e.g. input selection).
type UTXOEntry struct {
	Key    UTXOKey
	Output TxOutput
}

// UTXOSet is the mapping from (txHash, outputIndex) to TxOutput. It
// additionally tracks, per recipient address, the insertion order of that
// address's entries, since input selection must proceed greedily in
// insertion order.
type UTXOSet struct {
	entries map[UTXOKey]TxOutput
	order   map[string][]UTXOKey
}

// NewUTXOSet returns an empty UTXO set.
func NewUTXOSet() *UTXOSet {
	return &UTXOSet{
		entries: make(map[UTXOKey]TxOutput),
		order:   make(map[string][]UTXOKey),
	}
}

// Put inserts an entry, recording it at the back of its recipient's
// insertion-order list.
func (u *UTXOSet) Put(key UTXOKey, out TxOutput) {
	u.entries[key] = out
	u.order[out.Recipient] = append(u.order[out.Recipient], key)
}

// Get returns the output for key, if present.
func (u *UTXOSet) Get(key UTXOKey) (TxOutput, bool) {
	out, ok := u.entries[key]
	return out, ok
}

// Remove deletes an entry and splices it out of its recipient's
// insertion-order list.
func (u *UTXOSet) Remove(key UTXOKey) {
	out, ok := u.entries[key]
	if !ok {
		return
	}
	delete(u.entries, key)
	keys := u.order[out.Recipient]
	for i, k := range keys {
		if k == key {
			u.order[out.Recipient] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
}

// EntriesFor returns address's unspent entries in insertion order.
func (u *UTXOSet) EntriesFor(address string) []UTXOEntry {
	keys := u.order[address]
	entries := make([]UTXOEntry, 0, len(keys))
	for _, k := range keys {
		out, ok := u.entries[k]
		if !ok {
			continue
		}
		entries = append(entries, UTXOEntry{Key: k, Output: out})
	}
	return entries
}

// Len returns the total number of unspent outputs in the set.
func (u *UTXOSet) Len() int {
	return len(u.entries)
}

// TotalSupply sums every output value currently in the set — the quantity
// the UTXO-conservation property compares against the genesis supply.
func (u *UTXOSet) TotalSupply() int {
	total := 0
	for _, out := range u.entries {
		total += out.Value
	}
	return total
}
