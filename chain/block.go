package chain

import (
	"encoding/json"
	"strconv"

	"github.com/kalymgr/tlcd/merkle"
	"github.com/kalymgr/tlcd/primitives"
)

// GenesisPrevBlockHeaderHash is the synthetic previous-hash value of the
// genesis block.
const GenesisPrevBlockHeaderHash = "-"

// BlockHeader carries a block's header fields.
type BlockHeader struct {
	Version             int
	PrevBlockHeaderHash string
	MerkleRoot          string
	TimeStartHashing    float64
	TargetThreshold     int
	Nonce               uint64
}

// canonicalText renders the header as lexicographic-key JSON, the same
// regimen canonical.go uses for transactions.
func (h BlockHeader) canonicalText() string {
	b, _ := json.Marshal(map[string]interface{}{
		"merkleRoot":          h.MerkleRoot,
		"nonce":               h.Nonce,
		"prevBlockHeaderHash": h.PrevBlockHeaderHash,
		"targetThreshold":     h.TargetThreshold,
		"timeStartHashing":    h.TimeStartHashing,
		"version":             h.Version,
	})
	return string(b)
}

// HeaderHash is SHA256(canonical(header_fields)) — a single hash, not a
// double hash.
func (h BlockHeader) HeaderHash() string {
	return primitives.SHA256Hex(h.canonicalText())
}

// powHash is the hash the proof-of-work predicate tests: it rehashes the
// header hash together with the previous header hash and the nonce.
func (h BlockHeader) powHash() string {
	return primitives.SHA256Hex(h.HeaderHash() + h.PrevBlockHeaderHash + strconv.FormatUint(h.Nonce, 10))
}

// satisfiesTarget reports whether powHash begins with targetThreshold
// leading hex zero digits.
func (h BlockHeader) satisfiesTarget() bool {
	hash := h.powHash()
	if len(hash) < h.TargetThreshold {
		return false
	}
	for i := 0; i < h.TargetThreshold; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}

// Block is a header plus its ordered transaction list.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
}

// computeMerkleRoot recomputes and sets Header.MerkleRoot from the block's
// transaction hashes. A block with no transactions gets an empty merkle
// root; the engine never actually appends such a block, since it only
// mines once at least one pending transaction has executed successfully.
func (b *Block) computeMerkleRoot() {
	hashes := make([]string, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		hashes = append(hashes, tx.TxHash)
	}
	root, ok := merkle.Root(hashes)
	if ok {
		b.Header.MerkleRoot = root
	} else {
		b.Header.MerkleRoot = ""
	}
}

// HeaderHash is the block's header hash.
func (b *Block) HeaderHash() string {
	return b.Header.HeaderHash()
}

// merkleRootMatches reports whether the header's stored merkle root still
// matches what the block's current transaction list would produce.
func (b *Block) merkleRootMatches() bool {
	hashes := make([]string, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		hashes = append(hashes, tx.TxHash)
	}
	root, ok := merkle.Root(hashes)
	if !ok {
		return b.Header.MerkleRoot == ""
	}
	return root == b.Header.MerkleRoot
}

// SatisfiesProofOfWork reports whether the block's stored nonce satisfies
// the PoW predicate against its own header hash and prevBlockHeaderHash.
func (b *Block) SatisfiesProofOfWork() bool {
	return b.Header.satisfiesTarget()
}
