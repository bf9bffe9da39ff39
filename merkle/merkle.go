// Package merkle computes the deterministic double-SHA256 merkle root over
// a block's transaction hashes.
package merkle

import "github.com/kalymgr/tlcd/primitives"

// Root computes the merkle root over hashes, an ordered list of
// double-hashed transaction hashes. An empty list has no root. A
// single-element list duplicates itself before hashing once.
func Root(hashes []string) (string, bool) {
	if len(hashes) == 0 {
		return "", false
	}
	if len(hashes) == 1 {
		// one hash pair: duplicate the single transaction against itself.
		return primitives.DoubleSHA256Hex(hashes[0] + hashes[0]), true
	}

	level := append([]string(nil), hashes...)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, primitives.DoubleSHA256Hex(level[i]+level[i+1]))
		}
		level = next
	}
	return level[0], true
}
