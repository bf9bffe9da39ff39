// Package store implements the persistence interface the core treats as an
// opaque key-value collaborator. The chain engine keeps its UTXO set, chain,
// and header chain in its own memory and is not connected to a Store; the
// implementations here are standalone key-value stores. Both
// implementations here (MemoryStore, LevelDBStore) guarantee that Batch.Write
// applies every queued mutation atomically, since the core's only
// correctness requirement on a backing store is that per-transaction UTXO
// updates are all-or-nothing.
package store

import "github.com/pkg/errors"

// ErrNotFound is returned by Get when key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is a minimal key-value collaborator: get/put/delete plus batched
// writes for atomic multi-key updates.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewBatch() Batch
	Close() error
}

// Batch accumulates Put/Delete operations to be applied atomically by
// Write.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Write() error
}
