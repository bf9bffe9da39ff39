package store

import (
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/pkg/errors"
)

// LevelDBStore is a Store backed by a native goleveldb database, the
// on-disk alternative to MemoryStore; nothing in the node or chain engine
// opens one. A thin pass-through to the underlying handle that
// translates leveldb.ErrNotFound into the package's own sentinel; see
// DESIGN.md for what this is grounded on.
type LevelDBStore struct {
	ldb *leveldb.DB
}

// OpenLevelDBStore opens (creating if necessary) a goleveldb database at
// path.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb store at %s", path)
	}
	return &LevelDBStore{ldb: db}, nil
}

func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	v, err := s.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "leveldb get")
	}
	return v, nil
}

func (s *LevelDBStore) Put(key, value []byte) error {
	if err := s.ldb.Put(key, value, nil); err != nil {
		return errors.Wrap(err, "leveldb put")
	}
	return nil
}

func (s *LevelDBStore) Delete(key []byte) error {
	if err := s.ldb.Delete(key, nil); err != nil {
		return errors.Wrap(err, "leveldb delete")
	}
	return nil
}

func (s *LevelDBStore) Close() error {
	return s.ldb.Close()
}

func (s *LevelDBStore) NewBatch() Batch {
	return &levelDBBatch{ldb: s.ldb, batch: new(leveldb.Batch)}
}

type levelDBBatch struct {
	ldb   *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelDBBatch) Put(key, value []byte) { b.batch.Put(key, value) }

func (b *levelDBBatch) Delete(key []byte) { b.batch.Delete(key) }

func (b *levelDBBatch) Write() error {
	if err := b.ldb.Write(b.batch, nil); err != nil {
		return errors.Wrap(err, "leveldb batch write")
	}
	return nil
}
