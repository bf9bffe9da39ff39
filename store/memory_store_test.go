package store

import (
	"bytes"
	"testing"
)

func TestMemoryStorePutGetDelete(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.Get([]byte("missing")); err != ErrNotFound {
		t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
	}

	if err := s.Put([]byte("k"), []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, err := s.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(v, []byte("v1")) {
		t.Fatalf("Get = %q, want %q", v, "v1")
	}

	if err := s.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get([]byte("k")); err != ErrNotFound {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreBatchIsAtomicOnWrite(t *testing.T) {
	s := NewMemoryStore()
	s.Put([]byte("a"), []byte("1"))

	batch := s.NewBatch()
	batch.Put([]byte("a"), []byte("2"))
	batch.Put([]byte("b"), []byte("3"))
	batch.Delete([]byte("a"))

	if _, err := s.Get([]byte("b")); err != ErrNotFound {
		t.Fatalf("queued batch op applied before Write")
	}

	if err := batch.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := s.Get([]byte("a")); err != ErrNotFound {
		t.Fatalf("expected a deleted after batch write")
	}
	v, err := s.Get([]byte("b"))
	if err != nil || !bytes.Equal(v, []byte("3")) {
		t.Fatalf("Get(b) = %q, %v, want 3, nil", v, err)
	}
}
