package merkle

import (
	"testing"

	"github.com/kalymgr/tlcd/primitives"
)

func TestRootEmpty(t *testing.T) {
	_, ok := Root(nil)
	if ok {
		t.Fatalf("expected no root for an empty transaction list")
	}
}

func TestRootSingleDuplicatesItself(t *testing.T) {
	h := primitives.DoubleSHA256Hex("tx")
	root, ok := Root([]string{h})
	if !ok {
		t.Fatalf("expected a root")
	}
	want := primitives.DoubleSHA256Hex(h + h)
	if root != want {
		t.Fatalf("root = %s, want %s", root, want)
	}
}

func TestRootDeterministic(t *testing.T) {
	hashes := []string{
		primitives.DoubleSHA256Hex("a"),
		primitives.DoubleSHA256Hex("b"),
		primitives.DoubleSHA256Hex("c"),
	}
	r1, _ := Root(hashes)
	r2, _ := Root(hashes)
	if r1 != r2 {
		t.Fatalf("Root is not deterministic: %s != %s", r1, r2)
	}
}

func TestRootOddCountDuplicatesLast(t *testing.T) {
	h1 := primitives.DoubleSHA256Hex("a")
	h2 := primitives.DoubleSHA256Hex("b")
	h3 := primitives.DoubleSHA256Hex("c")

	// manual computation: odd count duplicates the last hash
	level := []string{h1, h2, h3, h3}
	pair1 := primitives.DoubleSHA256Hex(level[0] + level[1])
	pair2 := primitives.DoubleSHA256Hex(level[2] + level[3])
	want := primitives.DoubleSHA256Hex(pair1 + pair2)

	got, ok := Root([]string{h1, h2, h3})
	if !ok {
		t.Fatalf("expected a root")
	}
	if got != want {
		t.Fatalf("Root = %s, want %s", got, want)
	}
}

func TestRootChangesWithInput(t *testing.T) {
	r1, _ := Root([]string{"a", "b"})
	r2, _ := Root([]string{"a", "c"})
	if r1 == r2 {
		t.Fatalf("expected different roots for different inputs")
	}
}
