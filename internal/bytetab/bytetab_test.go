package bytetab

import (
	"fmt"
	"testing"
)

func TestAddAndGet(t *testing.T) {
	tab := New[int]()
	keys := []string{"Wall", "Door", "Window", "Wall.Width", "Door.Width", ""}
	for i, k := range keys {
		if err := tab.Add([]byte(k), i); err != nil {
			t.Fatalf("Add(%q): %v", k, err)
		}
	}
	if tab.Len() != len(keys) {
		t.Fatalf("Len = %d, want %d", tab.Len(), len(keys))
	}
	for i, k := range keys {
		v, ok := tab.TryGetValue([]byte(k))
		if !ok || v != i {
			t.Fatalf("TryGetValue(%q) = %d,%v want %d,true", k, v, ok, i)
		}
	}
	if _, ok := tab.TryGetValue([]byte("Roof")); ok {
		t.Fatalf("TryGetValue(Roof) should miss")
	}
}

func TestKeyBytesAreCopied(t *testing.T) {
	tab := New[string]()
	key := []byte("Layer")
	if err := tab.Add(key, "v"); err != nil {
		t.Fatal(err)
	}
	key[0] = 'X'
	if _, ok := tab.TryGetValue([]byte("Xayer")); ok {
		t.Fatalf("mutated caller buffer must not alias the stored key")
	}
	if v, ok := tab.TryGetValue([]byte("Layer")); !ok || v != "v" {
		t.Fatalf("original key lost after caller mutation")
	}
}

func TestDuplicateAddFails(t *testing.T) {
	tab := New[int]()
	if err := tab.Add([]byte("Shape"), 1); err != nil {
		t.Fatal(err)
	}
	if err := tab.Add([]byte("Shape"), 2); err == nil {
		t.Fatalf("duplicate Add must fail")
	}
	if v, ok := tab.TryGetValue([]byte("Shape")); !ok || v != 1 {
		t.Fatalf("failed Add must not clobber the existing entry")
	}
}

// collidingKeys searches for two distinct keys sharing one hash so the
// promoted bucket path is exercised. By the birthday bound a 32-bit hash
// collides well inside the search budget.
func collidingKeys(t *testing.T) ([]byte, []byte) {
	t.Helper()
	seen := make(map[uint32][]byte)
	for i := 0; i < 2_000_000; i++ {
		k := []byte(fmt.Sprintf("k%d", i))
		h := Hash(k)
		if prev, ok := seen[h]; ok {
			return prev, k
		}
		seen[h] = k
	}
	t.Skip("no hash collision found in search budget")
	return nil, nil
}

func TestCollisionCorrectness(t *testing.T) {
	a, b := collidingKeys(t)
	tab := New[string]()
	if err := tab.Add(a, "va"); err != nil {
		t.Fatalf("Add(%q): %v", a, err)
	}
	if err := tab.Add(b, "vb"); err != nil {
		t.Fatalf("Add colliding key %q: %v", b, err)
	}
	if v, ok := tab.TryGetValue(a); !ok || v != "va" {
		t.Fatalf("colliding key %q resolved to %q,%v", a, v, ok)
	}
	if v, ok := tab.TryGetValue(b); !ok || v != "vb" {
		t.Fatalf("colliding key %q resolved to %q,%v", b, v, ok)
	}
	// Duplicate insert through the promoted bucket must still fail.
	if err := tab.Add(a, "dup"); err == nil {
		t.Fatalf("duplicate Add via collision bucket must fail")
	}
	if err := tab.Add(b, "dup"); err == nil {
		t.Fatalf("duplicate Add via collision bucket must fail")
	}
	if tab.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tab.Len())
	}
}

func TestHashDeterministic(t *testing.T) {
	if Hash([]byte("Door.Width")) != Hash([]byte("Door.Width")) {
		t.Fatal("hash must be deterministic")
	}
	if Hash(nil) != hashSeed {
		t.Fatalf("empty key hash = %d, want seed %d", Hash(nil), hashSeed)
	}
}
