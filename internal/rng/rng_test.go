package rng

import "testing"

func TestStreamDeterministic(t *testing.T) {
	a := New(42).Stream("people")
	b := New(42).Stream("people")
	for i := 0; i < 10; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestStreamsIndependent(t *testing.T) {
	src := New(42)
	a := src.Stream("people").Uint64()
	b := src.Stream("documents").Uint64()
	if a == b {
		t.Fatal("expected different labels to give different streams")
	}
	if New(43).Stream("people").Uint64() == a {
		t.Fatal("expected different seeds to give different streams")
	}
}

func TestPickN(t *testing.T) {
	r := New(1).Stream("x")
	got := PickN(r, []string{"a", "b", "c"}, 5)
	if len(got) != 3 {
		t.Fatalf("got %d items, want 3", len(got))
	}
	seen := map[string]bool{}
	for _, v := range got {
		if seen[v] {
			t.Fatalf("duplicate %q", v)
		}
		seen[v] = true
	}
}

func TestBetween(t *testing.T) {
	r := New(7).Stream("b")
	for i := 0; i < 100; i++ {
		v := Between(r, 2, 4)
		if v < 2 || v > 4 {
			t.Fatalf("out of range: %d", v)
		}
	}
	if Between(r, 5, 5) != 5 {
		t.Fatal("degenerate range")
	}
}
