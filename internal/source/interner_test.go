package source

import "testing"

func TestInternerBasic(t *testing.T) {
	in := NewInterner()
	a := in.Intern("storage")
	b := in.Intern("storage")
	if a != b {
		t.Fatalf("same spelling must share an id: %d != %d", a, b)
	}
	if a == NoStringID {
		t.Fatalf("non-empty string got the sentinel id")
	}
	if got := in.MustLookup(a); got != "storage" {
		t.Fatalf("MustLookup = %q", got)
	}
	if in.Len() != 2 {
		t.Fatalf("Len = %d, want 2", in.Len())
	}
}

func TestInternerNormalizesToNFC(t *testing.T) {
	in := NewInterner()
	composed := in.Intern("caf\u00e9")
	decomposed := in.Intern("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("canonically equivalent names must intern to the same id")
	}
}

func TestInternerLookupUnknown(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Lookup(StringID(42)); ok {
		t.Fatalf("unknown id must not resolve")
	}
}
