package source

import "testing"

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got != (Span{File: 1, Start: 2, End: 8}) {
		t.Fatalf("Cover = %v", got)
	}
	other := Span{File: 2, Start: 0, End: 1}
	if got := a.Cover(other); got != a {
		t.Fatalf("cross-file Cover must keep receiver, got %v", got)
	}
	if got := NoSpan.Cover(b); got != b {
		t.Fatalf("NoSpan.Cover = %v, want %v", got, b)
	}
}

func TestIdentIgnoresSpan(t *testing.T) {
	a := Ident{Name: "x", Span: Span{File: 1, Start: 1, End: 2}}
	if !a.Is("x") || a.String() != "x" {
		t.Fatalf("unexpected ident behaviour: %+v", a)
	}
}
