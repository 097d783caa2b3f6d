package source

import "testing"

func TestFileSetReservesSentinel(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.yaml", []byte("x"))
	if id == 0 {
		t.Fatalf("first file must not take the sentinel id")
	}
	if fs.Get(0) != nil {
		t.Fatalf("sentinel id must not resolve to a file")
	}
	if _, _, ok := fs.Resolve(NoSpan); ok {
		t.Fatalf("zero span must not resolve")
	}
}

func TestResolveAndOffsetRoundTrip(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("mod.yaml", []byte("first\nsecond line\nthird"))
	f := fs.Get(id)

	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{5, LineCol{1, 6}},
		{6, LineCol{2, 1}},
		{13, LineCol{2, 8}},
		{18, LineCol{3, 1}},
	}
	for _, tt := range tests {
		start, _, ok := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if !ok || start != tt.want {
			t.Fatalf("Resolve(%d) = %v, want %v", tt.off, start, tt.want)
		}
		if got := f.Offset(tt.want); got != tt.off {
			t.Fatalf("Offset(%v) = %d, want %d", tt.want, got, tt.off)
		}
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("x", []byte("a\nbb\n")))
	if got := f.GetLine(2); got != "bb" {
		t.Fatalf("GetLine(2) = %q, want %q", got, "bb")
	}
	if got := f.GetLine(9); got != "" {
		t.Fatalf("GetLine(9) = %q, want empty", got)
	}
}

func TestCRLFAndBOMNormalization(t *testing.T) {
	in := []byte{0xEF, 0xBB, 0xBF, 'a', '\r', '\n', 'b', '\r'}
	out, bom := removeBOM(in)
	if !bom || string(out) != "a\r\nb\r" {
		t.Fatalf("removeBOM = %q, %v", out, bom)
	}
	out, crlf := normalizeCRLF(out)
	if !crlf || string(out) != "a\nb\r" {
		t.Fatalf("normalizeCRLF = %q, %v", out, crlf)
	}
}
