package types

import (
	"testing"

	"keel/internal/diag"
	"keel/internal/source"
)

func newTestHandler() (*diag.Handler, *diag.Bag) {
	bag := diag.NewBag(32)
	return diag.NewHandler(diag.BagReporter{Bag: bag}), bag
}

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Bool == NoTypeID || b.U64 == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	if !in.IsUnit(b.Unit) {
		t.Fatalf("unit must be the empty tuple")
	}
	if got := Label(in, b.Unit); got != "()" {
		t.Fatalf("unit label = %q", got)
	}
	if got := Label(in, b.U256); got != "u256" {
		t.Fatalf("u256 label = %q", got)
	}
	if in.Uint(Width64) != b.U64 {
		t.Fatalf("Uint(64) must reuse the builtin handle")
	}
}

func TestInternerDeduplicatesComposites(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	t1 := in.Tuple([]TypeID{b.U64, b.Bool})
	t2 := in.Tuple([]TypeID{b.U64, b.Bool})
	if t1 != t2 {
		t.Fatalf("tuple types should be deduplicated")
	}
	name := in.Strings().Intern("Point")
	s1 := in.Struct(7, name, []TypeID{b.U8})
	s2 := in.Struct(7, name, []TypeID{b.U8})
	s3 := in.Struct(7, name, []TypeID{b.U16})
	if s1 != s2 || s1 == s3 {
		t.Fatalf("struct interning by decl and args failed")
	}
	if got := Label(in, s1); got != "Point<u8>" {
		t.Fatalf("label = %q", got)
	}
}

func TestEqualityFollowsBindings(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	h, bag := newTestHandler()

	v := in.FreshUnknown()
	wrapped := in.Tuple([]TypeID{v})
	concrete := in.Tuple([]TypeID{b.U64})
	if in.Equal(wrapped, concrete) {
		t.Fatalf("unbound variable must not equal u64")
	}
	if res := in.Unify(h, v, b.U64, source.Span{}, ""); !res.OK {
		t.Fatalf("unify unknown with u64 failed: %v", bag.Items())
	}
	if wrapped == concrete {
		t.Fatalf("handles should stay distinct")
	}
	if !in.Equal(wrapped, concrete) {
		t.Fatalf("bound variable should make tuples equal")
	}
	if in.Hash(wrapped) != in.Hash(concrete) {
		t.Fatalf("equal types must hash equally")
	}
}

func TestCompareIsTotalAndSymmetric(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	ids := []TypeID{b.Unit, b.Bool, b.U8, b.U64, b.Str, in.Tuple([]TypeID{b.U8, b.U8})}
	for _, x := range ids {
		if in.Compare(x, x) != 0 {
			t.Fatalf("Compare(%s, %s) != 0", Label(in, x), Label(in, x))
		}
		for _, y := range ids {
			if in.Compare(x, y) != -in.Compare(y, x) {
				t.Fatalf("Compare not antisymmetric for %s, %s", Label(in, x), Label(in, y))
			}
		}
	}
}

func TestUnifyMismatchReportsAndRollsBack(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	h, bag := newTestHandler()

	v := in.FreshUnknown()
	received := in.Tuple([]TypeID{v, b.U64})
	expected := in.Tuple([]TypeID{b.Bool, b.Bool})
	res := in.Unify(h, received, expected, source.Span{File: 1, Start: 0, End: 3}, "tuple fields must agree")
	if res.OK || res.Err == nil {
		t.Fatalf("expected mismatch")
	}
	if res.Type != b.ErrorRecovery {
		t.Fatalf("failure should yield the error-recovery type")
	}
	if in.IsBound(v) {
		t.Fatalf("partial binding was not rolled back")
	}
	if bag.Count(diag.SemaTypeMismatch) != 1 {
		t.Fatalf("want one mismatch, got %v", bag.Items())
	}
	if notes := bag.Items()[0].Notes; len(notes) != 1 || notes[0].Msg != "tuple fields must agree" {
		t.Fatalf("help note missing: %+v", notes)
	}
}

func TestUnifyErrorRecoveryAbsorbs(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	h, bag := newTestHandler()
	if res := in.Unify(h, b.ErrorRecovery, b.Str, source.Span{}, ""); !res.OK {
		t.Fatalf("error recovery should unify with anything")
	}
	if bag.Len() != 0 {
		t.Fatalf("no diagnostics expected, got %v", bag.Items())
	}
}

func TestUnifyNumericLiteral(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	h, _ := newTestHandler()

	n := in.FreshNumeric()
	if res := in.Unify(h, n, b.U8, source.Span{}, ""); !res.OK {
		t.Fatalf("numeric should bind to u8")
	}
	if !in.Equal(n, b.U8) {
		t.Fatalf("numeric not bound")
	}
	m := in.FreshNumeric()
	if res := in.Unify(h, m, b.Bool, source.Span{}, ""); res.OK {
		t.Fatalf("numeric must not bind to bool")
	}
	in.DefaultNumerics(m)
	if !in.Equal(m, b.U64) {
		t.Fatalf("unbound numeric should default to u64")
	}
}

func TestUnifyWithGenericBindsExpectedParam(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	h, bag := newTestHandler()

	declared := in.RegisterTypeParam(in.Strings().Intern("T"), 1, 0)
	open := in.FreshTypeParam(declared)

	if res := in.Unify(diag.Discard(), b.U64, open, source.Span{}, ""); res.OK {
		t.Fatalf("plain unify must not bind an expected-side parameter")
	}
	if res := in.UnifyWithGeneric(h, b.U64, open, source.Span{}, ""); !res.OK {
		t.Fatalf("unify with generic failed: %v", bag.Items())
	}
	if !in.Equal(open, b.U64) {
		t.Fatalf("open parameter not bound")
	}
	if in.IsBound(declared) {
		t.Fatalf("declared parameter must stay rigid")
	}
	if res := in.UnifyWithGeneric(diag.Discard(), b.U64, declared, source.Span{}, ""); res.OK {
		t.Fatalf("rigid parameter must not unify with u64")
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	in := NewInterner(nil)
	h, bag := newTestHandler()
	v := in.FreshUnknown()
	loop := in.Tuple([]TypeID{v})
	if res := in.Unify(h, v, loop, source.Span{}, ""); res.OK {
		t.Fatalf("occurs check should fail")
	}
	if bag.Count(diag.SemaRecursiveType) != 1 {
		t.Fatalf("want recursive type diagnostic, got %v", bag.Items())
	}
}

func TestSubstReplacesParams(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	strs := in.Strings()
	param := in.RegisterTypeParam(strs.Intern("T"), 1, 0)
	box := in.Struct(1, strs.Intern("Box"), []TypeID{param})
	pair := in.Tuple([]TypeID{param, b.Bool})

	m := NewSubstMap([]TypeID{param}, []TypeID{b.U32})
	if got := in.Subst(box, m); !in.Equal(got, in.Struct(1, strs.Intern("Box"), []TypeID{b.U32})) {
		t.Fatalf("Subst(box) = %s", Label(in, got))
	}
	if got := Label(in, in.Subst(pair, m)); got != "(u32, bool)" {
		t.Fatalf("Subst(pair) = %s", got)
	}
	if in.Subst(b.Str, m) != b.Str {
		t.Fatalf("unrelated types keep their handle")
	}
}

func TestCanonicalFollowsBindings(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	strs := in.Strings()
	open := in.FreshTypeParam(in.RegisterTypeParam(strs.Intern("T"), 1, 0))
	box := in.Struct(1, strs.Intern("Box"), []TypeID{open})
	if res := in.Unify(diag.Discard(), open, b.U8, source.Span{}, ""); !res.OK {
		t.Fatalf("binding open parameter failed")
	}
	want := in.Struct(1, strs.Intern("Box"), []TypeID{b.U8})
	if got := in.Canonical(box); got != want {
		t.Fatalf("Canonical(box) = %s, want handle of %s", Label(in, got), Label(in, want))
	}
}
