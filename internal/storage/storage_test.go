package storage

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/ty"
	"keel/internal/types"
)

func lit(kind ast.LiteralKind, text string) *ty.Expr {
	return &ty.Expr{Kind: ty.ExprLiteral, Literal: &ty.Literal{Kind: kind, Text: text}}
}

func field(name string, init *ty.Expr) ty.StorageField {
	return ty.StorageField{Name: source.NewIdent(name), Type: ty.Arg(types.NoTypeID), Init: init}
}

func TestScalarFields(t *testing.T) {
	h := diag.Discard()
	decl := &ty.StorageDecl{Fields: []ty.StorageField{
		field("supply", lit(ast.LitUint, "258")),
		field("paused", lit(ast.LitBool, "true")),
	}}
	slots, err := Evaluator{}.StorageSlots(h, ty.NewEngines(), decl)
	if err != nil {
		t.Fatalf("StorageSlots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("slots = %d, want 2", len(slots))
	}
	first := sha256.Sum256([]byte("storage_0"))
	if !bytes.Equal(slots[0].Key[:], first[:]) {
		t.Fatalf("first key = %x, want %x", slots[0].Key, first)
	}
	if slots[0].Value[WordSize-2] != 1 || slots[0].Value[WordSize-1] != 2 {
		t.Fatalf("258 encoded as %x", slots[0].Value)
	}
	if slots[1].Value[WordSize-1] != 1 {
		t.Fatalf("true encoded as %x", slots[1].Value)
	}
}

func TestMultiWordFieldsUseConsecutiveKeys(t *testing.T) {
	h := diag.Discard()
	tuple := &ty.Expr{Kind: ty.ExprTuple, Elems: []*ty.Expr{
		lit(ast.LitUint, "1"),
		lit(ast.LitString, "a string that is longer than one word"),
	}}
	slots, err := Evaluator{}.StorageSlots(h, ty.NewEngines(), &ty.StorageDecl{Fields: []ty.StorageField{field("pair", tuple)}})
	if err != nil {
		t.Fatalf("StorageSlots: %v", err)
	}
	// one word for the uint, a length word and two data words for the string
	if len(slots) != 4 {
		t.Fatalf("slots = %d, want 4", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		prev, cur := slots[i-1].Key, slots[i].Key
		if cur[WordSize-1] != prev[WordSize-1]+1 && cur[WordSize-1] != 0 {
			t.Fatalf("keys %d and %d are not consecutive: %x %x", i-1, i, prev, cur)
		}
	}
	if slots[1].Value[WordSize-1] != 37 {
		t.Fatalf("length word = %x", slots[1].Value)
	}
}

func TestConstantsAreFollowed(t *testing.T) {
	h := diag.Discard()
	engines := ty.NewEngines()
	ref := engines.Decls.Constants.Insert(ty.ConstantDecl{Value: lit(ast.LitUint, "7")})
	decl := &ty.StorageDecl{Fields: []ty.StorageField{field("fee", &ty.Expr{Kind: ty.ExprConstant, Const: ref})}}
	slots, err := Evaluator{}.StorageSlots(h, engines, decl)
	if err != nil || len(slots) != 1 || slots[0].Value[WordSize-1] != 7 {
		t.Fatalf("slots = %v, err = %v", slots, err)
	}
}

func TestNonConstantInitializer(t *testing.T) {
	bag := diag.NewBag(8)
	h := diag.NewHandler(diag.BagReporter{Bag: bag})
	decl := &ty.StorageDecl{Fields: []ty.StorageField{
		field("owner", &ty.Expr{Kind: ty.ExprCall, Call: &ty.CallExpr{}}),
		field("count", lit(ast.LitUint, "1")),
	}}
	slots, err := Evaluator{}.StorageSlots(h, ty.NewEngines(), decl)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got := bag.Count(diag.ProgStorageNotConst); got != 1 {
		t.Fatalf("not-const diagnostics = %d, want 1: %v", got, bag.Items())
	}
	if len(slots) != 1 {
		t.Fatalf("remaining fields must still be laid out: %d slots", len(slots))
	}
}
