// Package storage computes the initial storage slots of a contract from the
// constant initializers of its storage fields.
package storage

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"slices"

	"fortio.org/safecast"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/ty"
)

// WordSize is the size of a storage key and of a storage value.
const WordSize = 32

const maxConstDepth = 64

type word = [WordSize]byte

// Evaluator lays storage fields out as consecutive 32-byte words starting at
// the field's base key:
//
//	base(i)   = sha256("storage_<i>")
//	uint, bool  one word, big-endian
//	b256        one word
//	str         a length word followed by the bytes in zero-padded words
//	tuples and structs are flattened in declaration order
type Evaluator struct{}

// StorageSlots evaluates every field initializer of decl. Initializers that
// are not constant are reported and produce no slots.
func (Evaluator) StorageSlots(h *diag.Handler, engines ty.Engines, decl *ty.StorageDecl) ([]ty.StorageSlot, error) {
	if decl == nil {
		return nil, nil
	}
	var slots []ty.StorageSlot
	err := h.Scope(func(h *diag.Handler) error {
		for i, f := range decl.Fields {
			ev := evaluator{h: h, de: engines.Decls}
			words, err := ev.words(f.Init, 0)
			if err != nil {
				continue
			}
			index, err := safecast.Conv[uint64](i)
			if err != nil {
				return err
			}
			key := new(big.Int).SetBytes(fieldKey(index))
			for _, w := range words {
				var slot ty.StorageSlot
				key.FillBytes(slot.Key[:])
				slot.Value = w
				slots = append(slots, slot)
				key.Add(key, big.NewInt(1))
				if key.BitLen() > WordSize*8 {
					key.SetInt64(0)
				}
			}
		}
		return nil
	})
	return slots, err
}

func fieldKey(index uint64) []byte {
	sum := sha256.Sum256(fmt.Appendf(nil, "storage_%d", index))
	return sum[:]
}

type evaluator struct {
	h  *diag.Handler
	de *ty.DeclEngine
}

func (ev evaluator) words(e *ty.Expr, depth int) ([]word, error) {
	if e == nil {
		return nil, nil
	}
	if depth > maxConstDepth {
		return nil, ev.notConst(e, "constant nesting is too deep")
	}
	switch e.Kind {
	case ty.ExprLiteral:
		if e.Literal.Kind == ast.LitString {
			return stringWords(e.Literal.Text), nil
		}
		w, err := ev.literal(e)
		if err != nil {
			return nil, err
		}
		return []word{w}, nil
	case ty.ExprTuple:
		var out []word
		for _, el := range e.Elems {
			ws, err := ev.words(el, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, ws...)
		}
		return out, nil
	case ty.ExprStruct:
		return ev.structWords(e, depth)
	case ty.ExprConstant:
		c := ev.de.Constant(e.Const)
		if c == nil || c.Value == nil {
			return nil, ev.notConst(e, "constant has no value")
		}
		return ev.words(c.Value, depth+1)
	case ty.ExprBlock:
		if e.Block != nil && len(e.Block.Nodes) == 1 {
			if n := e.Block.Nodes[0]; n.Kind == ty.NodeExpr {
				return ev.words(n.Expr, depth+1)
			}
		}
	}
	return nil, ev.notConst(e, "storage initializers must be constant")
}

func (ev evaluator) structWords(e *ty.Expr, depth int) ([]word, error) {
	decl := ev.de.Struct(e.Struct.Ref)
	if decl == nil {
		return nil, ev.notConst(e, "unknown struct")
	}
	fields := slices.Clone(e.Struct.Fields)
	slices.SortStableFunc(fields, func(a, b ty.StructExprField) int {
		ia, _, _ := decl.FieldIndexAndType(a.Name)
		ib, _, _ := decl.FieldIndexAndType(b.Name)
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}
		return 0
	})
	var out []word
	for _, f := range fields {
		ws, err := ev.words(f.Value, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, ws...)
	}
	return out, nil
}

func (ev evaluator) literal(e *ty.Expr) (word, error) {
	var w word
	switch e.Literal.Kind {
	case ast.LitBool:
		if e.Literal.Text == "true" {
			w[WordSize-1] = 1
		}
	case ast.LitUint, ast.LitB256:
		v, ok := new(big.Int).SetString(e.Literal.Text, 0)
		if !ok || v.Sign() < 0 || v.BitLen() > WordSize*8 {
			return w, ev.notConst(e, fmt.Sprintf("`%s` does not fit in a storage word", e.Literal.Text))
		}
		v.FillBytes(w[:])
	}
	return w, nil
}

func stringWords(s string) []word {
	var length word
	new(big.Int).SetUint64(uint64(len(s))).FillBytes(length[:])
	out := []word{length}
	for b := []byte(s); len(b) > 0; {
		var w word
		n := copy(w[:], b)
		out = append(out, w)
		b = b[n:]
	}
	return out
}

func (ev evaluator) notConst(e *ty.Expr, msg string) error {
	return ev.h.EmitErr(diag.NewError(diag.ProgStorageNotConst, e.Span, msg))
}
