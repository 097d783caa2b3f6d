package types

import (
	"cmp"
	"encoding/binary"
	"hash"
	"hash/fnv"
)

// Equal reports whether a and b denote the same type after following
// bindings. Variables and generic parameters are equal only to themselves.
func (in *Interner) Equal(a, b TypeID) bool {
	return in.Compare(a, b) == 0
}

// Compare imposes a total order on resolved types. It is consistent with
// Equal and Hash.
func (in *Interner) Compare(a, b TypeID) int {
	return in.compareDepth(a, b, 0)
}

func (in *Interner) compareDepth(a, b TypeID, depth int) int {
	a, b = in.Resolve(a), in.Resolve(b)
	if a == b {
		return 0
	}
	ta, _ := in.Lookup(a)
	tb, _ := in.Lookup(b)
	if c := cmp.Compare(ta.Kind, tb.Kind); c != 0 {
		return c
	}
	if depth > maxTypeDepth {
		return cmp.Compare(a, b)
	}
	switch ta.Kind {
	case KindUint:
		return cmp.Compare(ta.Width, tb.Width)
	case KindBool, KindB256, KindStr, KindSelf, KindErrorRecovery, KindInvalid:
		return 0
	case KindTuple:
		ea, _ := in.TupleInfo(a)
		eb, _ := in.TupleInfo(b)
		return in.compareLists(elemsOf(ea), elemsOf(eb), depth)
	case KindStruct:
		sa, _ := in.StructInfo(a)
		sb, _ := in.StructInfo(b)
		if c := cmp.Compare(sa.Decl, sb.Decl); c != 0 {
			return c
		}
		if c := cmp.Compare(sa.Name, sb.Name); c != 0 {
			return c
		}
		return in.compareLists(sa.Args, sb.Args, depth)
	default:
		// variables and parameters compare by identity
		return cmp.Compare(ta.Payload, tb.Payload)
	}
}

func (in *Interner) compareLists(a, b []TypeID, depth int) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	for i := range a {
		if c := in.compareDepth(a[i], b[i], depth+1); c != 0 {
			return c
		}
	}
	return 0
}

// Hash returns a structural hash of id that agrees with Equal.
func (in *Interner) Hash(id TypeID) uint64 {
	h := fnv.New64a()
	in.hashInto(h, id, 0)
	return h.Sum64()
}

// HashInto feeds the structural hash of id into h.
func (in *Interner) HashInto(h hash.Hash64, id TypeID) {
	in.hashInto(h, id, 0)
}

func (in *Interner) hashInto(h hash.Hash64, id TypeID, depth int) {
	id = in.Resolve(id)
	tt, _ := in.Lookup(id)
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	write(uint64(tt.Kind))
	if depth > maxTypeDepth {
		return
	}
	switch tt.Kind {
	case KindUint:
		write(uint64(tt.Width))
	case KindTuple:
		info, _ := in.TupleInfo(id)
		elems := elemsOf(info)
		write(uint64(len(elems)))
		for _, e := range elems {
			in.hashInto(h, e, depth+1)
		}
	case KindStruct:
		info, _ := in.StructInfo(id)
		write(uint64(info.Decl))
		write(uint64(info.Name))
		write(uint64(len(info.Args)))
		for _, a := range info.Args {
			in.hashInto(h, a, depth+1)
		}
	case KindGenericParam, KindUnknown, KindNumeric:
		write(uint64(tt.Payload))
	}
}

// Occurs reports whether the variable v appears inside t.
func (in *Interner) Occurs(v, t TypeID) bool {
	return in.occursDepth(in.Resolve(v), t, 0)
}

func (in *Interner) occursDepth(v, t TypeID, depth int) bool {
	t = in.Resolve(t)
	if t == v {
		return true
	}
	if depth > maxTypeDepth {
		return false
	}
	tt, _ := in.Lookup(t)
	switch tt.Kind {
	case KindTuple:
		info, _ := in.TupleInfo(t)
		for _, e := range elemsOf(info) {
			if in.occursDepth(v, e, depth+1) {
				return true
			}
		}
	case KindStruct:
		info, _ := in.StructInfo(t)
		for _, a := range info.Args {
			if in.occursDepth(v, a, depth+1) {
				return true
			}
		}
	}
	return false
}

// HasUnresolved reports whether id still mentions an unbound inference
// variable or open generic parameter.
func (in *Interner) HasUnresolved(id TypeID) bool {
	return in.hasUnresolved(id, 0)
}

func (in *Interner) hasUnresolved(id TypeID, depth int) bool {
	id = in.Resolve(id)
	tt, ok := in.Lookup(id)
	if !ok || depth > maxTypeDepth {
		return false
	}
	switch tt.Kind {
	case KindUnknown, KindNumeric:
		return true
	case KindGenericParam:
		return in.IsOpenParam(id)
	case KindTuple:
		info, _ := in.TupleInfo(id)
		for _, e := range elemsOf(info) {
			if in.hasUnresolved(e, depth+1) {
				return true
			}
		}
	case KindStruct:
		info, _ := in.StructInfo(id)
		for _, a := range info.Args {
			if in.hasUnresolved(a, depth+1) {
				return true
			}
		}
	}
	return false
}

const maxTypeDepth = 64

func elemsOf(info *TupleInfo) []TypeID {
	if info == nil {
		return nil
	}
	return info.Elems
}
