package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"keel/internal/source"
)

// TupleInfo stores the element types for a tuple type.
type TupleInfo struct {
	Elems []TypeID
}

// StructInfo describes a nominal struct instantiation.
// Decl identifies the declaration in the declaration engine.
type StructInfo struct {
	Decl uint32
	Name source.StringID
	Args []TypeID
}

// Tuple creates or finds an existing tuple type with the given elements.
// The empty tuple is unit.
func (in *Interner) Tuple(elems []TypeID) TypeID {
	key := compositeKey("t", 0, elems)
	if id, ok := in.composite[key]; ok {
		return id
	}
	in.tuples = append(in.tuples, TupleInfo{Elems: cloneTypeIDs(elems)})
	slot := mustSlot(len(in.tuples)-1, "tuple")
	return in.internComposite(key, Type{Kind: KindTuple, Payload: slot})
}

// TupleInfo returns the element types for a tuple TypeID.
func (in *Interner) TupleInfo(id TypeID) (*TupleInfo, bool) {
	tt, ok := in.Lookup(in.Resolve(id))
	if !ok || tt.Kind != KindTuple || int(tt.Payload) >= len(in.tuples) {
		return nil, false
	}
	return &in.tuples[tt.Payload], true
}

// IsUnit reports whether id resolves to the empty tuple.
func (in *Interner) IsUnit(id TypeID) bool {
	info, ok := in.TupleInfo(id)
	return ok && len(info.Elems) == 0
}

// Struct creates or finds the struct type for decl instantiated with args.
func (in *Interner) Struct(decl uint32, name source.StringID, args []TypeID) TypeID {
	key := compositeKey("s", decl, args)
	if id, ok := in.composite[key]; ok {
		return id
	}
	in.structs = append(in.structs, StructInfo{Decl: decl, Name: name, Args: cloneTypeIDs(args)})
	slot := mustSlot(len(in.structs)-1, "struct")
	return in.internComposite(key, Type{Kind: KindStruct, Payload: slot})
}

// StructInfo returns nominal information for a struct TypeID.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	tt, ok := in.Lookup(in.Resolve(id))
	if !ok || tt.Kind != KindStruct || int(tt.Payload) >= len(in.structs) {
		return nil, false
	}
	return &in.structs[tt.Payload], true
}

func compositeKey(prefix string, head uint32, elems []TypeID) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte(':')
	sb.WriteString(strconv.FormatUint(uint64(head), 10))
	for _, e := range elems {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatUint(uint64(e), 10))
	}
	return sb.String()
}

func cloneTypeIDs(ids []TypeID) []TypeID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]TypeID, len(ids))
	copy(out, ids)
	return out
}

func mustSlot(n int, what string) uint32 {
	slot, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("%s info overflow: %w", what, err))
	}
	return slot
}
