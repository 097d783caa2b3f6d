package types

import (
	"fmt"

	"fortio.org/safecast"

	"keel/internal/source"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid       TypeID
	Unit          TypeID
	Bool          TypeID
	U8            TypeID
	U16           TypeID
	U32           TypeID
	U64           TypeID
	U256          TypeID
	B256          TypeID
	Str           TypeID
	Self          TypeID
	ErrorRecovery TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Handles are stable for the lifetime of the interner; equality of types
// is decided over resolved descriptors, not over handles.
type Interner struct {
	types     []Type
	index     map[typeKey]TypeID
	composite map[string]TypeID
	bound     []TypeID
	builtins  Builtins
	tuples    []TupleInfo
	structs   []StructInfo
	params    []TypeParamInfo
	serial    uint32
	strings   *source.Interner
}

// NewInterner constructs an interner seeded with built-in primitives.
// Struct and generic parameter names are resolved through strings; a nil
// value allocates a private string interner.
func NewInterner(strings *source.Interner) *Interner {
	if strings == nil {
		strings = source.NewInterner()
	}
	in := &Interner{
		index:     make(map[typeKey]TypeID, 64),
		composite: make(map[string]TypeID, 64),
		strings:   strings,
	}
	in.tuples = append(in.tuples, TupleInfo{}) // reserve 0 as invalid sentinel
	in.structs = append(in.structs, StructInfo{})
	in.params = append(in.params, TypeParamInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Tuple(nil)
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.U8 = in.Intern(MakeUint(Width8))
	in.builtins.U16 = in.Intern(MakeUint(Width16))
	in.builtins.U32 = in.Intern(MakeUint(Width32))
	in.builtins.U64 = in.Intern(MakeUint(Width64))
	in.builtins.U256 = in.Intern(MakeUint(Width256))
	in.builtins.B256 = in.Intern(Type{Kind: KindB256})
	in.builtins.Str = in.Intern(Type{Kind: KindStr})
	in.builtins.Self = in.Intern(Type{Kind: KindSelf})
	in.builtins.ErrorRecovery = in.Intern(Type{Kind: KindErrorRecovery})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Strings exposes the string interner used for type names.
func (in *Interner) Strings() *source.Interner {
	return in.strings
}

// Intern ensures the provided descriptor has a stable TypeID.
// Variables never deduplicate; use FreshUnknown and FreshNumeric for them.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.bound = append(in.bound, NoTypeID)
	in.index[typeKey(t)] = id
	return id
}

func (in *Interner) internComposite(key string, t Type) TypeID {
	if id, ok := in.composite[key]; ok {
		return id
	}
	id := in.internRaw(t)
	in.composite[key] = id
	return id
}

// Lookup returns the raw descriptor for a TypeID without following bindings.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Get returns the descriptor the handle currently stands for, following
// inference bindings.
func (in *Interner) Get(id TypeID) Type {
	tt, _ := in.Lookup(in.Resolve(id))
	return tt
}

// Resolve follows variable bindings until it reaches an unbound variable
// or a concrete type.
func (in *Interner) Resolve(id TypeID) TypeID {
	for range len(in.bound) + 1 {
		if id == NoTypeID || int(id) >= len(in.bound) || in.bound[id] == NoTypeID {
			return id
		}
		id = in.bound[id]
	}
	return id
}

// IsBound reports whether the variable has been assigned by unification.
func (in *Interner) IsBound(id TypeID) bool {
	return id != NoTypeID && int(id) < len(in.bound) && in.bound[id] != NoTypeID
}

// Len reports how many handles have been allocated, including the sentinel.
func (in *Interner) Len() int {
	return len(in.types)
}

// FreshUnknown allocates an unbound inference variable.
func (in *Interner) FreshUnknown() TypeID {
	in.serial++
	return in.internRaw(Type{Kind: KindUnknown, Payload: in.serial})
}

// FreshNumeric allocates an integer literal variable that can only be bound
// to an unsigned integer or another numeric variable.
func (in *Interner) FreshNumeric() TypeID {
	in.serial++
	return in.internRaw(Type{Kind: KindNumeric, Payload: in.serial})
}

// Uint returns the unsigned integer type of the given width.
func (in *Interner) Uint(w Width) TypeID {
	return in.Intern(MakeUint(w))
}

type typeKey struct {
	Kind    Kind
	Width   Width
	Payload uint32
}
