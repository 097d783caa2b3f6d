package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindTuple covers unit as the empty tuple.
	KindTuple
	KindBool
	KindUint
	KindB256
	KindStr
	// KindNumeric is an integer literal whose width is not yet known.
	KindNumeric
	KindStruct
	KindGenericParam
	// KindUnknown is an inference variable.
	KindUnknown
	KindSelf
	KindErrorRecovery
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindTuple:
		return "tuple"
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindB256:
		return "b256"
	case KindStr:
		return "str"
	case KindNumeric:
		return "numeric"
	case KindStruct:
		return "struct"
	case KindGenericParam:
		return "generic"
	case KindUnknown:
		return "unknown"
	case KindSelf:
		return "self"
	case KindErrorRecovery:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of unsigned integers.
type Width uint16

const (
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
	Width256 Width = 256
)

// Type is a compact descriptor for any supported type.
// Payload indexes a kind-specific side table (tuples, structs, params)
// or carries a unique serial for inference variables.
type Type struct {
	Kind    Kind
	Width   Width
	Payload uint32
}

// MakeUint builds an unsigned integer descriptor.
func MakeUint(w Width) Type {
	return Type{Kind: KindUint, Width: w}
}

// IsVariable reports whether the kind can be bound by unification.
func (k Kind) IsVariable() bool {
	return k == KindUnknown || k == KindNumeric
}
