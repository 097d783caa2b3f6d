package ty

import (
	"cmp"
	"hash"
	"hash/fnv"

	"keel/internal/types"
)

// Declarations and fields are not comparable on their own: every relation
// below takes the type interner that canonicalizes their type handles.
// Spans and attributes never participate.

// FieldsEqual compares name and type. Visibility is not part of field
// identity.
func FieldsEqual(in *types.Interner, a, b *StructField) bool {
	return CompareFields(in, a, b) == 0
}

// CompareFields orders by name, then by type.
func CompareFields(in *types.Interner, a, b *StructField) int {
	if c := cmp.Compare(a.Name.Name, b.Name.Name); c != 0 {
		return c
	}
	return in.Compare(a.Type.Type, b.Type.Type)
}

// HashField feeds the identity of f into h consistently with FieldsEqual.
func HashField(in *types.Interner, h hash.Hash64, f *StructField) {
	_, _ = h.Write([]byte(f.Name.Name))
	_, _ = h.Write([]byte{0})
	in.HashInto(h, f.Type.Type)
}

// StructDeclsEqual compares name, fields, type parameters and visibility.
func StructDeclsEqual(in *types.Interner, a, b *StructDecl) bool {
	if a.Name().Name != b.Name().Name || a.Vis != b.Vis {
		return false
	}
	if len(a.Fields) != len(b.Fields) || len(a.TypeParams) != len(b.TypeParams) {
		return false
	}
	for i := range a.Fields {
		if !FieldsEqual(in, &a.Fields[i], &b.Fields[i]) {
			return false
		}
	}
	for i := range a.TypeParams {
		if !TypeParamsEqual(in, &a.TypeParams[i], &b.TypeParams[i]) {
			return false
		}
	}
	return true
}

// HashStructDecl returns a hash that agrees with StructDeclsEqual.
func HashStructDecl(in *types.Interner, d *StructDecl) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(d.Name().Name))
	_, _ = h.Write([]byte{0, byte(d.Vis)})
	for i := range d.Fields {
		HashField(in, h, &d.Fields[i])
	}
	for _, p := range d.TypeParams {
		_, _ = h.Write([]byte(p.Name.Name))
		_, _ = h.Write([]byte{0})
		in.HashInto(h, p.Type)
	}
	return h.Sum64()
}

// TypeParamsEqual compares parameter names and their type handles.
func TypeParamsEqual(in *types.Interner, a, b *TypeParameter) bool {
	return a.Name.Name == b.Name.Name && in.Equal(a.Type, b.Type)
}
