package ty

import (
	"iter"

	"keel/internal/ast"
	"keel/internal/source"
	"keel/internal/types"
)

// TypeArgument is a resolved type together with where it was written.
// Initial keeps the type before any substitution was applied.
type TypeArgument struct {
	Type    types.TypeID
	Initial types.TypeID
	Span    source.Span
}

// Arg wraps id as a TypeArgument with no source location.
func Arg(id types.TypeID) TypeArgument {
	return TypeArgument{Type: id, Initial: id}
}

// TypeParameter is a declared generic parameter and its rigid type handle.
type TypeParameter struct {
	Name source.Ident
	Type types.TypeID
}

// StructField is one declared field of a struct.
type StructField struct {
	Vis   ast.Visibility
	Name  source.Ident
	Span  source.Span
	Type  TypeArgument
	Attrs []ast.Attr
}

func (f *StructField) IsPrivate() bool { return f.Vis == ast.VisPrivate }
func (f *StructField) IsPublic() bool  { return f.Vis == ast.VisPublic }

// StructDecl is a checked struct declaration. Fields are kept in declaration
// order, which is also assumed to be their memory layout order.
type StructDecl struct {
	CallPath   ast.CallPath
	Fields     []StructField
	TypeParams []TypeParameter
	Vis        ast.Visibility
	Span       source.Span
	Attrs      []ast.Attr
}

// Name returns the declared struct name.
func (d *StructDecl) Name() source.Ident {
	return d.CallPath.Suffix
}

// AvailableFields yields the fields visible in the given context. With
// publicOnly set only public fields are yielded.
func (d *StructDecl) AvailableFields(publicOnly bool) iter.Seq[*StructField] {
	return func(yield func(*StructField) bool) {
		for i := range d.Fields {
			f := &d.Fields[i]
			if publicOnly && !f.IsPublic() {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

// AvailableFieldNames lists the names of AvailableFields, for diagnostics.
func (d *StructDecl) AvailableFieldNames(publicOnly bool) []source.Ident {
	var names []source.Ident
	for f := range d.AvailableFields(publicOnly) {
		names = append(names, f.Name)
	}
	return names
}

// FindField returns the field called name.
func (d *StructDecl) FindField(name source.Ident) (*StructField, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name.Name == name.Name {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

// FieldIndexAndType returns the zero-based layout position and the type of
// the field called name.
func (d *StructDecl) FieldIndexAndType(name source.Ident) (uint64, types.TypeID, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name.Name == name.Name {
			return uint64(i), d.Fields[i].Type.Type, true
		}
	}
	return 0, types.NoTypeID, false
}

func (d *StructDecl) HasPrivateFields() bool {
	for i := range d.Fields {
		if d.Fields[i].IsPrivate() {
			return true
		}
	}
	return false
}

// HasOnlyPrivateFields reports whether the struct has fields and none of
// them is public.
func (d *StructDecl) HasOnlyPrivateFields() bool {
	if d.IsEmpty() {
		return false
	}
	for i := range d.Fields {
		if !d.Fields[i].IsPrivate() {
			return false
		}
	}
	return true
}

func (d *StructDecl) IsEmpty() bool {
	return len(d.Fields) == 0
}

// PrivateFieldNames lists private fields in declaration order.
func (d *StructDecl) PrivateFieldNames() []source.Ident {
	var names []source.Ident
	for i := range d.Fields {
		if d.Fields[i].IsPrivate() {
			names = append(names, d.Fields[i].Name)
		}
	}
	return names
}

// TypeParamIDs returns the rigid handles of the declared type parameters.
func (d *StructDecl) TypeParamIDs() []types.TypeID {
	out := make([]types.TypeID, len(d.TypeParams))
	for i, p := range d.TypeParams {
		out[i] = p.Type
	}
	return out
}

// Subst returns a copy of d with m applied to every field type and type
// parameter. The receiver is left untouched.
func (d *StructDecl) Subst(in *types.Interner, m types.SubstMap) StructDecl {
	out := *d
	out.Fields = make([]StructField, len(d.Fields))
	copy(out.Fields, d.Fields)
	out.TypeParams = make([]TypeParameter, len(d.TypeParams))
	copy(out.TypeParams, d.TypeParams)
	if m.IsEmpty() {
		return out
	}
	for i := range out.Fields {
		out.Fields[i].Type.Type = in.Subst(out.Fields[i].Type.Type, m)
	}
	for i := range out.TypeParams {
		out.TypeParams[i].Type = in.Subst(out.TypeParams[i].Type, m)
	}
	return out
}
