package sema

import (
	"fmt"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/namespace"
	"keel/internal/source"
	"keel/internal/ty"
	"keel/internal/types"
)

const selfTypeName = "Self"

// ResolveType turns a type annotation into a handle. A nil annotation is
// unit. Failures are reported and yield the error-recovery type.
func ResolveType(h *diag.Handler, c Context, te *ast.TypeExpr) (types.TypeID, error) {
	if te == nil {
		return c.unit(), nil
	}
	switch te.Kind {
	case ast.TypeExprTuple:
		elems := make([]types.TypeID, len(te.Elems))
		var firstErr error
		for i, el := range te.Elems {
			id, err := ResolveType(h, c, el)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			elems[i] = id
		}
		return c.types().Tuple(elems), firstErr
	case ast.TypeExprNamed:
		return resolveNamed(h, c, te.Named)
	}
	return c.errorType(), h.EmitErr(diag.NewError(diag.SemaUnknownType, te.Span, "unsupported type expression"))
}

func resolveNamed(h *diag.Handler, c Context, b ast.TypeBinding) (types.TypeID, error) {
	path := b.Inner
	if len(path.Prefixes) == 0 && !path.IsAbsolute {
		if id, ok := builtinType(c.types(), path.Suffix.Name); ok {
			if !b.TypeArgs.IsEmpty() {
				return c.errorType(), typeArgsNotAllowed(h, path.Suffix, b.TypeArgs.Span)
			}
			return id, nil
		}
		if path.Suffix.Name == selfTypeName {
			if !b.TypeArgs.IsEmpty() {
				return c.errorType(), typeArgsNotAllowed(h, path.Suffix, b.TypeArgs.Span)
			}
			if c.selfType == types.NoTypeID {
				return c.errorType(), h.EmitErr(diag.NewError(diag.SemaSelfOutsideImpl, path.Suffix.Span,
					"`Self` is only available inside a declaration that defines it"))
			}
			return c.selfType, nil
		}
	}
	if b.TypeArgs.Kind == ast.TypeArgsPrefix && !b.TypeArgs.IsEmpty() {
		return c.errorType(), typeArgsAsPrefix(h, b.TypeArgs.Span)
	}
	it, err := c.ns.ResolveCallPath(h, path)
	if err != nil {
		return c.errorType(), err
	}
	switch it.Kind {
	case namespace.ItemTypeParam:
		if !b.TypeArgs.IsEmpty() {
			return c.errorType(), typeArgsNotAllowed(h, path.Suffix, b.TypeArgs.Span)
		}
		return it.Type, nil
	case namespace.ItemStruct:
		args, err := resolveTypeArgs(h, c, b.TypeArgs)
		if err != nil {
			return c.errorType(), err
		}
		typ, _, err := instantiateStruct(h, c, it.Struct, args, b.Span)
		return typ, err
	}
	return c.errorType(), h.EmitErr(diag.NewError(diag.SemaUnknownType, path.Suffix.Span,
		fmt.Sprintf("expected a type, found %s `%s`", it.Kind, path.Suffix.Name)))
}

func builtinType(in *types.Interner, name string) (types.TypeID, bool) {
	b := in.Builtins()
	switch name {
	case "u8":
		return b.U8, true
	case "u16":
		return b.U16, true
	case "u32":
		return b.U32, true
	case "u64":
		return b.U64, true
	case "u256":
		return b.U256, true
	case "bool":
		return b.Bool, true
	case "str":
		return b.Str, true
	case "b256":
		return b.B256, true
	}
	return types.NoTypeID, false
}

func resolveTypeArgs(h *diag.Handler, c Context, args ast.TypeArgs) ([]types.TypeID, error) {
	if args.IsEmpty() {
		return nil, nil
	}
	out := make([]types.TypeID, len(args.Args))
	err := h.Scope(func(h *diag.Handler) error {
		for i, a := range args.Args {
			out[i], _ = ResolveType(h, c, a)
		}
		return nil
	})
	return out, err
}

// instantiateStruct builds the type of the struct ref applied to args and a
// working copy of its declaration with the arguments substituted. Without
// args a generic struct gets fresh open parameters that later unification
// pins down.
func instantiateStruct(h *diag.Handler, c Context, ref ty.StructRef, args []types.TypeID, span source.Span) (types.TypeID, ty.StructDecl, error) {
	in := c.types()
	decl := c.decls().Struct(ref)
	if decl == nil {
		return c.errorType(), ty.StructDecl{}, h.EmitErr(diag.NewError(diag.SemaNotAStruct, span, "unknown struct declaration"))
	}
	params := decl.TypeParamIDs()
	switch {
	case len(args) == 0 && len(params) > 0:
		args = make([]types.TypeID, len(params))
		for i, p := range params {
			args[i] = in.FreshTypeParam(p)
		}
	case len(args) != len(params):
		return c.errorType(), *decl, h.EmitErr(diag.NewError(diag.SemaTypeArgCount, span,
			fmt.Sprintf("struct `%s` expects %d type argument(s), found %d", decl.Name().Name, len(params), len(args))).
			WithNote(decl.Span, "declared here"))
	}
	working := decl.Subst(in, types.NewSubstMap(params, args))
	name := in.Strings().Intern(decl.Name().Name)
	return in.Struct(uint32(ref), name, args), working, nil
}

func typeArgsNotAllowed(h *diag.Handler, name source.Ident, span source.Span) error {
	return h.EmitErr(diag.NewError(diag.SemaTypeArgsNotAllowed, span,
		fmt.Sprintf("type arguments are not allowed on `%s`", name.Name)))
}

func typeArgsAsPrefix(h *diag.Handler, span source.Span) error {
	return h.EmitErr(diag.NewError(diag.SemaTypeArgsAsPrefix, span,
		"type arguments are only supported after the final path segment"))
}
