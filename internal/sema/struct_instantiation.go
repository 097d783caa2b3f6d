package sema

import (
	"fmt"
	"strings"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/namespace"
	"keel/internal/source"
	"keel/internal/ty"
	"keel/internal/types"
)

const (
	helpStructField = "Struct field's type must match the type specified in its declaration."
	helpStructType  = "Struct type must match the type specified in its declaration."
)

// checkStructInstantiation checks a struct literal against its declaration.
//
// Missing fields are only reported when the struct can be instantiated at
// all: from outside the declaring module subtree a struct with private
// fields gets a single "cannot be instantiated" error instead. Unknown and
// private supplied fields are always reported. Apart from prefix type
// arguments and an unreachable module, every problem is recovered from and
// an expression is returned.
func checkStructInstantiation(h *diag.Handler, c Context, e *ast.Expr) (*ty.Expr, error) {
	se := e.Struct
	binding := se.Binding
	path := binding.Inner
	in := c.types()
	span := e.Span

	out := &ty.Expr{
		Kind: ty.ExprStruct,
		Type: c.errorType(),
		Span: span,
		Struct: &ty.StructExpr{
			InstantiationSpan: binding.Span,
			Binding:           binding,
		},
	}

	// Resolved for tooling even when the literal fails to check.
	out.Struct.TypeArgs, _ = resolveTypeArgs(diag.Discard(), c, binding.TypeArgs)

	if binding.TypeArgs.Kind == ast.TypeArgsPrefix && !binding.TypeArgs.IsEmpty() {
		return out, typeArgsAsPrefix(h, binding.TypeArgs.Span)
	}
	isSelf := len(path.Prefixes) == 0 && !path.IsAbsolute && path.Suffix.Name == selfTypeName
	if isSelf && !binding.TypeArgs.IsEmpty() {
		return out, typeArgsNotAllowed(h, path.Suffix, path.Suffix.Span)
	}

	if !isSelf {
		abs := c.ns.ModulePathOf(path)
		if err := c.ns.CheckSubmodule(h, abs, path.Span()); err != nil {
			return out, err
		}
	}

	typ, ref, working, err := resolveStructTarget(h, c, binding, isSelf)
	if err != nil {
		out.Struct.Fields = recoverFields(h, c, se.Fields)
		return out, err
	}
	out.Struct.Ref = ref
	if info, ok := in.StructInfo(typ); ok {
		out.Struct.TypeArgs = info.Args
	}
	name := working.Name()
	prefixes := working.CallPath.PrefixNames()

	canBeAdapted := !c.ns.ModuleIsExternal(prefixes)
	outOfDecl := !c.ns.ModuleIsSubmoduleOf(prefixes, true)
	instantiable := !outOfDecl || !working.HasPrivateFields()

	var first firstError
	fields, missing, err := checkFieldArguments(h, c, se.Fields, &working, span)
	first.add(err)
	out.Struct.Fields = fields

	switch {
	case !instantiable:
		first.add(h.EmitErr(cannotBeInstantiated(&working, span, canBeAdapted)))
	case len(missing) > 0:
		first.add(h.EmitErr(missingFields(&working, missing, span)))
	}

	first.add(unifyFieldArguments(h, c, fields, &working))

	// pins parameters that no field mentions
	first.add(emittedOrNil(c.WithHelpText(helpStructType).Unify(h, typ, span)))

	for _, f := range se.Fields {
		if _, ok := working.FindField(f.Name); ok {
			continue
		}
		d := diag.NewError(diag.SemaStructNoSuchField, f.Name.Span,
			fmt.Sprintf("struct `%s` does not have a field `%s`", name.Name, f.Name.Name))
		if avail := working.AvailableFieldNames(outOfDecl); len(avail) > 0 {
			d = d.WithNote(working.Span, "available fields: "+joinIdents(avail))
		}
		first.add(h.EmitErr(d))
	}

	if outOfDecl {
		for _, f := range se.Fields {
			decl, ok := working.FindField(f.Name)
			if !ok || !decl.IsPrivate() {
				continue
			}
			first.add(h.EmitErr(diag.NewError(diag.SemaStructFieldIsPrivate, f.Name.Span,
				fmt.Sprintf("field `%s` of struct `%s` is private", f.Name.Name, name.Name)).
				WithNote(decl.Name.Span, "field declared here")))
		}
	}

	// Type parameters bound on a throwaway namespace view.
	scoped := c.Scoped(c.ns.Scoped()).WithShadowing(namespace.ShadowingAllow)
	scoped.ns.PushScope()
	first.add(bindTypeParams(h, scoped, working.TypeParams))

	out.Type = typ
	return out, first.err
}

// resolveStructTarget finds the declaration a struct literal names and
// instantiates it. Self refers to the enclosing struct.
func resolveStructTarget(h *diag.Handler, c Context, binding ast.TypeBinding, isSelf bool) (types.TypeID, ty.StructRef, ty.StructDecl, error) {
	in := c.types()
	if isSelf {
		if c.selfType == types.NoTypeID {
			return c.errorType(), 0, ty.StructDecl{}, h.EmitErr(diag.NewError(diag.SemaSelfOutsideImpl,
				binding.Inner.Suffix.Span, "`Self` is only available inside a declaration that defines it"))
		}
		info, ok := in.StructInfo(c.selfType)
		if !ok {
			return c.errorType(), 0, ty.StructDecl{}, h.EmitErr(diag.NewError(diag.SemaNotAStruct,
				binding.Inner.Suffix.Span, fmt.Sprintf("`Self` is `%s`, not a struct", types.Label(in, c.selfType))))
		}
		ref := ty.StructRef(info.Decl)
		typ, working, err := instantiateStruct(h, c, ref, info.Args, binding.Span)
		return typ, ref, working, err
	}

	it, err := c.ns.ResolveCallPath(h, binding.Inner)
	if err != nil {
		return c.errorType(), 0, ty.StructDecl{}, err
	}
	if it.Kind != namespace.ItemStruct {
		return c.errorType(), 0, ty.StructDecl{}, h.EmitErr(diag.NewError(diag.SemaNotAStruct, binding.Inner.Span(),
			fmt.Sprintf("expected a struct, found %s `%s`", it.Kind, it.Name.Name)).
			WithNote(it.Name.Span, "declared here"))
	}
	args, err := resolveTypeArgs(h, c, binding.TypeArgs)
	if err != nil {
		return c.errorType(), it.Struct, ty.StructDecl{}, err
	}
	typ, working, err := instantiateStruct(h, c, it.Struct, args, binding.Span)
	return typ, it.Struct, working, err
}

// checkFieldArguments checks the supplied value of every declared field in
// declaration order. Fields without a value get an error-recovery
// placeholder and are returned as missing. The span of each supplied field
// on working is moved to its value.
func checkFieldArguments(h *diag.Handler, c Context, supplied []ast.StructExprField, working *ty.StructDecl, span source.Span) ([]ty.StructExprField, []source.Ident, error) {
	var (
		first   firstError
		fields  = make([]ty.StructExprField, 0, len(working.Fields))
		missing []source.Ident
	)
	for i := range working.Fields {
		decl := &working.Fields[i]
		arg, ok := findSupplied(supplied, decl.Name)
		if !ok {
			missing = append(missing, decl.Name)
			// reported once for all missing fields by the caller
			fields = append(fields, ty.StructExprField{
				Name:  decl.Name,
				Value: ty.Placeholder(c.errorType(), span),
			})
			continue
		}
		fc := c.WithHelpText(helpStructField).
			WithTypeAnnotation(decl.Type.Type).
			WithUnifyGeneric(true)
		value, err := CheckExpr(h, fc, arg.Value)
		first.add(err)
		fields = append(fields, ty.StructExprField{Name: arg.Name, Value: value})
		if arg.Value != nil {
			decl.Span = arg.Value.Span
		}
	}
	return fields, missing, first.err
}

// unifyFieldArguments propagates the bindings made while checking field
// values back onto the declared field types.
func unifyFieldArguments(h *diag.Handler, c Context, fields []ty.StructExprField, working *ty.StructDecl) error {
	in := c.types()
	return h.Scope(func(h *diag.Handler) error {
		for i := range working.Fields {
			decl := &working.Fields[i]
			for _, f := range fields {
				if f.Name.Name != decl.Name.Name || f.Value == nil {
					continue
				}
				in.UnifyWithGeneric(h, f.Value.Type, decl.Type.Type, f.Value.Span, helpStructField)
				break
			}
		}
		return nil
	})
}

func findSupplied(fields []ast.StructExprField, name source.Ident) (ast.StructExprField, bool) {
	for _, f := range fields {
		if f.Name.Name == name.Name {
			return f, true
		}
	}
	return ast.StructExprField{}, false
}

// recoverFields checks supplied values without expectations so their own
// errors still surface when the struct itself could not be resolved.
func recoverFields(h *diag.Handler, c Context, supplied []ast.StructExprField) []ty.StructExprField {
	out := make([]ty.StructExprField, len(supplied))
	fc := c.WithTypeAnnotation(types.NoTypeID)
	for i, f := range supplied {
		value, _ := CheckExpr(h, fc, f.Value)
		out[i] = ty.StructExprField{Name: f.Name, Value: value}
	}
	return out
}

func missingFields(d *ty.StructDecl, missing []source.Ident, span source.Span) diag.Diagnostic {
	noun := "field"
	if len(missing) > 1 {
		noun = "fields"
	}
	return diag.NewError(diag.SemaStructMissingFields, span,
		fmt.Sprintf("instantiation of struct `%s` is missing %s %s", d.Name().Name, noun, joinIdents(missing))).
		WithNote(d.Span, fmt.Sprintf("struct `%s` is declared here and has %d field(s)", d.Name().Name, len(d.Fields)))
}

func cannotBeInstantiated(d *ty.StructDecl, span source.Span, canBeAdapted bool) diag.Diagnostic {
	name := d.Name().Name
	private := d.PrivateFieldNames()
	out := diag.NewError(diag.SemaStructCannotBeInstantiated, span,
		fmt.Sprintf("struct `%s` cannot be instantiated here because it has private fields", name))
	if d.HasOnlyPrivateFields() {
		out = out.WithNote(d.Span, fmt.Sprintf("all fields of `%s` are private", name))
	} else {
		out = out.WithNote(d.Span, fmt.Sprintf("private fields of `%s`: %s", name, joinIdents(private)))
	}
	if !canBeAdapted {
		return out.WithNote(d.Span, fmt.Sprintf("`%s` is declared in a dependency; use a constructor function it provides", name))
	}
	edits := make([]diag.FixEdit, 0, len(private))
	for _, f := range private {
		at := f.Span
		at.End = at.Start
		edits = append(edits, diag.FixEdit{Span: at, NewText: "pub "})
	}
	out = out.WithNote(d.Span, fmt.Sprintf("consider making the fields public or adding a constructor function to `%s`", name))
	return out.WithFix("make private fields public", edits...)
}

func joinIdents(ids []source.Ident) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = "`" + id.Name + "`"
	}
	return strings.Join(names, ", ")
}
