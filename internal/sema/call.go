package sema

import (
	"fmt"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/namespace"
	"keel/internal/ty"
	"keel/internal/types"
)

// checkCall checks a function application. Generic functions get one open
// copy of each type parameter per call; explicit type arguments replace
// them.
func checkCall(h *diag.Handler, c Context, e *ast.Expr) (*ty.Expr, error) {
	call := e.Call
	in := c.types()
	out := &ty.Expr{
		Kind: ty.ExprCall,
		Type: c.errorType(),
		Span: e.Span,
		Call: &ty.CallExpr{Name: call.Binding.Inner.Suffix},
	}
	fail := func(err error) (*ty.Expr, error) {
		out.Call.Args, _ = checkArgs(h, c, call.Args)
		return out, err
	}

	if call.Binding.TypeArgs.Kind == ast.TypeArgsPrefix && !call.Binding.TypeArgs.IsEmpty() {
		return fail(typeArgsAsPrefix(h, call.Binding.TypeArgs.Span))
	}
	it, err := c.ns.ResolveCallPath(h, call.Binding.Inner)
	if err != nil {
		return fail(err)
	}
	if it.Kind != namespace.ItemFunction {
		return fail(h.EmitErr(diag.NewError(diag.SemaNotAFunction, call.Binding.Inner.Span(),
			fmt.Sprintf("expected a function, found %s `%s`", it.Kind, it.Name.Name)).
			WithNote(it.Name.Span, "declared here")))
	}
	fn := c.decls().Function(it.Fn)
	out.Call.Fn = it.Fn

	explicit, err := resolveTypeArgs(h, c, call.Binding.TypeArgs)
	if err != nil {
		return fail(err)
	}
	params := make([]types.TypeID, len(fn.TypeParams))
	for i, p := range fn.TypeParams {
		params[i] = p.Type
	}
	var args []types.TypeID
	switch {
	case len(explicit) > 0 && len(params) == 0:
		return fail(typeArgsNotAllowed(h, fn.Name(), call.Binding.TypeArgs.Span))
	case len(explicit) > 0 && len(explicit) != len(params):
		return fail(h.EmitErr(diag.NewError(diag.SemaTypeArgCount, call.Binding.TypeArgs.Span,
			fmt.Sprintf("function `%s` expects %d type argument(s), found %d", fn.Name().Name, len(params), len(explicit))).
			WithNote(fn.Span, "declared here")))
	case len(explicit) > 0:
		args = explicit
	default:
		args = make([]types.TypeID, len(params))
		for i, p := range params {
			args[i] = in.FreshTypeParam(p)
		}
	}
	m := types.NewSubstMap(params, args)
	out.Call.TypeArgs = args

	var first firstError
	if len(call.Args) != len(fn.Params) {
		first.add(h.EmitErr(diag.NewError(diag.SemaArgumentCount, e.Span,
			fmt.Sprintf("function `%s` takes %d argument(s) but %d were supplied", fn.Name().Name, len(fn.Params), len(call.Args))).
			WithNote(fn.Span, "declared here")))
	}
	out.Call.Args = make([]*ty.Expr, len(call.Args))
	for i, a := range call.Args {
		ac := c.WithTypeAnnotation(types.NoTypeID)
		if i < len(fn.Params) {
			ac = c.WithTypeAnnotation(in.Subst(fn.Params[i].Type.Type, m)).
				WithHelpText(helpArgument).
				WithUnifyGeneric(true)
		}
		var err error
		out.Call.Args[i], err = CheckExpr(h, ac, a)
		first.add(err)
	}
	out.Type = in.Subst(fn.Return.Type, m)
	return out, first.err
}
