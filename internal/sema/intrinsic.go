package sema

import (
	"fmt"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/ty"
	"keel/internal/types"
)

type intrinsicSig struct {
	typeArgs int
	args     int
}

var intrinsicSigs = map[ty.Intrinsic]intrinsicSig{
	ty.IntrinsicDecodeSelector: {typeArgs: 1},
	ty.IntrinsicDecodeArg:      {typeArgs: 1, args: 1},
	ty.IntrinsicEq:             {args: 2},
	ty.IntrinsicEncodeReturn:   {args: 1},
	ty.IntrinsicRevert:         {args: 1},
	ty.IntrinsicLog:            {args: 1},
	ty.IntrinsicSmo:            {args: 2},
}

// checkIntrinsic checks a compiler built-in. Each one has a fixed number of
// type arguments and arguments:
//
//	__decode_selector::<T>() -> T
//	__decode_arg::<T>(index: u64) -> T
//	__eq(a: T, b: T) -> bool
//	__encode_return(value) -> ()
//	__revert(code: u64) -> ()
//	__log(value) -> ()
//	__smo(recipient: b256, message) -> ()
func checkIntrinsic(h *diag.Handler, c Context, e *ast.Expr) (*ty.Expr, error) {
	ie := e.Intrinsic
	b := c.types().Builtins()
	kind, ok := ty.LookupIntrinsic(ie.Name.Name)
	out := &ty.Expr{
		Kind:      ty.ExprIntrinsic,
		Type:      c.errorType(),
		Span:      e.Span,
		Intrinsic: &ty.IntrinsicExpr{Kind: kind, Name: ie.Name},
	}
	fail := func(err error) (*ty.Expr, error) {
		out.Intrinsic.Args, _ = checkArgs(h, c, ie.Args)
		return out, err
	}
	if !ok {
		return fail(h.EmitErr(diag.NewError(diag.SemaUnknownIntrinsic, ie.Name.Span,
			fmt.Sprintf("unknown intrinsic `%s`", ie.Name.Name))))
	}
	typeArgs, err := resolveTypeArgs(h, c, ie.TypeArgs)
	if err != nil {
		return fail(err)
	}
	sig := intrinsicSigs[kind]
	if len(typeArgs) != sig.typeArgs || len(ie.Args) != sig.args {
		return fail(h.EmitErr(diag.NewError(diag.SemaIntrinsicArgs, e.Span,
			fmt.Sprintf("`%s` expects %d type argument(s) and %d argument(s), found %d and %d",
				kind, sig.typeArgs, sig.args, len(typeArgs), len(ie.Args)))))
	}
	out.Intrinsic.TypeArgs = typeArgs

	annotated := func(t types.TypeID) Context {
		return c.WithTypeAnnotation(t).WithUnifyGeneric(false).WithHelpText("")
	}
	var first firstError
	check := func(ac Context, arg *ast.Expr) *ty.Expr {
		ex, err := CheckExpr(h, ac, arg)
		first.add(err)
		out.Intrinsic.Args = append(out.Intrinsic.Args, ex)
		return ex
	}

	switch kind {
	case ty.IntrinsicDecodeSelector:
		out.Type = typeArgs[0]
	case ty.IntrinsicDecodeArg:
		check(annotated(b.U64), ie.Args[0])
		out.Type = typeArgs[0]
	case ty.IntrinsicEq:
		lhs := check(annotated(types.NoTypeID), ie.Args[0])
		check(annotated(lhs.Type).WithHelpText("Both operands of `__eq` must have the same type."), ie.Args[1])
		out.Type = b.Bool
	case ty.IntrinsicEncodeReturn, ty.IntrinsicLog:
		check(annotated(types.NoTypeID), ie.Args[0])
		out.Type = b.Unit
	case ty.IntrinsicRevert:
		check(annotated(b.U64), ie.Args[0])
		out.Type = b.Unit
	case ty.IntrinsicSmo:
		check(annotated(b.B256), ie.Args[0])
		check(annotated(types.NoTypeID), ie.Args[1])
		out.Type = b.Unit
	}
	return out, first.err
}
