package sema

import (
	"fmt"
	"math/big"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/namespace"
	"keel/internal/source"
	"keel/internal/ty"
	"keel/internal/types"
)

const (
	helpIfCondition = "An `if` condition must be a `bool`."
	helpIfBranches  = "Both branches of an `if` expression must have the same type."
	helpReturn      = "The returned value must match the function's return type."
	helpFnBody      = "The function body must produce the declared return type."
	helpArgument    = "The argument must match the type of the function parameter."
	helpVariable    = "The value must match the declared type of the variable."
	helpConstant    = "The value must match the declared type of the constant."
	helpStorage     = "The initializer must match the declared type of the storage field."
)

// CheckExpr type-checks e and unifies its type with the context's
// annotation. It always returns an expression so the caller can keep
// checking; on failure the type is the error-recovery type and the error is
// the emitted marker.
func CheckExpr(h *diag.Handler, c Context, e *ast.Expr) (*ty.Expr, error) {
	if e == nil {
		return ty.Placeholder(c.unit(), source.NoSpan), nil
	}
	var (
		out *ty.Expr
		err error
	)
	switch e.Kind {
	case ast.ExprStruct:
		// unifies with the annotation itself
		return checkStructInstantiation(h, c, e)
	case ast.ExprLiteral:
		out, err = checkLiteral(h, c, e)
	case ast.ExprVariable:
		out, err = checkVariable(h, c, e)
	case ast.ExprCall:
		out, err = checkCall(h, c, e)
	case ast.ExprIf:
		out, err = checkIf(h, c, e)
	case ast.ExprTuple:
		out, err = checkTuple(h, c, e)
	case ast.ExprBlock:
		var blk *ty.Block
		blk, err = checkBlock(h, c, e.Block)
		out = &ty.Expr{Kind: ty.ExprBlock, Type: blk.Type, Span: e.Span, Block: blk}
	case ast.ExprIntrinsic:
		out, err = checkIntrinsic(h, c, e)
	case ast.ExprReturn:
		out, err = checkReturn(h, c, e)
	default:
		return ty.Placeholder(c.errorType(), e.Span), h.EmitErr(diag.NewError(diag.SemaUnknownType, e.Span,
			fmt.Sprintf("unsupported expression kind %s", e.Kind)))
	}
	res := c.Unify(h, out.Type, e.Span)
	if !res.OK {
		out.Type = res.Type
		if err == nil && res.Err != nil {
			err = res.Err
		}
	}
	return out, err
}

func checkLiteral(h *diag.Handler, c Context, e *ast.Expr) (*ty.Expr, error) {
	lit := e.Literal
	b := c.types().Builtins()
	out := &ty.Expr{Kind: ty.ExprLiteral, Span: e.Span, Literal: &ty.Literal{Kind: lit.Kind, Text: lit.Text}}
	switch lit.Kind {
	case ast.LitBool:
		out.Type = b.Bool
	case ast.LitString:
		out.Type = b.Str
	case ast.LitB256:
		out.Type = b.B256
		v, ok := new(big.Int).SetString(lit.Text, 0)
		if !ok || v.Sign() < 0 || v.BitLen() > 256 {
			out.Type = c.errorType()
			return out, h.EmitErr(diag.NewError(diag.SemaInvalidLiteral, e.Span,
				fmt.Sprintf("`%s` is not a valid b256 literal", lit.Text)))
		}
	case ast.LitUint:
		v, ok := new(big.Int).SetString(lit.Text, 0)
		if !ok || v.Sign() < 0 {
			out.Type = c.errorType()
			return out, h.EmitErr(diag.NewError(diag.SemaInvalidLiteral, e.Span,
				fmt.Sprintf("`%s` is not a valid integer literal", lit.Text)))
		}
		if lit.Suffix == "" {
			out.Type = c.types().FreshNumeric()
			if v.BitLen() > 256 {
				out.Type = c.errorType()
				return out, h.EmitErr(diag.NewError(diag.SemaInvalidLiteral, e.Span,
					fmt.Sprintf("literal `%s` does not fit in u256", lit.Text)))
			}
			return out, nil
		}
		typ, ok := builtinType(c.types(), lit.Suffix)
		if !ok || c.types().Get(typ).Kind != types.KindUint {
			out.Type = c.errorType()
			return out, h.EmitErr(diag.NewError(diag.SemaInvalidLiteral, e.Span,
				fmt.Sprintf("invalid suffix `%s` for an integer literal", lit.Suffix)))
		}
		out.Type = typ
		if v.BitLen() > int(c.types().Get(typ).Width) {
			out.Type = c.errorType()
			return out, h.EmitErr(diag.NewError(diag.SemaInvalidLiteral, e.Span,
				fmt.Sprintf("literal `%s` does not fit in %s", lit.Text, lit.Suffix)))
		}
	}
	return out, nil
}

func checkVariable(h *diag.Handler, c Context, e *ast.Expr) (*ty.Expr, error) {
	out := &ty.Expr{Kind: ty.ExprVariable, Span: e.Span, Name: e.Name, Type: c.errorType()}
	it, err := c.ns.ResolveSymbol(h, e.Name)
	if err != nil {
		return out, err
	}
	switch it.Kind {
	case namespace.ItemVariable:
		out.Type = it.Type
	case namespace.ItemConstant:
		out.Kind = ty.ExprConstant
		out.Const = it.Const
		if decl := c.decls().Constant(it.Const); decl != nil {
			out.Type = decl.Type.Type
		}
	default:
		return out, h.EmitErr(diag.NewError(diag.SemaUnresolvedSymbol, e.Span,
			fmt.Sprintf("expected a value, found %s `%s`", it.Kind, e.Name.Name)).
			WithNote(it.Name.Span, "declared here"))
	}
	return out, nil
}

func checkIf(h *diag.Handler, c Context, e *ast.Expr) (*ty.Expr, error) {
	in := c.types()
	var first firstError
	cond, err := CheckExpr(h, c.WithTypeAnnotation(in.Builtins().Bool).WithHelpText(helpIfCondition).WithUnifyGeneric(false), e.If.Cond)
	first.add(err)

	branch := c.typeAnnotation
	switch {
	case e.If.Else == nil:
		branch = c.unit()
	case branch == types.NoTypeID:
		branch = in.FreshUnknown()
	}
	bc := c.WithTypeAnnotation(branch)
	if c.typeAnnotation == types.NoTypeID || e.If.Else == nil {
		bc = bc.WithHelpText(helpIfBranches)
	}
	then, err := CheckExpr(h, bc, e.If.Then)
	first.add(err)
	var els *ty.Expr
	if e.If.Else != nil {
		els, err = CheckExpr(h, bc, e.If.Else)
		first.add(err)
	}
	return &ty.Expr{
		Kind: ty.ExprIf,
		Type: branch,
		Span: e.Span,
		If:   &ty.IfExpr{Cond: cond, Then: then, Else: els},
	}, first.err
}

func checkTuple(h *diag.Handler, c Context, e *ast.Expr) (*ty.Expr, error) {
	in := c.types()
	var expected []types.TypeID
	if c.typeAnnotation != types.NoTypeID {
		if info, ok := in.TupleInfo(c.typeAnnotation); ok && len(info.Elems) == len(e.Elems) {
			expected = info.Elems
		}
	}
	var first firstError
	elems := make([]*ty.Expr, len(e.Elems))
	elemTypes := make([]types.TypeID, len(e.Elems))
	for i, el := range e.Elems {
		ec := c.WithTypeAnnotation(types.NoTypeID)
		if expected != nil {
			ec = c.WithTypeAnnotation(expected[i])
		}
		var err error
		elems[i], err = CheckExpr(h, ec, el)
		first.add(err)
		elemTypes[i] = elems[i].Type
	}
	return &ty.Expr{Kind: ty.ExprTuple, Type: in.Tuple(elemTypes), Span: e.Span, Elems: elems}, first.err
}

// checkBlock checks b in a fresh lexical scope. The block's type is the
// type of its tail expression, unit without one, or a fresh variable when
// the block ends by returning.
func checkBlock(h *diag.Handler, c Context, b *ast.Block) (*ty.Block, error) {
	if b == nil {
		return &ty.Block{Type: c.unit()}, nil
	}
	out := &ty.Block{Type: c.unit(), Span: b.Span}
	c.ns.PushScope()
	defer c.ns.PopScope()

	var first firstError
	stmt := c.WithTypeAnnotation(types.NoTypeID).WithUnifyGeneric(false)
	hasTail, diverges := false, false
	for i, n := range b.Nodes {
		if n == nil {
			continue
		}
		switch n.Kind {
		case ast.NodeDecl:
			node, err := checkLocalDecl(h, stmt, n.Decl)
			first.add(err)
			if node != nil {
				out.Nodes = append(out.Nodes, node)
			}
		case ast.NodeExpr:
			tail := i == len(b.Nodes)-1 && !n.Semi
			ec := stmt
			if tail {
				ec = c
			}
			ex, err := CheckExpr(h, ec, n.Expr)
			first.add(err)
			out.Nodes = append(out.Nodes, &ty.Node{Kind: ty.NodeExpr, Expr: ex, Span: n.Span})
			if ex.Kind == ty.ExprReturn {
				diverges = true
			}
			if tail {
				hasTail = true
				out.Type = ex.Type
			}
		}
	}
	if diverges && !hasTail {
		out.Type = c.types().FreshUnknown()
	}
	return out, first.err
}

func checkReturn(h *diag.Handler, c Context, e *ast.Expr) (*ty.Expr, error) {
	in := c.types()
	out := &ty.Expr{Kind: ty.ExprReturn, Span: e.Span, Type: in.FreshUnknown()}
	if !c.inFunction {
		err := h.EmitErr(diag.NewError(diag.SemaReturnOutsideFn, e.Span, "`return` outside of a function body"))
		out.Value, _ = CheckExpr(h, c.WithTypeAnnotation(types.NoTypeID), e.Value)
		return out, err
	}
	if e.Value == nil {
		res := in.Unify(h, c.unit(), c.returnType, e.Span, helpReturn)
		return out, emittedOrNil(res)
	}
	rc := c.WithTypeAnnotation(c.returnType).WithHelpText(helpReturn).WithUnifyGeneric(false)
	var err error
	out.Value, err = CheckExpr(h, rc, e.Value)
	return out, err
}

// checkArgs checks every expression of args, unannotated.
func checkArgs(h *diag.Handler, c Context, args []*ast.Expr) ([]*ty.Expr, error) {
	var first firstError
	out := make([]*ty.Expr, len(args))
	ac := c.WithTypeAnnotation(types.NoTypeID)
	for i, a := range args {
		var err error
		out[i], err = CheckExpr(h, ac, a)
		first.add(err)
	}
	return out, first.err
}

// firstError keeps the first error of several independent checks.
type firstError struct {
	err error
}

func (f *firstError) add(err error) {
	if f.err == nil && err != nil {
		f.err = err
	}
}

func emittedOrNil(res types.UnifyResult) error {
	if res.OK || res.Err == nil {
		return nil
	}
	return res.Err
}
