package sema

import (
	"testing"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/types"
)

func genericIdentity(b *ast.Builder) *ast.Node {
	return b.DeclNode(&ast.Decl{
		Kind: ast.DeclFunction,
		Fn: &ast.FnDecl{
			Name:       b.Ident("id"),
			Vis:        ast.VisPublic,
			TypeParams: []ast.TypeParam{{Name: b.Ident("T")}},
			Params:     []ast.Param{{Name: b.Ident("v"), Type: b.Named("T")}},
			Return:     b.Named("T"),
			Body:       b.Block(b.Tail(b.Var("v"))),
		},
	})
}

func TestGenericCallInfersTypeArgument(t *testing.T) {
	h, bag, c := newTestContext(nil)
	b := ast.NewBuilder(source.NoSpan)
	checkRoot(t, h, bag, c, &ast.Module{Nodes: []*ast.Node{genericIdentity(b)}})
	if bag.Len() != 0 {
		t.Fatalf("declaring id: %v", bag.Items())
	}
	in := c.Engines().Types

	out, err := CheckExpr(h, c, b.Call(ast.PathOf("id"), nil, b.Bool(true)))
	if err != nil {
		t.Fatalf("call: %v", bag.Items())
	}
	if !in.Equal(out.Type, in.Builtins().Bool) {
		t.Fatalf("id(true) has type %s, want bool", types.Label(in, out.Type))
	}

	out, err = CheckExpr(h, c, b.Call(ast.PathOf("id"), []*ast.TypeExpr{b.Named("u8")}, b.Uint(3, "")))
	if err != nil {
		t.Fatalf("explicit call: %v", bag.Items())
	}
	if out.Type != in.Builtins().U8 {
		t.Fatalf("id::<u8>(3) has type %s, want u8", types.Label(in, out.Type))
	}
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		name string
		expr func(b *ast.Builder) *ast.Expr
		code diag.Code
	}{
		{"arity", func(b *ast.Builder) *ast.Expr { return b.Call(ast.PathOf("id"), nil) }, diag.SemaArgumentCount},
		{"type args", func(b *ast.Builder) *ast.Expr {
			return b.Call(ast.PathOf("id"), []*ast.TypeExpr{b.Named("u8"), b.Named("bool")}, b.Bool(true))
		}, diag.SemaTypeArgCount},
		{"not a function", func(b *ast.Builder) *ast.Expr { return b.Call(ast.PathOf("K"), nil) }, diag.SemaNotAFunction},
		{"unknown", func(b *ast.Builder) *ast.Expr { return b.Call(ast.PathOf("nope"), nil) }, diag.SemaUnresolvedSymbol},
		{"argument type", func(b *ast.Builder) *ast.Expr {
			return b.Call(ast.PathOf("id"), []*ast.TypeExpr{b.Named("bool")}, b.Uint(1, ""))
		}, diag.SemaTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, bag, c := newTestContext(nil)
			b := ast.NewBuilder(source.NoSpan)
			konst := b.DeclNode(&ast.Decl{Kind: ast.DeclConstant, Const: &ast.ConstDecl{
				Name: b.Ident("K"), Type: b.Named("u64"), Value: b.Uint(1, ""),
			}})
			checkRoot(t, h, bag, c, &ast.Module{Nodes: []*ast.Node{genericIdentity(b), konst}})
			if _, err := CheckExpr(h, c, tt.expr(b)); err == nil {
				t.Fatalf("expected an error")
			}
			if got := bag.Count(tt.code); got != 1 {
				t.Fatalf("%s diagnostics = %d, want 1: %v", tt.code, got, bag.Items())
			}
		})
	}
}

func TestIntrinsics(t *testing.T) {
	tests := []struct {
		name string
		expr func(b *ast.Builder) *ast.Expr
		code diag.Code
		want func(types.Builtins) types.TypeID
	}{
		{"eq", func(b *ast.Builder) *ast.Expr { return b.Intrinsic("__eq", nil, b.Uint(1, ""), b.Uint(2, "u8")) },
			0, func(bt types.Builtins) types.TypeID { return bt.Bool }},
		{"decode arg", func(b *ast.Builder) *ast.Expr {
			return b.Intrinsic("__decode_arg", []*ast.TypeExpr{b.Named("b256")}, b.Uint(0, ""))
		}, 0, func(bt types.Builtins) types.TypeID { return bt.B256 }},
		{"eq operands", func(b *ast.Builder) *ast.Expr { return b.Intrinsic("__eq", nil, b.Bool(true), b.Str("x")) },
			diag.SemaTypeMismatch, nil},
		{"revert code", func(b *ast.Builder) *ast.Expr { return b.Intrinsic("__revert", nil, b.Bool(true)) },
			diag.SemaTypeMismatch, nil},
		{"unknown", func(b *ast.Builder) *ast.Expr { return b.Intrinsic("__frobnicate", nil) },
			diag.SemaUnknownIntrinsic, nil},
		{"arity", func(b *ast.Builder) *ast.Expr { return b.Intrinsic("__decode_selector", nil) },
			diag.SemaIntrinsicArgs, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, bag, c := newTestContext(nil)
			b := ast.NewBuilder(source.NoSpan)
			out, err := CheckExpr(h, c, tt.expr(b))
			if tt.code == 0 {
				if err != nil {
					t.Fatalf("unexpected diagnostics: %v", bag.Items())
				}
				if want := tt.want(c.Engines().Types.Builtins()); out.Type != want {
					t.Fatalf("type = %d, want %d", out.Type, want)
				}
				return
			}
			if err == nil || bag.Count(tt.code) != 1 {
				t.Fatalf("want one %s, got %v", tt.code, bag.Items())
			}
		})
	}
}

func TestExpressionErrors(t *testing.T) {
	tests := []struct {
		name string
		expr func(b *ast.Builder) *ast.Expr
		code diag.Code
	}{
		{"if branches", func(b *ast.Builder) *ast.Expr {
			return b.If(b.Bool(true), b.BlockExpr(b.Tail(b.Uint(1, "u8"))), b.BlockExpr(b.Tail(b.Bool(false))))
		}, diag.SemaTypeMismatch},
		{"if condition", func(b *ast.Builder) *ast.Expr {
			return b.If(b.Uint(1, ""), b.BlockExpr(), nil)
		}, diag.SemaTypeMismatch},
		{"literal width", func(b *ast.Builder) *ast.Expr { return b.Uint(300, "u8") }, diag.SemaInvalidLiteral},
		{"return outside fn", func(b *ast.Builder) *ast.Expr { return b.Return(nil) }, diag.SemaReturnOutsideFn},
		{"unknown variable", func(b *ast.Builder) *ast.Expr { return b.Var("ghost") }, diag.SemaUnresolvedSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, bag, c := newTestContext(nil)
			b := ast.NewBuilder(source.NoSpan)
			if _, err := CheckExpr(h, c, tt.expr(b)); err == nil {
				t.Fatalf("expected an error")
			}
			if got := bag.Count(tt.code); got != 1 {
				t.Fatalf("%s diagnostics = %d, want 1: %v", tt.code, got, bag.Items())
			}
		})
	}
}

func TestFunctionBodyMustProduceReturnType(t *testing.T) {
	h, bag, c := newTestContext(nil)
	b := ast.NewBuilder(source.NoSpan)
	root := &ast.Module{Nodes: []*ast.Node{
		b.Fn("empty", ast.VisPublic, nil, b.Named("u64"), b.Block()),
		b.Fn("early", ast.VisPublic, nil, b.Named("u64"), b.Block(b.Stmt(b.Return(b.Uint(1, ""))))),
		b.Fn("local", ast.VisPublic, nil, b.Named("bool"), b.Block(
			b.Let("x", nil, b.Bool(true)),
			b.Tail(b.Var("x")),
		)),
	}}
	checkRoot(t, h, bag, c, root)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaTypeMismatch {
		t.Fatalf("diagnostics = %v, want one mismatch for `empty`", bag.Items())
	}
}

func TestSubmodulesCheckedInDependencyOrder(t *testing.T) {
	h, bag, c := newTestContext(nil)
	b := ast.NewBuilder(source.NoSpan)
	a := &ast.Module{Nodes: []*ast.Node{
		b.Struct("X", ast.VisPublic, nil, b.Field(ast.VisPublic, "y", pathType("b", "Y"))),
	}}
	bm := &ast.Module{Nodes: []*ast.Node{
		b.Struct("Y", ast.VisPublic, nil, b.Field(ast.VisPublic, "n", b.Named("u64"))),
	}}
	root := &ast.Module{Submodules: []ast.Submodule{
		{Name: source.NewIdent("a"), Vis: ast.VisPublic, Module: a},
		{Name: source.NewIdent("b"), Vis: ast.VisPublic, Module: bm},
	}}
	m := checkRoot(t, h, bag, c, root)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if len(m.Submodules) != 2 || m.Submodules[0].Name.Name != "b" || m.Submodules[1].Name.Name != "a" {
		t.Fatalf("submodule order = %v", m.Submodules)
	}
}

func TestSubmoduleCycleIsFatal(t *testing.T) {
	h, bag, c := newTestContext(nil)
	b := ast.NewBuilder(source.NoSpan)
	a := &ast.Module{Nodes: []*ast.Node{
		b.Struct("X", ast.VisPublic, nil, b.Field(ast.VisPublic, "y", pathType("b", "Y"))),
	}}
	bm := &ast.Module{Nodes: []*ast.Node{
		b.Struct("Y", ast.VisPublic, nil, b.Field(ast.VisPublic, "x", pathType("a", "X"))),
	}}
	root := &ast.Module{Submodules: []ast.Submodule{
		{Name: source.NewIdent("a"), Vis: ast.VisPublic, Module: a},
		{Name: source.NewIdent("b"), Vis: ast.VisPublic, Module: bm},
	}}
	m, err := CheckModule(h, c, root)
	if m != nil || err == nil {
		t.Fatalf("expected a fatal cycle error")
	}
	if got := bag.Count(diag.ProjImportCycle); got != 1 {
		t.Fatalf("cycle diagnostics = %d, want 1: %v", got, bag.Items())
	}
}

func TestNestedSiblingsCheckedInDependencyOrder(t *testing.T) {
	tests := []struct {
		name string
		path []string
	}{
		{"package path", []string{"app", "a", "other", "Y"}},
		{"root relative", []string{"a", "other", "Y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, bag, c := newTestContext(nil)
			b := ast.NewBuilder(source.NoSpan)
			inner := &ast.Module{Nodes: []*ast.Node{
				b.Struct("X", ast.VisPublic, nil, b.Field(ast.VisPublic, "y", pathType(tt.path...))),
			}}
			other := &ast.Module{Nodes: []*ast.Node{
				b.Struct("Y", ast.VisPublic, nil, b.Field(ast.VisPublic, "n", b.Named("u64"))),
			}}
			a := &ast.Module{Submodules: []ast.Submodule{
				{Name: source.NewIdent("inner"), Vis: ast.VisPublic, Module: inner},
				{Name: source.NewIdent("other"), Vis: ast.VisPublic, Module: other},
			}}
			root := &ast.Module{Submodules: []ast.Submodule{{Name: source.NewIdent("a"), Vis: ast.VisPublic, Module: a}}}
			m := checkRoot(t, h, bag, c, root)
			if bag.Len() != 0 {
				t.Fatalf("unexpected diagnostics: %v", bag.Items())
			}
			subs := m.Submodules[0].Module.Submodules
			if len(subs) != 2 || subs[0].Name.Name != "other" || subs[1].Name.Name != "inner" {
				t.Fatalf("a's submodule order = %v", subs)
			}
		})
	}
}
