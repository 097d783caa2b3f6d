package program

import (
	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/sema"
	"keel/internal/source"
	"keel/internal/ty"
)

const (
	// EntryName names the dispatcher synthesized for contracts.
	EntryName = "__entry"

	// RevertSelectorNotFound is the revert code of a call whose selector
	// names no entry function.
	RevertSelectorNotFound uint64 = 0xffff_ffff_ffff_0000

	selectorVar = "__selector"
)

// BuildEntry builds the dispatcher over the given entry functions:
//
//	pub fn __entry() {
//	    let __selector: str = __decode_selector::<str>();
//	    if __eq(__selector, "transfer") {
//	        return __encode_return(pkg::transfer(__decode_arg::<u64>(0), ...));
//	    };
//	    ...
//	    __revert(RevertSelectorNotFound);
//	}
//
// Entries are called through their absolute path in package pkg.
func BuildEntry(b *ast.Builder, pkg string, entries []*ast.FnDecl) *ast.Node {
	str := b.Named("str")
	nodes := []*ast.Node{
		b.Let(selectorVar, str, b.Intrinsic("__decode_selector", []*ast.TypeExpr{str})),
	}
	for _, fn := range entries {
		args := make([]*ast.Expr, len(fn.Params))
		for i, p := range fn.Params {
			args[i] = b.Intrinsic("__decode_arg", []*ast.TypeExpr{p.Type}, b.Uint(uint64(i), "u64"))
		}
		call := b.Call(b.Path(pkg, fn.Name.Name), nil, args...)
		then := b.BlockExpr(b.Stmt(b.Return(b.Intrinsic("__encode_return", nil, call))))
		cond := b.Intrinsic("__eq", nil, b.Var(selectorVar), b.Str(fn.Name.Name))
		nodes = append(nodes, b.Stmt(b.If(cond, then, nil)))
	}
	nodes = append(nodes, b.Stmt(b.Intrinsic("__revert", nil, b.Uint(RevertSelectorNotFound, "u64"))))
	return b.Fn(EntryName, ast.VisPublic, nil, nil, b.Block(nodes...))
}

// synthesizeEntry checks the dispatcher of a contract in the root namespace
// and appends it to the root module.
func synthesizeEntry(h *diag.Handler, c sema.Context, engines ty.Engines, prog *ty.Program, parsed *ast.Module) error {
	de := engines.Decls
	byName := make(map[string]*ast.FnDecl)
	for _, n := range parsed.Nodes {
		if n.Kind == ast.NodeDecl && n.Decl != nil && n.Decl.Kind == ast.DeclFunction && n.Decl.Fn != nil {
			byName[n.Decl.Fn.Name.Name] = n.Decl.Fn
		}
	}
	var entries []*ast.FnDecl
	for _, ref := range prog.EntryFns() {
		if fn, ok := byName[de.Function(ref).Name().Name]; ok {
			entries = append(entries, fn)
		}
	}

	node := BuildEntry(ast.NewBuilder(source.NoSpan), c.Namespace().PackageName(), entries)
	checked, err := sema.CheckNodes(h, c, []*ast.Node{node})
	for _, n := range checked {
		if n.Kind == ty.NodeDecl && n.Decl != nil && n.Decl.Kind == ty.DeclFunction {
			fn := *de.Function(n.Decl.Fn)
			fn.Synthetic = true
			de.Functions.Replace(n.Decl.Fn, fn)
		}
	}
	prog.Root.Nodes = append(prog.Root.Nodes, checked...)
	return err
}
