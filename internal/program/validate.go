package program

import (
	"fmt"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/ty"
)

const mainFnName = "main"

// validateRoot applies the rules of the program kind to the checked root
// module and collects its declarations.
//
//   - script and predicate need exactly one `main`; a predicate's returns bool
//   - contract and library must not declare `main`
//   - only a contract may declare storage, at most once
//   - configurable constants belong to the root module
//   - a contract must not declare the synthesized entry point itself
func validateRoot(h *diag.Handler, engines ty.Engines, root *ty.Module, kind ast.TreeType, pkg string) (*ty.Program, error) {
	de := engines.Decls
	prog := &ty.Program{Root: root}

	var (
		mains    []ty.Decl
		entries  []ty.FnRef
		storage  []ty.Decl
		reserved []ty.Decl
	)
	for _, n := range root.Nodes {
		if n.Kind != ty.NodeDecl || n.Decl == nil || n.Decl.Kind == ty.DeclVariable {
			continue
		}
		d := *n.Decl
		prog.Declarations = append(prog.Declarations, d)
		switch d.Kind {
		case ty.DeclFunction:
			fn := de.Function(d.Fn)
			switch {
			case fn.Name().Name == mainFnName:
				mains = append(mains, d)
			case fn.Name().Name == EntryName:
				reserved = append(reserved, d)
			case fn.Vis.IsPublic() && !fn.IsGeneric():
				entries = append(entries, d.Fn)
			}
		case ty.DeclStorage:
			storage = append(storage, d)
		case ty.DeclConstant:
			if de.Constant(d.Const).Configurable {
				prog.Configurables = append(prog.Configurables, d.Const)
			}
		}
	}

	err := h.Scope(func(h *diag.Handler) error {
		for _, sm := range root.Submodules {
			checkSubmoduleDecls(h, de, sm.Module)
		}
		switch kind {
		case ast.TreeScript, ast.TreePredicate:
			main := requireSingleMain(h, root, kind, mains)
			if kind == ast.TreePredicate {
				if main.IsValid() {
					checkPredicateReturn(h, engines, main)
				}
				prog.Kind = ty.Predicate{Main: main}
			} else {
				prog.Kind = ty.Script{Main: main}
			}
			forbidStorage(h, kind, storage)
		case ast.TreeContract:
			forbidMain(h, kind, mains)
			for _, d := range reserved {
				h.EmitErr(diag.NewError(diag.ProgEntryReserved, d.Name.Span,
					fmt.Sprintf("`%s` is reserved for the entry point synthesized for contracts", EntryName)).
					WithNote(d.Span, "declared here"))
			}
			if len(storage) > 1 {
				for _, d := range storage[1:] {
					h.EmitErr(diag.NewError(diag.ProgMultipleStorage, d.Span,
						"a contract may declare storage only once").
						WithNote(storage[0].Span, "storage first declared here"))
				}
			}
			prog.Kind = ty.Contract{Entries: entries}
		default:
			forbidMain(h, kind, mains)
			forbidStorage(h, kind, storage)
			prog.Kind = ty.Library{Name: pkg}
		}
		return nil
	})
	return prog, err
}

func requireSingleMain(h *diag.Handler, root *ty.Module, kind ast.TreeType, mains []ty.Decl) ty.FnRef {
	switch len(mains) {
	case 0:
		h.EmitErr(diag.NewError(diag.ProgMissingMain, root.Span,
			fmt.Sprintf("a %s must declare a `main` function", kind)))
		return 0
	case 1:
		return mains[0].Fn
	}
	for _, d := range mains[1:] {
		h.EmitErr(diag.NewError(diag.ProgMultipleMain, d.Span,
			fmt.Sprintf("a %s must declare exactly one `main` function", kind)).
			WithNote(mains[0].Span, "first `main` declared here"))
	}
	return mains[0].Fn
}

func checkPredicateReturn(h *diag.Handler, engines ty.Engines, main ty.FnRef) {
	in := engines.Types
	fn := engines.Decls.Function(main)
	if in.Equal(fn.Return.Type, in.Builtins().Bool) {
		return
	}
	span := fn.Return.Span
	if span.Empty() {
		span = fn.Span
	}
	h.EmitErr(diag.NewError(diag.ProgPredicateNotBool, span, "a predicate's `main` must return `bool`").
		WithNote(fn.Name().Span, "`main` declared here"))
}

func forbidMain(h *diag.Handler, kind ast.TreeType, mains []ty.Decl) {
	for _, d := range mains {
		h.EmitErr(diag.NewError(diag.ProgMainNotAllowed, d.Span,
			fmt.Sprintf("a %s cannot declare a `main` function", kind)))
	}
}

func forbidStorage(h *diag.Handler, kind ast.TreeType, storage []ty.Decl) {
	for _, d := range storage {
		h.EmitErr(diag.NewError(diag.ProgStorageNotAllowed, d.Span,
			fmt.Sprintf("storage can only be declared by a contract, not a %s", kind)))
	}
}

// checkSubmoduleDecls rejects storage and configurables below the root.
func checkSubmoduleDecls(h *diag.Handler, de *ty.DeclEngine, m *ty.Module) {
	if m == nil {
		return
	}
	for _, n := range m.Nodes {
		if n.Kind != ty.NodeDecl || n.Decl == nil {
			continue
		}
		switch d := n.Decl; d.Kind {
		case ty.DeclStorage:
			h.EmitErr(diag.NewError(diag.ProgStorageNotAllowed, d.Span,
				"storage can only be declared in the root module"))
		case ty.DeclConstant:
			if c := de.Constant(d.Const); c.Configurable {
				h.EmitErr(diag.NewError(diag.ProgConfigurableNotPub, d.Span,
					fmt.Sprintf("configurable `%s` must be declared in the root module", c.Name().Name)))
			}
		}
	}
	for _, sm := range m.Submodules {
		checkSubmoduleDecls(h, de, sm.Module)
	}
}

// declaresEntry reports whether the root module declares a function under
// the entry point name, in which case no entry point is synthesized.
func declaresEntry(de *ty.DeclEngine, prog *ty.Program) bool {
	for _, d := range prog.Declarations {
		if d.Kind == ty.DeclFunction && de.Function(d.Fn).Name().Name == EntryName {
			return true
		}
	}
	return false
}
