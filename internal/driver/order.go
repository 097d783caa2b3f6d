package driver

import (
	"slices"
	"strings"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/project/dag"
	"keel/internal/source"
)

// OrderResult holds the evaluation batches of a package's modules. Modules
// of one batch do not depend on each other.
type OrderResult struct {
	Package string
	// Batches orders the direct submodules of the package root.
	Batches [][]string
	// Nested orders the children of every deeper module that has any,
	// parents before children.
	Nested  []ModuleOrder
	FileSet *source.FileSet
	Bag     *diag.Bag
	Err     error
}

// ModuleOrder is the evaluation batches of the direct submodules of the
// module at Path, written as "pkg::a::b".
type ModuleOrder struct {
	Path    string
	Batches [][]string
}

// Order computes the module evaluation batches of the package at path
// without checking it.
func Order(path string) (*OrderResult, error) {
	fs := source.NewFileSet()
	u, err := newLoader(fs).load(path)
	if err != nil {
		return nil, err
	}
	m := u.manifest
	res := &OrderResult{Package: m.Name, FileSet: fs, Bag: diag.NewBag(m.Build.MaxDiagnostics)}
	h := diag.NewHandler(diag.BagReporter{Bag: res.Bag})
	root := u.parsed.Root
	if root == nil {
		root = &ast.Module{}
	}
	res.Batches, res.Err = dag.Batches(h, dag.Analyze(h, root, m.Name))
	if res.Err != nil {
		return res, nil
	}
	res.Nested, res.Err = nestedOrder(h, root, dag.Location{Pkg: m.Name, Top: root}, root.Submodules)
	return res, nil
}

func nestedOrder(h *diag.Handler, top *ast.Module, parent dag.Location, subs []ast.Submodule) ([]ModuleOrder, error) {
	var out []ModuleOrder
	for _, sm := range subs {
		if sm.Module == nil || len(sm.Module.Submodules) == 0 {
			continue
		}
		loc := dag.Location{Pkg: parent.Pkg, Path: append(slices.Clone(parent.Path), sm.Name.Name), Top: top}
		batches, err := dag.Batches(h, dag.AnalyzeAt(h, sm.Module, loc))
		if err != nil {
			return out, err
		}
		out = append(out, ModuleOrder{Path: strings.Join(append([]string{loc.Pkg}, loc.Path...), "::"), Batches: batches})
		deeper, err := nestedOrder(h, top, loc, sm.Module.Submodules)
		out = append(out, deeper...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
