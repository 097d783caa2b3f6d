package sema

import (
	"strings"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/project/dag"
	"keel/internal/trace"
	"keel/internal/ty"
)

// CheckModule checks parsed as the current module of c's namespace.
// Submodules are checked first, each after the siblings it depends on; a
// dependency cycle among them is fatal and nothing is returned.
func CheckModule(h *diag.Handler, c Context, parsed *ast.Module) (*ty.Module, error) {
	if parsed == nil {
		return &ty.Module{}, nil
	}
	if c.top == nil {
		c.top = parsed
	}
	loc := dag.Location{Pkg: c.ns.PackageName(), Path: c.ns.ModPath()[1:], Top: c.top}
	order, err := dag.ComputeOrder(h, dag.AnalyzeAt(h, parsed, loc))
	if err != nil {
		return nil, err
	}
	return CheckModuleInOrder(h, c, parsed, order)
}

// CheckModuleInOrder is CheckModule with the order of the direct
// submodules already computed.
func CheckModuleInOrder(h *diag.Handler, c Context, parsed *ast.Module, order []string) (*ty.Module, error) {
	if parsed == nil {
		return &ty.Module{}, nil
	}
	if c.top == nil {
		c.top = parsed
	}
	path := strings.Join(c.ns.ModPath(), "::")
	ctx, sp := trace.Start(c.Go(), trace.ScopeModule, path)
	defer sp.End("")
	c = c.WithGo(ctx)

	if c.observer != nil {
		c.observer.ModuleStarted(path)
	}
	before := h.ErrorCount()

	out := &ty.Module{Span: parsed.Span}
	var first firstError
	for _, name := range order {
		sub, ok := findSubmodule(parsed, name)
		if !ok || sub.Module == nil {
			continue
		}
		leave := c.ns.EnterSubmodule(name, sub.Vis, sub.Module.Span)
		checked, err := CheckModule(h, c, sub.Module)
		leave()
		if checked == nil {
			sp.Fail()
			return nil, err
		}
		first.add(err)
		out.Submodules = append(out.Submodules, ty.Submodule{Name: sub.Name, Module: checked})
	}

	nodes, err := checkNodes(h, c, parsed.Nodes)
	first.add(err)
	out.Nodes = nodes

	if first.err != nil {
		sp.Fail()
	}
	if c.observer != nil {
		c.observer.ModuleChecked(path, h.ErrorCount()-before)
	}
	return out, first.err
}

// CheckNodes checks nodes as additional top-level nodes of the current
// module, for code synthesized after the module was checked.
func CheckNodes(h *diag.Handler, c Context, nodes []*ast.Node) ([]*ty.Node, error) {
	return checkNodes(h, c, nodes)
}

func findSubmodule(m *ast.Module, name string) (ast.Submodule, bool) {
	for _, sm := range m.Submodules {
		if sm.Name.Name == name {
			return sm, true
		}
	}
	return ast.Submodule{}, false
}
