package dag

import (
	"slices"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/project"
	"keel/internal/source"
)

// Location places an analysed module inside its package.
type Location struct {
	Pkg string
	// Path is the module path below the package root, empty for the root.
	Path []string
	// Top is the parsed package root. Relative paths whose head names one
	// of its submodules are resolved from it.
	Top *ast.Module
}

// Analyze builds the dependency graph between the direct submodules of
// the package root.
func Analyze(h *diag.Handler, root *ast.Module, pkg string) Graph {
	return AnalyzeAt(h, root, Location{Pkg: pkg, Top: root})
}

// AnalyzeAt builds the dependency graph between the direct submodules of
// m, the module at loc. A submodule depends on a sibling when a path
// written in its subtree resolves into the sibling's subtree.
func AnalyzeAt(h *diag.Handler, m *ast.Module, loc Location) Graph {
	siblings := make(map[string]bool, len(m.Submodules))
	for _, sm := range m.Submodules {
		siblings[sm.Name.Name] = true
	}

	metas := make([]project.ModuleMeta, 0, len(m.Submodules))
	nodes := make([]ModuleNode, 0, len(m.Submodules))
	for _, sm := range m.Submodules {
		meta := project.ModuleMeta{
			Name: sm.Name.Name,
			Path: sm.Name.Name,
			Span: sm.Name.Span,
		}
		at := append(slices.Clone(loc.Path), sm.Name.Name)
		walkTree(sm.Module, at, func(cur *ast.Module, curPath []string, p ast.CallPath) {
			head, ok := loc.headBelow(cur, curPath, p)
			if !ok || !siblings[head.Name] || head.Name == sm.Name.Name {
				return
			}
			meta.Imports = append(meta.Imports, project.ImportMeta{Path: head.Name, Span: head.Span})
		})
		metas = append(metas, meta)
		nodes = append(nodes, ModuleNode{Meta: meta, Reporter: h})
	}
	return BuildGraph(BuildIndex(metas), nodes)
}

// ComputeOrder returns module names so that each follows its dependencies.
// A cycle is fatal: the error is returned and no order is produced.
func ComputeOrder(h *diag.Handler, g Graph) ([]string, error) {
	topo := ToposortKahn(g)
	if topo.Cyclic {
		return nil, ReportCycles(h, g, topo)
	}
	return g.Index.Names(topo.Order), nil
}

// Batches returns the dependency layers of g. Modules within one batch do
// not depend on each other.
func Batches(h *diag.Handler, g Graph) ([][]string, error) {
	topo := ToposortKahn(g)
	if topo.Cyclic {
		return nil, ReportCycles(h, g, topo)
	}
	out := make([][]string, len(topo.Batches))
	for i, b := range topo.Batches {
		out[i] = g.Index.Names(b)
	}
	return out, nil
}

func walkTree(m *ast.Module, path []string, fn func(*ast.Module, []string, ast.CallPath)) {
	if m == nil {
		return
	}
	m.WalkPaths(func(p ast.CallPath) { fn(m, path, p) })
	for _, sm := range m.Submodules {
		walkTree(sm.Module, append(slices.Clone(path), sm.Name.Name), fn)
	}
}

// headBelow resolves the module prefixes of p, written in cur at curPath,
// the way the namespace does and returns the segment directly below loc.
// Paths that name no module, or a module outside loc's subtree, yield
// false.
func (loc Location) headBelow(cur *ast.Module, curPath []string, p ast.CallPath) (head source.Ident, ok bool) {
	prefixes := p.Prefixes
	if len(prefixes) == 0 {
		return source.Ident{}, false
	}
	var abs []source.Ident
	switch first := prefixes[0].Name; {
	case first == loc.Pkg:
		abs = prefixes[1:]
	case p.IsAbsolute:
		abs = prefixes
	case hasSubmodule(cur, first):
		abs = append(idents(curPath, prefixes[0].Span), prefixes...)
	case hasSubmodule(loc.Top, first):
		abs = prefixes
	default:
		abs = append(idents(curPath, prefixes[0].Span), prefixes...)
	}
	if len(abs) <= len(loc.Path) {
		return source.Ident{}, false
	}
	for i, seg := range loc.Path {
		if abs[i].Name != seg {
			return source.Ident{}, false
		}
	}
	return abs[len(loc.Path)], true
}

func hasSubmodule(m *ast.Module, name string) bool {
	_, ok := m.Submodule(name)
	return ok
}

// idents turns an implied module path into identifiers spanning at, the
// written path they stand in for.
func idents(path []string, at source.Span) []source.Ident {
	out := make([]source.Ident, len(path))
	for i, name := range path {
		out[i] = source.Ident{Name: name, Span: at}
	}
	return out
}
