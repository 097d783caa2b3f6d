package namespace

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/source"
)

// GenericShadowingMode decides whether a type parameter may shadow another
// one of the same name.
type GenericShadowingMode uint8

const (
	ShadowingDisallow GenericShadowingMode = iota
	ShadowingAllow
)

// Namespace is the checker's view of the module tree: the root, the module
// currently being checked and a stack of lexical scopes.
//
// Absolute module paths start with the package name for modules of the
// package being checked and with the dependency name for external modules.
type Namespace struct {
	root    *Module
	pkg     string
	modPath []string
	scopes  []map[string]Item
}

// InitRoot builds the root namespace of package pkg from initial, which
// holds one external submodule per dependency. initial is not modified.
func InitRoot(initial *Module, pkg string) *Namespace {
	root := initial.Clone()
	if root == nil {
		root = NewModule(pkg)
	}
	root.Name = pkg
	return &Namespace{root: root, pkg: pkg}
}

func (ns *Namespace) Root() *Module { return ns.root }

func (ns *Namespace) PackageName() string { return ns.pkg }

// ModPath returns the absolute path of the current module.
func (ns *Namespace) ModPath() []string {
	return append([]string{ns.pkg}, ns.modPath...)
}

// Current returns the module being checked.
func (ns *Namespace) Current() *Module {
	m, _ := ns.root.walk(ns.modPath)
	return m
}

// EnterSubmodule makes the child called name current, creating it if
// needed. The returned function restores the previous module and scopes.
func (ns *Namespace) EnterSubmodule(name string, vis ast.Visibility, span source.Span) func() {
	parent := ns.Current()
	if _, ok := parent.Submodule(name); !ok {
		sub := NewModule(name)
		sub.Span = span
		parent.InsertSubmodule(name, vis, sub)
	}
	savedPath, savedScopes := ns.modPath, ns.scopes
	ns.modPath = append(slices.Clone(ns.modPath), name)
	ns.scopes = nil
	return func() {
		ns.modPath, ns.scopes = savedPath, savedScopes
	}
}

// Module returns the module at the absolute path abs.
func (ns *Namespace) Module(abs []string) (*Module, bool) {
	if len(abs) == 0 {
		return nil, false
	}
	if abs[0] == ns.pkg {
		return ns.root.walk(abs[1:])
	}
	return ns.root.walk(abs)
}

// FindModulePath turns the prefixes of a call path written in the current
// module into an absolute module path. The result is not checked to exist.
func (ns *Namespace) FindModulePath(prefixes []source.Ident) []string {
	names := make([]string, len(prefixes))
	for i, p := range prefixes {
		names[i] = p.Name
	}
	if len(names) == 0 {
		return ns.ModPath()
	}
	if names[0] == ns.pkg {
		return names
	}
	if top, ok := ns.root.Submodule(names[0]); ok && top.External {
		return names
	}
	if _, ok := ns.Current().Submodule(names[0]); ok {
		return append(ns.ModPath(), names...)
	}
	if _, ok := ns.root.Submodule(names[0]); ok {
		return append([]string{ns.pkg}, names...)
	}
	return append(ns.ModPath(), names...)
}

// ModulePathOf returns the absolute path of the module named by the
// prefixes of p.
func (ns *Namespace) ModulePathOf(p ast.CallPath) []string {
	if !p.IsAbsolute {
		return ns.FindModulePath(p.Prefixes)
	}
	abs := p.PrefixNames()
	if len(abs) == 0 || abs[0] != ns.pkg {
		if top, ok := ns.root.Submodule(firstOr(abs, "")); !ok || !top.External {
			abs = append([]string{ns.pkg}, abs...)
		}
	}
	return abs
}

// CheckSubmodule fails with a module-not-found error when abs names no
// module.
func (ns *Namespace) CheckSubmodule(h *diag.Handler, abs []string, span source.Span) error {
	if _, ok := ns.Module(abs); ok {
		return nil
	}
	return h.EmitErr(diag.NewError(diag.SemaModuleNotFound, span,
		fmt.Sprintf("module `%s` could not be found", strings.Join(abs, "::"))))
}

// ModuleIsExternal reports whether abs belongs to a dependency rather than
// the package being checked.
func (ns *Namespace) ModuleIsExternal(abs []string) bool {
	if len(abs) == 0 || abs[0] == ns.pkg {
		return false
	}
	cur := ns.root
	for _, seg := range abs {
		next, ok := cur.Submodule(seg)
		if !ok {
			return false
		}
		if next.External {
			return true
		}
		cur = next
	}
	return false
}

// ModuleIsSubmoduleOf reports whether the current module lies inside the
// subtree rooted at abs. trueIfSame decides the answer when both are the
// same module.
func (ns *Namespace) ModuleIsSubmoduleOf(abs []string, trueIfSame bool) bool {
	cur := ns.ModPath()
	if len(cur) < len(abs) || !slices.Equal(cur[:len(abs)], abs) {
		return false
	}
	if len(cur) == len(abs) {
		return trueIfSame
	}
	return true
}

// PushScope opens a lexical scope.
func (ns *Namespace) PushScope() {
	ns.scopes = append(ns.scopes, make(map[string]Item))
}

// PopScope closes the innermost lexical scope.
func (ns *Namespace) PopScope() {
	if len(ns.scopes) > 0 {
		ns.scopes = ns.scopes[:len(ns.scopes)-1]
	}
}

// InsertLocal binds it in the innermost lexical scope, opening one if none
// exists. A type parameter shadowing another type parameter is an error
// unless mode allows it.
func (ns *Namespace) InsertLocal(h *diag.Handler, it Item, mode GenericShadowingMode) error {
	if len(ns.scopes) == 0 {
		ns.PushScope()
	}
	if it.Kind == ItemTypeParam && mode == ShadowingDisallow {
		if prev, ok := ns.lookupLocal(it.Name.Name); ok && prev.Kind == ItemTypeParam {
			return h.EmitErr(diag.NewError(diag.SemaGenericShadowing, it.Name.Span,
				fmt.Sprintf("generic parameter `%s` shadows an outer parameter", it.Name.Name)).
				WithNote(prev.Name.Span, "previously declared here"))
		}
	}
	ns.scopes[len(ns.scopes)-1][it.Name.Name] = it
	return nil
}

// InsertSymbol declares it in the current module.
func (ns *Namespace) InsertSymbol(h *diag.Handler, it Item) error {
	mod := ns.Current()
	if mod.Insert(it) {
		return nil
	}
	prev, _ := mod.Item(it.Name.Name)
	d := diag.NewError(diag.SemaDuplicateSymbol, it.Name.Span,
		fmt.Sprintf("`%s` is already declared in this module", it.Name.Name)).
		WithNote(prev.Name.Span, "previous declaration")
	return h.EmitErr(d)
}

func (ns *Namespace) lookupLocal(name string) (Item, bool) {
	for i := len(ns.scopes) - 1; i >= 0; i-- {
		if it, ok := ns.scopes[i][name]; ok {
			return it, true
		}
	}
	return Item{}, false
}

// ResolveSymbol looks up an unqualified name: lexical scopes first, then the
// current module.
func (ns *Namespace) ResolveSymbol(h *diag.Handler, name source.Ident) (Item, error) {
	if it, ok := ns.lookupLocal(name.Name); ok {
		return it, nil
	}
	if it, ok := ns.Current().Item(name.Name); ok {
		return it, nil
	}
	return Item{}, h.EmitErr(diag.NewError(diag.SemaUnresolvedSymbol, name.Span,
		fmt.Sprintf("cannot find `%s` in this scope", name.Name)))
}

// ResolveCallPath resolves p relative to the current module. Private items
// of modules outside the current module's ancestry are rejected.
func (ns *Namespace) ResolveCallPath(h *diag.Handler, p ast.CallPath) (Item, error) {
	if len(p.Prefixes) == 0 && !p.IsAbsolute {
		return ns.ResolveSymbol(h, p.Suffix)
	}
	abs := ns.ModulePathOf(p)
	if err := ns.CheckSubmodule(h, abs, p.Span()); err != nil {
		return Item{}, err
	}
	mod, _ := ns.Module(abs)
	it, ok := mod.Item(p.Suffix.Name)
	if !ok {
		return Item{}, h.EmitErr(diag.NewError(diag.SemaUnresolvedSymbol, p.Suffix.Span,
			fmt.Sprintf("cannot find `%s` in module `%s`", p.Suffix.Name, strings.Join(abs, "::"))))
	}
	if !it.Vis.IsPublic() && !ns.ModuleIsSubmoduleOf(abs, true) {
		return Item{}, h.EmitErr(diag.NewError(diag.SemaSymbolIsPrivate, p.Suffix.Span,
			fmt.Sprintf("%s `%s` is private", it.Kind, p.Suffix.Name)).
			WithNote(it.Name.Span, "declared here"))
	}
	return it, nil
}

// Import brings the items named by use into the current module.
func (ns *Namespace) Import(h *diag.Handler, use *ast.UseDecl) error {
	if len(use.Path) == 0 {
		return nil
	}
	if use.Glob {
		abs := ns.FindModulePath(use.Path)
		if err := ns.CheckSubmodule(h, abs, use.Span); err != nil {
			return err
		}
		src, _ := ns.Module(abs)
		cur := ns.Current()
		for it := range src.Items {
			if !it.Vis.IsPublic() || it.Imported {
				continue
			}
			it.Imported = true
			it.Vis = ast.VisPrivate
			cur.Insert(it)
		}
		return nil
	}
	p := ast.CallPath{Suffix: use.Path[len(use.Path)-1]}
	p.Prefixes = append(p.Prefixes, use.Path[:len(use.Path)-1]...)
	it, err := ns.ResolveCallPath(h, p)
	if err != nil {
		return err
	}
	it.Imported = true
	it.Vis = ast.VisPrivate
	return ns.InsertSymbol(h, it)
}

// Scoped returns a view of ns with its own copy of the lexical scopes.
// Locals bound in the view stay out of ns; the module tree is shared and
// must not be modified through the view.
func (ns *Namespace) Scoped() *Namespace {
	out := &Namespace{
		root:    ns.root,
		pkg:     ns.pkg,
		modPath: slices.Clone(ns.modPath),
		scopes:  make([]map[string]Item, len(ns.scopes)),
	}
	for i, s := range ns.scopes {
		out.scopes[i] = maps.Clone(s)
	}
	return out
}

func firstOr(s []string, def string) string {
	if len(s) == 0 {
		return def
	}
	return s[0]
}
