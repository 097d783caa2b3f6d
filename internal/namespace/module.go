// Package namespace resolves call paths across a tree of nested modules and
// enforces item visibility and submodule membership.
package namespace

import (
	"slices"

	"keel/internal/ast"
	"keel/internal/source"
	"keel/internal/ty"
	"keel/internal/types"
)

type ItemKind uint8

const (
	ItemStruct ItemKind = iota
	ItemFunction
	ItemConstant
	ItemStorage
	ItemTypeParam
	ItemVariable
)

func (k ItemKind) String() string {
	switch k {
	case ItemStruct:
		return "struct"
	case ItemFunction:
		return "function"
	case ItemConstant:
		return "constant"
	case ItemStorage:
		return "storage"
	case ItemTypeParam:
		return "type parameter"
	case ItemVariable:
		return "variable"
	default:
		return "item"
	}
}

// Item is a named entry of a module or a lexical scope.
// Type is set for type parameters and variables.
type Item struct {
	Kind     ItemKind
	Name     source.Ident
	Vis      ast.Visibility
	Struct   ty.StructRef
	Fn       ty.FnRef
	Const    ty.ConstantRef
	Storage  ty.StorageRef
	Type     types.TypeID
	Imported bool
}

// Module is one node of the namespace tree.
type Module struct {
	Name     string
	Vis      ast.Visibility
	External bool
	Span     source.Span

	items    map[string]Item
	order    []string
	children map[string]*Module
	subOrder []string
}

// NewModule returns an empty module called name.
func NewModule(name string) *Module {
	return &Module{
		Name:     name,
		items:    make(map[string]Item),
		children: make(map[string]*Module),
	}
}

// Item returns the item called name declared or imported here.
func (m *Module) Item(name string) (Item, bool) {
	if m == nil {
		return Item{}, false
	}
	it, ok := m.items[name]
	return it, ok
}

// Items yields the module's items in insertion order.
func (m *Module) Items(yield func(Item) bool) {
	for _, name := range m.order {
		if !yield(m.items[name]) {
			return
		}
	}
}

// Insert adds it and reports false if the name is already taken.
func (m *Module) Insert(it Item) bool {
	if _, exists := m.items[it.Name.Name]; exists {
		return false
	}
	m.items[it.Name.Name] = it
	m.order = append(m.order, it.Name.Name)
	return true
}

// Submodule returns the child module called name.
func (m *Module) Submodule(name string) (*Module, bool) {
	if m == nil {
		return nil, false
	}
	sm, ok := m.children[name]
	return sm, ok
}

// InsertSubmodule attaches sub under name, replacing an existing child.
func (m *Module) InsertSubmodule(name string, vis ast.Visibility, sub *Module) {
	if _, exists := m.children[name]; !exists {
		m.subOrder = append(m.subOrder, name)
	}
	sub.Name = name
	sub.Vis = vis
	m.children[name] = sub
}

// Submodules yields children in insertion order.
func (m *Module) Submodules(yield func(*Module) bool) {
	for _, name := range m.subOrder {
		if !yield(m.children[name]) {
			return
		}
	}
}

// Clone returns a deep copy of the module tree rooted at m.
func (m *Module) Clone() *Module {
	if m == nil {
		return nil
	}
	out := &Module{
		Name:     m.Name,
		Vis:      m.Vis,
		External: m.External,
		Span:     m.Span,
		items:    make(map[string]Item, len(m.items)),
		order:    slices.Clone(m.order),
		children: make(map[string]*Module, len(m.children)),
		subOrder: slices.Clone(m.subOrder),
	}
	for k, v := range m.items {
		out.items[k] = v
	}
	for k, v := range m.children {
		out.children[k] = v.Clone()
	}
	return out
}

// walk follows path from m through submodules.
func (m *Module) walk(path []string) (*Module, bool) {
	cur := m
	for _, seg := range path {
		next, ok := cur.Submodule(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
