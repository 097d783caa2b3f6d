package ast

import (
	"fmt"
	"strings"

	"keel/internal/source"
)

// TreeType is the program kind declared by the root module.
type TreeType uint8

const (
	TreeScript TreeType = iota
	TreePredicate
	TreeContract
	TreeLibrary
)

func (t TreeType) String() string {
	switch t {
	case TreeScript:
		return "script"
	case TreePredicate:
		return "predicate"
	case TreeContract:
		return "contract"
	case TreeLibrary:
		return "library"
	default:
		return fmt.Sprintf("TreeType(%d)", t)
	}
}

// ParseTreeType maps a manifest or fixture kind name to a TreeType.
func ParseTreeType(s string) (TreeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "script":
		return TreeScript, nil
	case "predicate":
		return TreePredicate, nil
	case "contract":
		return TreeContract, nil
	case "library", "lib":
		return TreeLibrary, nil
	default:
		return 0, fmt.Errorf("unknown program kind %q", s)
	}
}

// Module is a parsed module: its own nodes plus nested submodules.
type Module struct {
	Nodes      []*Node
	Submodules []Submodule
	Span       source.Span
}

// Submodule is a named child module declared with `mod name;`.
type Submodule struct {
	Name   source.Ident
	Vis    Visibility
	Module *Module
}

// Submodule returns the child module with the given name.
func (m *Module) Submodule(name string) (*Module, bool) {
	if m == nil {
		return nil, false
	}
	for _, sm := range m.Submodules {
		if sm.Name.Name == name {
			return sm.Module, true
		}
	}
	return nil, false
}

// ParseProgram is the parser's output for one package.
type ParseProgram struct {
	Kind TreeType
	Root *Module
}
