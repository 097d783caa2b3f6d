package project

import (
	"strings"
	"unicode"

	"keel/internal/source"
)

// ModuleSep separates the segments of a module path such as "app::shapes".
const ModuleSep = "::"

// ImportMeta is one reference from a module to a sibling module.
type ImportMeta struct {
	Path string
	Span source.Span
}

// ModuleMeta describes a module node of the dependency graph.
type ModuleMeta struct {
	Name        string
	Path        string // "parent::name"
	Span        source.Span
	Imports     []ImportMeta
	ContentHash Digest
	ModuleHash  Digest // content plus dependencies
}

// IsValidModuleIdent reports whether name is an ASCII identifier.
func IsValidModuleIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// JoinModulePath renders module path segments.
func JoinModulePath(segments ...string) string {
	return strings.Join(segments, ModuleSep)
}

// SplitModulePath is the inverse of JoinModulePath.
func SplitModulePath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ModuleSep)
}
