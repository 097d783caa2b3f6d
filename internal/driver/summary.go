package driver

import (
	"fmt"

	"keel/internal/cache"
	"keel/internal/diag"
	"keel/internal/project"
	"keel/internal/source"
	"keel/internal/ty"
	"keel/internal/types"
)

// summarize flattens a checked program into its cacheable form.
func summarize(m *project.Manifest, engines ty.Engines, prog *ty.Program, bag *diag.Bag, fs *source.FileSet) *cache.Summary {
	de := engines.Decls
	sum := &cache.Summary{
		Package: m.Name,
		Kind:    fmt.Sprint(prog.Kind),
		Modules: modulePaths(m.Name, prog.Root),
	}
	for _, ref := range prog.EntryFns() {
		sum.Entries = append(sum.Entries, de.Function(ref).Name().Name)
	}
	for _, ref := range prog.Configurables {
		sum.Configurables = append(sum.Configurables, de.Constant(ref).Name().Name)
	}
	for _, lt := range prog.LoggedTypes {
		sum.LoggedTypes = append(sum.LoggedTypes, cache.TypeRecord{ID: lt.LogID, Label: types.Label(engines.Types, lt.Type)})
	}
	for _, mt := range prog.MessageTypes {
		sum.MessageTypes = append(sum.MessageTypes, cache.TypeRecord{ID: mt.MessageID, Label: types.Label(engines.Types, mt.Type)})
	}
	for _, s := range prog.StorageSlots {
		sum.StorageSlots = append(sum.StorageSlots, cache.Slot{Key: s.Key, Value: s.Value})
	}
	for _, d := range bag.Items() {
		sum.Diagnostics = append(sum.Diagnostics, cache.Diagnostic{
			Code:     uint16(d.Code),
			Severity: uint8(d.Severity),
			Message:  d.Message,
			Location: locate(fs, d.Primary),
		})
		if d.Severity >= diag.SevError {
			sum.Errors++
		}
	}
	return sum
}

// modulePaths lists the module tree depth first, root included.
func modulePaths(pkg string, root *ty.Module) []string {
	var out []string
	var walk func(path string, m *ty.Module)
	walk = func(path string, m *ty.Module) {
		out = append(out, path)
		if m == nil {
			return
		}
		for _, sm := range m.Submodules {
			walk(path+"::"+sm.Name.Name, sm.Module)
		}
	}
	walk(pkg, root)
	return out
}

func locate(fs *source.FileSet, sp source.Span) string {
	f := fs.Get(sp.File)
	if f == nil {
		return ""
	}
	start, _, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", f.Path, start.Line, start.Col)
}
