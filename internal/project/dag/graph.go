package dag

import (
	"fmt"
	"slices"
	"strings"

	"keel/internal/diag"
	"keel/internal/project"
	"keel/internal/source"
)

// Graph is a module dependency graph. Edges[from] lists the modules from
// depends on; Indeg[from] counts those that are present.
type Graph struct {
	Index   ModuleIndex
	Slots   []ModuleSlot
	Edges   [][]ModuleID
	Indeg   []int
	Present []bool
}

type ModuleNode struct {
	Meta     project.ModuleMeta
	Reporter diag.Reporter
}

type ModuleSlot struct {
	Meta     project.ModuleMeta
	Reporter diag.Reporter
	Present  bool
}

func BuildGraph(idx ModuleIndex, nodes []ModuleNode) Graph {
	nodeCount := len(idx.IDToName)
	g := Graph{
		Index:   idx,
		Slots:   make([]ModuleSlot, nodeCount),
		Edges:   make([][]ModuleID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	for i, name := range idx.IDToName {
		g.Slots[i].Meta.Path = name
	}

	for _, node := range nodes {
		meta := node.Meta
		if meta.Path == "" {
			continue
		}
		id, ok := idx.NameToID[meta.Path]
		if !ok {
			continue
		}
		slot := &g.Slots[int(id)]
		if slot.Present {
			if node.Reporter != nil {
				notes := make([]diag.Note, 0, 1)
				if slot.Meta.Span != (source.Span{}) {
					notes = append(notes, diag.Note{
						Span: slot.Meta.Span,
						Msg:  fmt.Sprintf("previous declaration of %q", slot.Meta.Path),
					})
				}
				node.Reporter.Report(
					diag.ProjDuplicateModule,
					diag.SevError,
					meta.Span,
					fmt.Sprintf("duplicate module %q", meta.Path),
					notes,
					nil,
				)
			}
			continue
		}
		slot.Meta = meta
		slot.Reporter = node.Reporter
		slot.Present = true
		g.Present[int(id)] = true
	}

	for from := range g.Slots {
		slot := &g.Slots[from]
		if !slot.Present || len(slot.Meta.Imports) == 0 {
			continue
		}
		seen := make(map[ModuleID]struct{}, len(slot.Meta.Imports))
		for _, dep := range slot.Meta.Imports {
			if dep.Path == "" {
				continue
			}
			toID := idx.NameToID[dep.Path]
			if toModuleID(from) == toID {
				if slot.Reporter != nil {
					slot.Reporter.Report(
						diag.ProjSelfImport,
						diag.SevError,
						dep.Span,
						fmt.Sprintf("module %q references itself", slot.Meta.Path),
						nil,
						nil,
					)
				}
				continue
			}
			if _, dup := seen[toID]; dup {
				continue
			}
			seen[toID] = struct{}{}

			if !g.Present[int(toID)] {
				if slot.Reporter != nil {
					slot.Reporter.Report(
						diag.ProjMissingModule,
						diag.SevError,
						dep.Span,
						fmt.Sprintf("module %q references missing module %q", slot.Meta.Path, dep.Path),
						nil,
						nil,
					)
				}
				continue
			}
			g.Edges[from] = append(g.Edges[from], toID)
			g.Indeg[from]++
		}
		if len(g.Edges[from]) > 1 {
			slices.Sort(g.Edges[from])
		}
	}

	return g
}

// ReportCycles emits one error naming every module left in a cycle and
// returns its marker.
func ReportCycles(h *diag.Handler, g Graph, topo *Topo) *diag.Emitted {
	if !topo.Cyclic || len(topo.Cycles) == 0 {
		return nil
	}
	names := g.Index.Names(topo.Cycles)
	summary := strings.Join(names, " -> ")

	first := g.Slots[int(topo.Cycles[0])]
	d := diag.NewError(diag.ProjImportCycle, first.Meta.Span,
		fmt.Sprintf("modules depend on each other in a cycle: %s", summary))
	for _, id := range topo.Cycles {
		slot := g.Slots[int(id)]
		d = d.WithNote(slot.Meta.Span, fmt.Sprintf("module %q participates in the cycle", slot.Meta.Path))
	}
	return h.EmitErr(d)
}
