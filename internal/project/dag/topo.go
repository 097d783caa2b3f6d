package dag

import (
	"slices"
)

type Topo struct {
	Order   []ModuleID   // dependencies first, only present modules
	Batches [][]ModuleID // waves of mutually independent modules
	Cyclic  bool
	Cycles  []ModuleID // modules left with unresolved dependencies
}

// ToposortKahn orders g so that every module follows the modules it
// depends on.
func ToposortKahn(g Graph) *Topo {
	nodeCount := len(g.Edges)
	indeg := make([]int, len(g.Indeg))
	copy(indeg, g.Indeg)

	dependents := make([][]ModuleID, nodeCount)
	for from, deps := range g.Edges {
		for _, to := range deps {
			dependents[int(to)] = append(dependents[int(to)], toModuleID(from))
		}
	}

	topo := &Topo{
		Order:   make([]ModuleID, 0, nodeCount),
		Batches: make([][]ModuleID, 0),
	}

	active := 0
	current := make([]ModuleID, 0, nodeCount)
	for i := range nodeCount {
		if !g.Present[i] {
			continue
		}
		active++
		if indeg[i] == 0 {
			current = append(current, toModuleID(i))
		}
	}

	visited := 0
	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]ModuleID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, dep := range dependents[int(id)] {
				indeg[int(dep)]--
				if indeg[int(dep)] == 0 {
					next = append(next, dep)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != active {
		topo.Cyclic = true
		topo.Cycles = cycleMembers(g, indeg, dependents)
	}

	return topo
}

// cycleMembers drops from the unresolved set the modules that merely depend
// on a cycle, so only modules lying on one remain.
func cycleMembers(g Graph, indeg []int, dependents [][]ModuleID) []ModuleID {
	left := make([]bool, len(indeg))
	for i := range indeg {
		left[i] = g.Present[i] && indeg[i] > 0
	}
	for changed := true; changed; {
		changed = false
		for i := range left {
			if !left[i] {
				continue
			}
			needed := false
			for _, dep := range dependents[i] {
				if left[int(dep)] {
					needed = true
					break
				}
			}
			if !needed {
				left[i] = false
				changed = true
			}
		}
	}
	var out []ModuleID
	for i, ok := range left {
		if ok {
			out = append(out, toModuleID(i))
		}
	}
	return out
}
