package dag

import (
	"slices"
	"testing"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/project"
	"keel/internal/source"
)

func newHandler() (*diag.Handler, *diag.Bag) {
	bag := diag.NewBag(16)
	return diag.NewHandler(diag.BagReporter{Bag: bag}), bag
}

func TestBuildIndexIncludesImports(t *testing.T) {
	metas := []project.ModuleMeta{
		{
			Path: "core",
			Imports: []project.ImportMeta{
				{Path: "math"},
				{Path: "util"},
			},
		},
		{Path: "util"},
	}

	idx := BuildIndex(metas)

	wantNames := []string{"core", "math", "util"}
	if len(idx.IDToName) != len(wantNames) {
		t.Fatalf("unexpected module count: %d", len(idx.IDToName))
	}
	for i, want := range wantNames {
		if got := idx.IDToName[i]; got != want {
			t.Fatalf("idx.IDToName[%d] = %q, want %q", i, got, want)
		}
		if id, ok := idx.NameToID[want]; !ok || int(id) != i {
			t.Fatalf("idx.NameToID[%q] = %v, want %d", want, id, i)
		}
	}
}

func TestBuildGraphReportsMissingModules(t *testing.T) {
	appMeta := project.ModuleMeta{
		Path: "app",
		Span: source.Span{File: 1, End: 10},
		Imports: []project.ImportMeta{
			{Path: "core", Span: source.Span{File: 1, Start: 1, End: 4}},
			{Path: "util", Span: source.Span{File: 1, Start: 5, End: 8}},
		},
	}
	coreMeta := project.ModuleMeta{Path: "core", Span: source.Span{File: 2, End: 8}}

	bag := diag.NewBag(10)
	nodes := []ModuleNode{
		{Meta: appMeta, Reporter: diag.BagReporter{Bag: bag}},
		{Meta: coreMeta, Reporter: diag.BagReporter{Bag: bag}},
	}
	idx := BuildIndex([]project.ModuleMeta{appMeta, coreMeta})
	graph := BuildGraph(idx, nodes)

	appID := idx.NameToID["app"]
	coreID := idx.NameToID["core"]
	if deps := graph.Edges[int(appID)]; len(deps) != 1 || deps[0] != coreID {
		t.Fatalf("app deps = %v, want [%v]", deps, coreID)
	}
	if graph.Indeg[int(appID)] != 1 || graph.Indeg[int(coreID)] != 0 {
		t.Fatalf("indeg = %v", graph.Indeg)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.ProjMissingModule {
		t.Fatalf("diagnostics = %v, want one missing-module", bag.Items())
	}
}

func TestBuildGraphDuplicateModules(t *testing.T) {
	spanA := source.Span{File: 1, End: 5}
	metaA := project.ModuleMeta{Path: "dup", Span: spanA}
	metaB := project.ModuleMeta{Path: "dup", Span: source.Span{File: 2, End: 5}}

	bagA := diag.NewBag(10)
	bagB := diag.NewBag(10)
	nodes := []ModuleNode{
		{Meta: metaA, Reporter: diag.BagReporter{Bag: bagA}},
		{Meta: metaB, Reporter: diag.BagReporter{Bag: bagB}},
	}
	graph := BuildGraph(BuildIndex([]project.ModuleMeta{metaA, metaB}), nodes)

	if bagA.Len() != 0 {
		t.Fatalf("unexpected diagnostics for first module: %v", bagA.Items())
	}
	if bagB.Len() != 1 || bagB.Items()[0].Code != diag.ProjDuplicateModule {
		t.Fatalf("duplicate diagnostics = %v", bagB.Items())
	}
	if slot := graph.Slots[0]; !slot.Present || slot.Meta.Span != spanA {
		t.Fatalf("expected slot to hold first module metadata")
	}
}

func TestToposortKahnBatches(t *testing.T) {
	metas := []project.ModuleMeta{
		{Path: "b", Imports: []project.ImportMeta{{Path: "c"}}},
		{Path: "a"},
		{Path: "c"},
	}
	nodes := make([]ModuleNode, len(metas))
	for i, m := range metas {
		nodes[i] = ModuleNode{Meta: m}
	}
	idx := BuildIndex(metas)
	topo := ToposortKahn(BuildGraph(idx, nodes))
	if topo.Cyclic {
		t.Fatalf("expected acyclic graph")
	}

	if got, want := idx.Names(topo.Order), []string{"a", "c", "b"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	wantBatches := [][]string{{"a", "c"}, {"b"}}
	if len(topo.Batches) != len(wantBatches) {
		t.Fatalf("batches = %v", topo.Batches)
	}
	for i, want := range wantBatches {
		if got := idx.Names(topo.Batches[i]); !slices.Equal(got, want) {
			t.Fatalf("batch[%d] = %v, want %v", i, got, want)
		}
	}
}

func submodule(name string, nodes ...*ast.Node) ast.Submodule {
	return ast.Submodule{Name: source.NewIdent(name), Module: &ast.Module{Nodes: nodes}}
}

func useOf(segments ...string) *ast.Node {
	path := make([]source.Ident, len(segments))
	for i, s := range segments {
		path[i] = source.NewIdent(s)
	}
	return &ast.Node{Kind: ast.NodeDecl, Decl: &ast.Decl{Kind: ast.DeclUse, Use: &ast.UseDecl{Path: path}}}
}

func TestComputeOrderRespectsEdges(t *testing.T) {
	root := &ast.Module{Submodules: []ast.Submodule{
		submodule("app", useOf("model", "User"), useOf("util", "helper")),
		submodule("model", useOf("pkg", "util", "Id")),
		submodule("util"),
	}}
	h, bag := newHandler()
	order, err := ComputeOrder(h, Analyze(h, root, "pkg"))
	if err != nil {
		t.Fatalf("ComputeOrder: %v %v", err, bag.Items())
	}
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	edges := [][2]string{{"app", "model"}, {"app", "util"}, {"model", "util"}}
	for _, e := range edges {
		if pos[e[0]] <= pos[e[1]] {
			t.Fatalf("order %v places %s before its dependency %s", order, e[0], e[1])
		}
	}
	if len(order) != 3 {
		t.Fatalf("order = %v, want all modules", order)
	}
}

func TestComputeOrderRejectsCycles(t *testing.T) {
	root := &ast.Module{Submodules: []ast.Submodule{
		submodule("a", useOf("b", "X")),
		submodule("b", useOf("a", "Y")),
		submodule("c", useOf("a", "Z")),
	}}
	h, bag := newHandler()
	order, err := ComputeOrder(h, Analyze(h, root, "pkg"))
	if err == nil || order != nil {
		t.Fatalf("cycle must fail without an order, got %v", order)
	}
	if bag.Count(diag.ProjImportCycle) != 1 {
		t.Fatalf("want one cycle diagnostic, got %v", bag.Items())
	}
	d := bag.Items()[0]
	if len(d.Notes) != 2 {
		t.Fatalf("cycle should name exactly a and b, notes = %v", d.Notes)
	}
}

func TestAnalyzeIgnoresShadowedAndSelfPaths(t *testing.T) {
	inner := submodule("b")
	root := &ast.Module{Submodules: []ast.Submodule{
		{Name: source.NewIdent("a"), Module: &ast.Module{
			Nodes:      []*ast.Node{useOf("b", "X"), useOf("a", "Y")},
			Submodules: []ast.Submodule{inner},
		}},
		submodule("b", useOf("a", "Z")),
	}}
	h, bag := newHandler()
	batches, err := Batches(h, Analyze(h, root, "pkg"))
	if err != nil {
		t.Fatalf("a::b is a child of a, not the sibling: %v", bag.Items())
	}
	if len(batches) != 2 || batches[0][0] != "a" || batches[1][0] != "b" {
		t.Fatalf("batches = %v", batches)
	}
}

func TestAnalyzeAtResolvesNestedSiblings(t *testing.T) {
	// pkg { a { inner, other, shadow { other } } }
	nested := &ast.Module{Submodules: []ast.Submodule{
		submodule("inner", useOf("pkg", "a", "other", "Y"), useOf("a", "other", "Z")),
		submodule("other"),
		{Name: source.NewIdent("shadow"), Module: &ast.Module{
			Nodes:      []*ast.Node{useOf("other", "W")},
			Submodules: []ast.Submodule{submodule("other")},
		}},
	}}
	top := &ast.Module{Submodules: []ast.Submodule{{Name: source.NewIdent("a"), Module: nested}}}

	h, bag := newHandler()
	g := AnalyzeAt(h, nested, Location{Pkg: "pkg", Path: []string{"a"}, Top: top})
	batches, err := Batches(h, g)
	if err != nil {
		t.Fatalf("Batches: %v %v", err, bag.Items())
	}
	want := [][]string{{"other", "shadow"}, {"inner"}}
	if len(batches) != len(want) {
		t.Fatalf("batches = %v, want %v", batches, want)
	}
	for i := range want {
		if !slices.Equal(batches[i], want[i]) {
			t.Fatalf("batches = %v, want %v", batches, want)
		}
	}
}
