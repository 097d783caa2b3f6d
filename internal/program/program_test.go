package program

import (
	"context"
	"testing"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/project"
	"keel/internal/source"
	"keel/internal/ty"
)

func check(t *testing.T, kind ast.TreeType, root *ast.Module, cfg project.BuildConfig, opts ...Option) (*ty.Program, ty.Engines, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	h := diag.NewHandler(diag.BagReporter{Bag: bag})
	engines := ty.NewEngines()
	prog, _ := TypeCheck(context.Background(), h, engines, &ast.ParseProgram{Kind: kind, Root: root}, nil, "app", cfg, opts...)
	if prog == nil {
		t.Fatalf("TypeCheck returned no program: %v", bag.Items())
	}
	return prog, engines, bag
}

func entryFns(prog *ty.Program, engines ty.Engines) []*ty.FunctionDecl {
	var out []*ty.FunctionDecl
	for _, n := range prog.Root.Nodes {
		if n.Kind != ty.NodeDecl || n.Decl == nil || n.Decl.Kind != ty.DeclFunction {
			continue
		}
		if fn := engines.Decls.Function(n.Decl.Fn); fn.Name().Name == EntryName {
			out = append(out, fn)
		}
	}
	return out
}

func storageNode(b *ast.Builder) *ast.Node {
	return b.DeclNode(&ast.Decl{Kind: ast.DeclStorage, Storage: &ast.StorageDecl{Fields: []ast.StorageField{
		{Name: b.Ident("supply"), Type: b.Named("u64"), Init: b.Uint(0, "")},
	}}})
}

func TestContractGetsOneEntry(t *testing.T) {
	b := ast.NewBuilder(source.NoSpan)
	root := &ast.Module{Nodes: []*ast.Node{
		b.DeclNode(&ast.Decl{Kind: ast.DeclFunction, Fn: &ast.FnDecl{
			Name:   b.Ident("transfer"),
			Vis:    ast.VisPublic,
			Params: []ast.Param{{Name: b.Ident("amount"), Type: b.Named("u64")}},
			Return: b.Named("u64"),
			Body:   b.Block(b.Tail(b.Var("amount"))),
		}}),
		b.Fn("helper", ast.VisPrivate, nil, nil, b.Block()),
		storageNode(b),
	}}
	prog, engines, bag := check(t, ast.TreeContract, root, project.BuildConfig{})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	contract, ok := prog.Kind.(ty.Contract)
	if !ok || len(contract.Entries) != 1 {
		t.Fatalf("kind = %#v, want a contract with one entry", prog.Kind)
	}
	entries := entryFns(prog, engines)
	if len(entries) != 1 {
		t.Fatalf("%s functions = %d, want 1", EntryName, len(entries))
	}
	if !entries[0].Synthetic || entries[0].Body == nil {
		t.Fatalf("dispatcher must be synthetic and checked: %+v", entries[0])
	}
}

func TestOtherKindsGetNoEntry(t *testing.T) {
	tests := []struct {
		name string
		kind ast.TreeType
		main func(b *ast.Builder) *ast.Node
	}{
		{"script", ast.TreeScript, func(b *ast.Builder) *ast.Node {
			return b.Fn("main", ast.VisPrivate, nil, nil, b.Block())
		}},
		{"predicate", ast.TreePredicate, func(b *ast.Builder) *ast.Node {
			return b.Fn("main", ast.VisPrivate, nil, b.Named("bool"), b.Block(b.Tail(b.Bool(true))))
		}},
		{"library", ast.TreeLibrary, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ast.NewBuilder(source.NoSpan)
			root := &ast.Module{Nodes: []*ast.Node{b.Fn("pub_fn", ast.VisPublic, nil, nil, b.Block())}}
			if tt.main != nil {
				root.Nodes = append(root.Nodes, tt.main(b))
			}
			prog, engines, bag := check(t, tt.kind, root, project.BuildConfig{})
			if bag.Len() != 0 {
				t.Fatalf("unexpected diagnostics: %v", bag.Items())
			}
			if n := len(entryFns(prog, engines)); n != 0 {
				t.Fatalf("%s functions = %d, want 0", EntryName, n)
			}
			switch k := prog.Kind.(type) {
			case ty.Script:
				if !k.Main.IsValid() {
					t.Fatalf("script main not recorded")
				}
			case ty.Predicate:
				if !k.Main.IsValid() {
					t.Fatalf("predicate main not recorded")
				}
			case ty.Library:
				if k.Name != "app" {
					t.Fatalf("library name = %q", k.Name)
				}
			default:
				t.Fatalf("unexpected kind %#v", prog.Kind)
			}
		})
	}
}

func TestEntryCallsShadowingNames(t *testing.T) {
	b := ast.NewBuilder(source.NoSpan)
	root := &ast.Module{Nodes: []*ast.Node{
		b.Fn("selector", ast.VisPublic, nil, nil, b.Block()),
		b.Fn("__selector", ast.VisPublic, nil, nil, b.Block()),
	}}
	prog, engines, bag := check(t, ast.TreeContract, root, project.BuildConfig{})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if n := len(entryFns(prog, engines)); n != 1 {
		t.Fatalf("%s functions = %d, want 1", EntryName, n)
	}
}

func TestUserEntryIsReserved(t *testing.T) {
	at := source.Span{File: 1, Start: 10, End: 17}
	b := ast.NewBuilder(at)
	root := &ast.Module{Nodes: []*ast.Node{b.Fn(EntryName, ast.VisPublic, nil, nil, b.Block())}}
	bag := diag.NewBag(64)
	h := diag.NewHandler(diag.BagReporter{Bag: bag})
	engines := ty.NewEngines()
	prog, err := TypeCheck(context.Background(), h, engines,
		&ast.ParseProgram{Kind: ast.TreeContract, Root: root}, nil, "app", project.BuildConfig{})
	if prog == nil || err == nil {
		t.Fatalf("want a program and an error, got %v / %v", prog, err)
	}
	if bag.Len() != 1 || bag.Count(diag.ProgEntryReserved) != 1 {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
	if got := bag.Items()[0].Primary; got != at {
		t.Fatalf("diagnostic span = %v, want %v", got, at)
	}
	entries := entryFns(prog, engines)
	if len(entries) != 1 || entries[0].Synthetic {
		t.Fatalf("the declared %s must be kept and nothing synthesized", EntryName)
	}
	if contract := prog.Kind.(ty.Contract); len(contract.Entries) != 0 {
		t.Fatalf("%s must not dispatch to itself: %v", EntryName, contract.Entries)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		kind  ast.TreeType
		nodes func(b *ast.Builder) []*ast.Node
		subs  func(b *ast.Builder) []*ast.Node
		code  diag.Code
	}{
		{"missing main", ast.TreeScript, func(b *ast.Builder) []*ast.Node { return nil }, nil, diag.ProgMissingMain},
		{"predicate returns bool", ast.TreePredicate, func(b *ast.Builder) []*ast.Node {
			return []*ast.Node{b.Fn("main", ast.VisPrivate, nil, b.Named("u64"), b.Block(b.Tail(b.Uint(1, ""))))}
		}, nil, diag.ProgPredicateNotBool},
		{"contract main", ast.TreeContract, func(b *ast.Builder) []*ast.Node {
			return []*ast.Node{b.Fn("main", ast.VisPrivate, nil, nil, b.Block())}
		}, nil, diag.ProgMainNotAllowed},
		{"contract entry", ast.TreeContract, func(b *ast.Builder) []*ast.Node {
			return []*ast.Node{b.Fn(EntryName, ast.VisPublic, nil, nil, b.Block())}
		}, nil, diag.ProgEntryReserved},
		{"script storage", ast.TreeScript, func(b *ast.Builder) []*ast.Node {
			return []*ast.Node{b.Fn("main", ast.VisPrivate, nil, nil, b.Block()), storageNode(b)}
		}, nil, diag.ProgStorageNotAllowed},
		{"library main", ast.TreeLibrary, func(b *ast.Builder) []*ast.Node {
			return []*ast.Node{b.Fn("main", ast.VisPrivate, nil, nil, b.Block())}
		}, nil, diag.ProgMainNotAllowed},
		{"nested configurable", ast.TreeLibrary, func(b *ast.Builder) []*ast.Node { return nil },
			func(b *ast.Builder) []*ast.Node {
				return []*ast.Node{b.DeclNode(&ast.Decl{Kind: ast.DeclConstant, Const: &ast.ConstDecl{
					Name: b.Ident("FEE"), Vis: ast.VisPublic, Type: b.Named("u64"), Value: b.Uint(5, ""), Configurable: true,
				}})}
			}, diag.ProgConfigurableNotPub},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ast.NewBuilder(source.NoSpan)
			root := &ast.Module{Nodes: tt.nodes(b)}
			if tt.subs != nil {
				root.Submodules = []ast.Submodule{{Name: source.NewIdent("config"), Vis: ast.VisPublic, Module: &ast.Module{Nodes: tt.subs(b)}}}
			}
			bag := diag.NewBag(64)
			h := diag.NewHandler(diag.BagReporter{Bag: bag})
			prog, err := TypeCheck(context.Background(), h, ty.NewEngines(),
				&ast.ParseProgram{Kind: tt.kind, Root: root}, nil, "app", project.BuildConfig{})
			if prog == nil || err == nil {
				t.Fatalf("want a program and an error, got %v / %v", prog, err)
			}
			if got := bag.Count(tt.code); got != 1 {
				t.Fatalf("%s diagnostics = %d, want 1: %v", tt.code, got, bag.Items())
			}
		})
	}
}

func TestLoggedTypesAreDistinct(t *testing.T) {
	b := ast.NewBuilder(source.NoSpan)
	body := b.Block(
		b.Stmt(b.Intrinsic("__log", nil, b.Uint(1, "u8"))),
		b.Stmt(b.Intrinsic("__log", nil, b.Bool(true))),
		b.Stmt(b.Intrinsic("__log", nil, b.Uint(2, "u8"))),
		b.Stmt(b.Intrinsic("__smo", nil, b.Intrinsic("__decode_arg", []*ast.TypeExpr{b.Named("b256")}, b.Uint(0, "")), b.Str("hi"))),
	)
	root := &ast.Module{Nodes: []*ast.Node{b.Fn("main", ast.VisPrivate, nil, nil, body)}}

	prog, engines, bag := check(t, ast.TreeScript, root, project.BuildConfig{})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	bt := engines.Types.Builtins()
	if len(prog.LoggedTypes) != 2 {
		t.Fatalf("logged types = %+v, want 2", prog.LoggedTypes)
	}
	if prog.LoggedTypes[0].Type != bt.U8 || prog.LoggedTypes[0].LogID != 0 || prog.LoggedTypes[1].LogID != 1 {
		t.Fatalf("logged types = %+v", prog.LoggedTypes)
	}
	if len(prog.MessageTypes) != 1 || prog.MessageTypes[0].Type != bt.Str {
		t.Fatalf("message types = %+v", prog.MessageTypes)
	}

	prog, engines, _ = check(t, ast.TreeScript, root, project.BuildConfig{NewEncoding: true})
	for _, lt := range prog.LoggedTypes {
		if want := engines.Types.Hash(lt.Type); lt.LogID != want {
			t.Fatalf("log id = %d, want hash %d", lt.LogID, want)
		}
	}
}

func TestProgressEvents(t *testing.T) {
	b := ast.NewBuilder(source.NoSpan)
	root := &ast.Module{Nodes: []*ast.Node{b.Fn("main", ast.VisPrivate, nil, nil, b.Block())}}
	ch := make(chan Event, 32)
	check(t, ast.TreeScript, root, project.BuildConfig{}, WithProgress(ChannelSink{Ch: ch}))
	close(ch)

	var checked, validated bool
	for evt := range ch {
		if evt.Package != "app" {
			t.Fatalf("event for package %q", evt.Package)
		}
		switch {
		case evt.Stage == StageCheck && evt.Status == StatusDone:
			checked = true
		case evt.Stage == StageValidate && evt.Status == StatusDone:
			validated = true
		}
	}
	if !checked || !validated {
		t.Fatalf("checked=%v validated=%v", checked, validated)
	}
}

type fakeEvaluator struct {
	slots []ty.StorageSlot
	calls int
}

func (f *fakeEvaluator) StorageSlots(*diag.Handler, ty.Engines, *ty.StorageDecl) ([]ty.StorageSlot, error) {
	f.calls++
	return f.slots, nil
}

func TestStorageSlotsSortedForContracts(t *testing.T) {
	b := ast.NewBuilder(source.NoSpan)
	var hi, lo ty.StorageSlot
	hi.Key[0] = 9
	lo.Key[0] = 1
	eval := &fakeEvaluator{slots: []ty.StorageSlot{hi, lo}}

	contract, engines, bag := check(t, ast.TreeContract, &ast.Module{Nodes: []*ast.Node{storageNode(b)}}, project.BuildConfig{})
	h := diag.NewHandler(diag.BagReporter{Bag: bag})
	out, err := GetTypedProgramWithInitializedStorageSlots(context.Background(), h, engines, contract, eval)
	if err != nil {
		t.Fatalf("storage slots: %v", err)
	}
	if len(out.StorageSlots) != 2 || out.StorageSlots[0].Key[0] != 1 {
		t.Fatalf("slots not sorted: %+v", out.StorageSlots)
	}
	if eval.slots[0].Key[0] != 9 {
		t.Fatalf("evaluator result was reordered in place")
	}

	script, engines, _ := check(t, ast.TreeScript, &ast.Module{Nodes: []*ast.Node{
		b.Fn("main", ast.VisPrivate, nil, nil, b.Block()),
	}}, project.BuildConfig{})
	out, err = GetTypedProgramWithInitializedStorageSlots(context.Background(), h, engines, script, eval)
	if err != nil || out.StorageSlots == nil || len(out.StorageSlots) != 0 {
		t.Fatalf("script slots = %v, %v", out.StorageSlots, err)
	}
	if eval.calls != 1 {
		t.Fatalf("evaluator calls = %d, want 1", eval.calls)
	}
}
