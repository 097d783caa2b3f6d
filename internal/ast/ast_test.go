package ast

import (
	"slices"
	"testing"

	"keel/internal/source"
)

func TestCallPathString(t *testing.T) {
	p := PathOf("lib", "shapes", "Point")
	if got := p.String(); got != "lib::shapes::Point" {
		t.Fatalf("String() = %q", got)
	}
	abs := p.WithPrefixes([]source.Ident{source.NewIdent("root")})
	if got := abs.String(); got != "::root::Point" {
		t.Fatalf("absolute String() = %q", got)
	}
	if !slices.Equal(p.Segments(), []string{"lib", "shapes", "Point"}) {
		t.Fatalf("Segments() = %v", p.Segments())
	}
}

func TestParseTreeType(t *testing.T) {
	tests := []struct {
		in   string
		want TreeType
	}{
		{"script", TreeScript},
		{"Predicate", TreePredicate},
		{" contract ", TreeContract},
		{"lib", TreeLibrary},
	}
	for _, tt := range tests {
		got, err := ParseTreeType(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("ParseTreeType(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseTreeType("service"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestWalkPathsVisitsNestedExpressions(t *testing.T) {
	b := NewBuilder(source.NoSpan)
	lit := &Expr{Kind: ExprStruct, Struct: &StructExpr{
		Binding: TypeBinding{Inner: PathOf("shapes", "Point")},
		Fields: []StructExprField{
			{Name: source.NewIdent("x"), Value: b.Call(PathOf("math", "zero"), nil)},
		},
	}}
	m := &Module{Nodes: []*Node{
		b.Fn("main", VisPublic, nil, b.Named("u64"), b.Block(b.Tail(b.If(b.Bool(true), lit, nil)))),
	}}
	var seen []string
	m.WalkPaths(func(p CallPath) { seen = append(seen, p.String()) })
	for _, want := range []string{"u64", "shapes::Point", "math::zero"} {
		if !slices.Contains(seen, want) {
			t.Fatalf("path %q not visited; saw %v", want, seen)
		}
	}
}
