package ast

import (
	"strconv"

	"keel/internal/source"
)

// Builder constructs nodes for compiler-synthesized code. Every node it
// produces carries Span, which is usually source.NoSpan.
type Builder struct {
	Span source.Span
}

// NewBuilder returns a builder stamping sp on every node.
func NewBuilder(sp source.Span) *Builder {
	return &Builder{Span: sp}
}

func (b *Builder) Ident(name string) source.Ident {
	return source.Ident{Name: name, Span: b.Span}
}

func (b *Builder) Path(segments ...string) CallPath {
	p := PathOf(segments...)
	p.Suffix.Span = b.Span
	for i := range p.Prefixes {
		p.Prefixes[i].Span = b.Span
	}
	return p
}

func (b *Builder) Named(name string, args ...*TypeExpr) *TypeExpr {
	t := NamedType(name, args...)
	t.Span = b.Span
	t.Named.Span = b.Span
	t.Named.Inner = b.Path(name)
	return t
}

func (b *Builder) Unit() *TypeExpr {
	t := UnitType()
	t.Span = b.Span
	return t
}

func (b *Builder) Var(name string) *Expr {
	return &Expr{Kind: ExprVariable, Span: b.Span, Name: b.Ident(name)}
}

func (b *Builder) Str(s string) *Expr {
	return &Expr{Kind: ExprLiteral, Span: b.Span, Literal: &Literal{Kind: LitString, Text: s}}
}

func (b *Builder) Uint(v uint64, suffix string) *Expr {
	return &Expr{Kind: ExprLiteral, Span: b.Span, Literal: &Literal{Kind: LitUint, Text: strconv.FormatUint(v, 10), Suffix: suffix}}
}

func (b *Builder) Bool(v bool) *Expr {
	return &Expr{Kind: ExprLiteral, Span: b.Span, Literal: &Literal{Kind: LitBool, Text: strconv.FormatBool(v)}}
}

// Call applies the function named by path to args.
func (b *Builder) Call(path CallPath, typeArgs []*TypeExpr, args ...*Expr) *Expr {
	return &Expr{
		Kind: ExprCall,
		Span: b.Span,
		Call: &CallExpr{
			Binding: TypeBinding{Inner: path, TypeArgs: TypeArgs{Args: typeArgs, Span: b.Span}, Span: b.Span},
			Args:    args,
		},
	}
}

func (b *Builder) Intrinsic(name string, typeArgs []*TypeExpr, args ...*Expr) *Expr {
	return &Expr{
		Kind: ExprIntrinsic,
		Span: b.Span,
		Intrinsic: &IntrinsicExpr{
			Name:     b.Ident(name),
			TypeArgs: TypeArgs{Args: typeArgs, Span: b.Span},
			Args:     args,
		},
	}
}

func (b *Builder) If(cond, then, els *Expr) *Expr {
	return &Expr{Kind: ExprIf, Span: b.Span, If: &IfExpr{Cond: cond, Then: then, Else: els}}
}

func (b *Builder) Return(value *Expr) *Expr {
	return &Expr{Kind: ExprReturn, Span: b.Span, Value: value}
}

func (b *Builder) Block(nodes ...*Node) *Block {
	return &Block{Nodes: nodes, Span: b.Span}
}

func (b *Builder) BlockExpr(nodes ...*Node) *Expr {
	return &Expr{Kind: ExprBlock, Span: b.Span, Block: b.Block(nodes...)}
}

// Stmt wraps e as a `;`-terminated expression statement.
func (b *Builder) Stmt(e *Expr) *Node {
	return &Node{Kind: NodeExpr, Expr: e, Semi: true, Span: b.Span}
}

// Tail wraps e as the value-producing last node of a block.
func (b *Builder) Tail(e *Expr) *Node {
	return &Node{Kind: NodeExpr, Expr: e, Span: b.Span}
}

func (b *Builder) Let(name string, typ *TypeExpr, value *Expr) *Node {
	return b.DeclNode(&Decl{
		Kind: DeclVariable,
		Span: b.Span,
		Var:  &VarDecl{Name: b.Ident(name), Type: typ, Value: value, Span: b.Span},
	})
}

func (b *Builder) DeclNode(d *Decl) *Node {
	return &Node{Kind: NodeDecl, Decl: d, Span: b.Span}
}

// Fn builds a non-generic function declaration node.
func (b *Builder) Fn(name string, vis Visibility, params []Param, ret *TypeExpr, body *Block) *Node {
	return b.DeclNode(&Decl{
		Kind: DeclFunction,
		Span: b.Span,
		Fn: &FnDecl{
			Name:   b.Ident(name),
			Vis:    vis,
			Params: params,
			Return: ret,
			Body:   body,
			Span:   b.Span,
		},
	})
}

// Struct builds a struct declaration node.
func (b *Builder) Struct(name string, vis Visibility, typeParams []string, fields ...FieldDecl) *Node {
	params := make([]TypeParam, len(typeParams))
	for i, p := range typeParams {
		params[i] = TypeParam{Name: b.Ident(p)}
	}
	return b.DeclNode(&Decl{
		Kind: DeclStruct,
		Span: b.Span,
		Struct: &StructDecl{
			Name:       b.Ident(name),
			Vis:        vis,
			TypeParams: params,
			Fields:     fields,
			Span:       b.Span,
		},
	})
}

func (b *Builder) Field(vis Visibility, name string, typ *TypeExpr) FieldDecl {
	return FieldDecl{Vis: vis, Name: b.Ident(name), Type: typ, Span: b.Span}
}

// StructLit builds a struct literal `path::<typeArgs> { fields }`.
func (b *Builder) StructLit(path CallPath, typeArgs []*TypeExpr, fields ...StructExprField) *Expr {
	return &Expr{
		Kind: ExprStruct,
		Span: b.Span,
		Struct: &StructExpr{
			Binding: TypeBinding{Inner: path, TypeArgs: TypeArgs{Args: typeArgs, Span: b.Span}, Span: b.Span},
			Fields:  fields,
		},
	}
}

func (b *Builder) FieldValue(name string, value *Expr) StructExprField {
	return StructExprField{Name: b.Ident(name), Value: value}
}
