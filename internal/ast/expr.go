package ast

import (
	"keel/internal/source"
)

type ExprKind uint8

const (
	ExprLiteral ExprKind = iota
	ExprVariable
	ExprStruct
	ExprCall
	ExprIf
	ExprTuple
	ExprBlock
	ExprIntrinsic
	ExprReturn
)

func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "literal"
	case ExprVariable:
		return "variable"
	case ExprStruct:
		return "struct"
	case ExprCall:
		return "call"
	case ExprIf:
		return "if"
	case ExprTuple:
		return "tuple"
	case ExprBlock:
		return "block"
	case ExprIntrinsic:
		return "intrinsic"
	case ExprReturn:
		return "return"
	default:
		return "expr?"
	}
}

type LiteralKind uint8

const (
	LitUint LiteralKind = iota
	LitBool
	LitString
	LitB256
)

// Literal keeps the source text; typed values are derived during checking.
// Suffix carries an explicit width such as "u8" when one was written.
type Literal struct {
	Kind   LiteralKind
	Text   string
	Suffix string
}

// StructExprField is one `name: value` pair of a struct literal.
type StructExprField struct {
	Name  source.Ident
	Value *Expr
}

// StructExpr is a struct literal `Path::<T> { a: x, b: y }`.
type StructExpr struct {
	Binding TypeBinding
	Fields  []StructExprField
}

// CallExpr is a function application.
type CallExpr struct {
	Binding TypeBinding
	Args    []*Expr
}

type IfExpr struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

// IntrinsicExpr is a compiler built-in call such as `__eq(a, b)`.
type IntrinsicExpr struct {
	Name     source.Ident
	TypeArgs TypeArgs
	Args     []*Expr
}

// Block is a sequence of nodes; a trailing expression node without a
// semicolon is the block value.
type Block struct {
	Nodes []*Node
	Span  source.Span
}

// Expr is a tagged union; exactly the payload matching Kind is set.
type Expr struct {
	Kind      ExprKind
	Span      source.Span
	Literal   *Literal
	Name      source.Ident
	Struct    *StructExpr
	Call      *CallExpr
	If        *IfExpr
	Elems     []*Expr
	Block     *Block
	Intrinsic *IntrinsicExpr
	Value     *Expr
}
