package ty

import (
	"keel/internal/ast"
	"keel/internal/decls"
	"keel/internal/source"
	"keel/internal/types"
)

type (
	StructRef   = decls.ID[StructDecl]
	FnRef       = decls.ID[FunctionDecl]
	StorageRef  = decls.ID[StorageDecl]
	ConstantRef = decls.ID[ConstantDecl]
)

type FunctionParameter struct {
	Name source.Ident
	Type TypeArgument
}

// FunctionDecl is a checked function. Body is nil until the body has been
// checked, which allows recursive calls to resolve the signature first.
type FunctionDecl struct {
	CallPath   ast.CallPath
	Vis        ast.Visibility
	TypeParams []TypeParameter
	Params     []FunctionParameter
	Return     TypeArgument
	Body       *Block
	Span       source.Span
	Attrs      []ast.Attr
	Synthetic  bool
}

func (d *FunctionDecl) Name() source.Ident {
	return d.CallPath.Suffix
}

// IsGeneric reports whether the function declares type parameters.
func (d *FunctionDecl) IsGeneric() bool {
	return len(d.TypeParams) > 0
}

type StorageField struct {
	Name source.Ident
	Type TypeArgument
	Init *Expr
	Span source.Span
}

type StorageDecl struct {
	Fields []StorageField
	Span   source.Span
}

type ConstantDecl struct {
	CallPath     ast.CallPath
	Vis          ast.Visibility
	Type         TypeArgument
	Value        *Expr
	Configurable bool
	Span         source.Span
}

func (d *ConstantDecl) Name() source.Ident {
	return d.CallPath.Suffix
}

type VariableDecl struct {
	Name    source.Ident
	Type    TypeArgument
	Value   *Expr
	Mutable bool
}

type DeclKind uint8

const (
	DeclStruct DeclKind = iota
	DeclFunction
	DeclStorage
	DeclConstant
	DeclVariable
)

func (k DeclKind) String() string {
	switch k {
	case DeclStruct:
		return "struct"
	case DeclFunction:
		return "fn"
	case DeclStorage:
		return "storage"
	case DeclConstant:
		return "const"
	case DeclVariable:
		return "let"
	default:
		return "decl?"
	}
}

// Decl references a checked declaration held by the DeclEngine.
type Decl struct {
	Kind    DeclKind
	Name    source.Ident
	Span    source.Span
	Struct  StructRef
	Fn      FnRef
	Storage StorageRef
	Const   ConstantRef
	Var     *VariableDecl
}

// DeclEngine is the declaration interner shared by every module of a
// compilation unit.
type DeclEngine struct {
	Structs   *decls.Arena[StructDecl]
	Functions *decls.Arena[FunctionDecl]
	Storage   *decls.Arena[StorageDecl]
	Constants *decls.Arena[ConstantDecl]
}

func NewDeclEngine() *DeclEngine {
	return &DeclEngine{
		Structs:   decls.NewArena[StructDecl](32),
		Functions: decls.NewArena[FunctionDecl](64),
		Storage:   decls.NewArena[StorageDecl](1),
		Constants: decls.NewArena[ConstantDecl](16),
	}
}

func (e *DeclEngine) Struct(ref StructRef) *StructDecl { return e.Structs.Get(ref) }
func (e *DeclEngine) Function(ref FnRef) *FunctionDecl { return e.Functions.Get(ref) }
func (e *DeclEngine) StorageDecl(ref StorageRef) *StorageDecl { return e.Storage.Get(ref) }
func (e *DeclEngine) Constant(ref ConstantRef) *ConstantDecl { return e.Constants.Get(ref) }

// Engines bundles the shared interners passed through checking.
type Engines struct {
	Types   *types.Interner
	Decls   *DeclEngine
	Strings *source.Interner
}

// NewEngines allocates a fresh set of interners.
func NewEngines() Engines {
	strs := source.NewInterner()
	return Engines{
		Types:   types.NewInterner(strs),
		Decls:   NewDeclEngine(),
		Strings: strs,
	}
}
