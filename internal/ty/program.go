package ty

import (
	"bytes"

	"keel/internal/source"
	"keel/internal/types"
)

// ProgramKind is a closed set: Script, Predicate, Contract and Library.
// Match it with an exhaustive type switch.
type ProgramKind interface {
	programKind()
	String() string
}

type Script struct{ Main FnRef }
type Predicate struct{ Main FnRef }

// Contract lists the externally callable functions in declaration order.
type Contract struct{ Entries []FnRef }

type Library struct{ Name string }

func (Script) programKind()    {}
func (Predicate) programKind() {}
func (Contract) programKind()  {}
func (Library) programKind()   {}

func (Script) String() string    { return "script" }
func (Predicate) String() string { return "predicate" }
func (Contract) String() string  { return "contract" }
func (Library) String() string   { return "library" }

// StorageSlot is one initialized storage word.
type StorageSlot struct {
	Key   [32]byte
	Value [32]byte
}

// Compare orders slots by key, then by value.
func (s StorageSlot) Compare(o StorageSlot) int {
	if c := bytes.Compare(s.Key[:], o.Key[:]); c != 0 {
		return c
	}
	return bytes.Compare(s.Value[:], o.Value[:])
}

type LoggedType struct {
	LogID uint64
	Type  types.TypeID
}

type MessageType struct {
	MessageID uint64
	Type      types.TypeID
}

// Module is a checked module. Nodes keeps every checked node, including
// synthesized ones appended after primary checking.
type Module struct {
	Nodes      []*Node
	Submodules []Submodule
	Span       source.Span
}

type Submodule struct {
	Name   source.Ident
	Module *Module
}

// Program is the fully typed output of checking one package.
type Program struct {
	Kind          ProgramKind
	Root          *Module
	Declarations  []Decl
	Configurables []ConstantRef
	StorageSlots  []StorageSlot
	LoggedTypes   []LoggedType
	MessageTypes  []MessageType
}

// EntryFns returns the externally callable functions of a contract.
func (p *Program) EntryFns() []FnRef {
	if c, ok := p.Kind.(Contract); ok {
		return c.Entries
	}
	return nil
}

// Storage returns the storage declaration of the root module, if any.
func (p *Program) Storage() (StorageRef, bool) {
	for _, d := range p.Declarations {
		if d.Kind == DeclStorage {
			return d.Storage, true
		}
	}
	return 0, false
}
