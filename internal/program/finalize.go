package program

import (
	"keel/internal/project"
	"keel/internal/ty"
	"keel/internal/types"
)

// finalize defaults leftover numeric variables, rewrites every expression
// type to its canonical handle and records the types passed to `__log` and
// `__smo`.
func finalize(engines ty.Engines, prog *ty.Program, cfg project.BuildConfig) {
	in := engines.Types
	canon := func(id types.TypeID) types.TypeID {
		in.DefaultNumerics(id)
		return in.Canonical(id)
	}
	canonAll := func(ids []types.TypeID) {
		for i, id := range ids {
			ids[i] = canon(id)
		}
	}

	logs := newTypeIDs(in, cfg.NewEncoding)
	msgs := newTypeIDs(in, cfg.NewEncoding)
	ty.Inspect(prog.Root, engines.Decls, func(e *ty.Expr) bool {
		e.Type = canon(e.Type)
		switch {
		case e.Struct != nil:
			canonAll(e.Struct.TypeArgs)
		case e.Call != nil:
			canonAll(e.Call.TypeArgs)
		case e.Intrinsic != nil:
			canonAll(e.Intrinsic.TypeArgs)
			args := e.Intrinsic.Args
			switch e.Intrinsic.Kind {
			case ty.IntrinsicLog:
				if len(args) == 1 {
					logs.add(canon(args[0].Type))
				}
			case ty.IntrinsicSmo:
				if len(args) == 2 {
					msgs.add(canon(args[1].Type))
				}
			}
		}
		return true
	})

	for _, c := range engines.Decls.Constants.All {
		c.Type.Type = canon(c.Type.Type)
	}
	for _, s := range engines.Decls.Storage.All {
		for i := range s.Fields {
			s.Fields[i].Type.Type = canon(s.Fields[i].Type.Type)
		}
	}

	for _, t := range logs.order {
		prog.LoggedTypes = append(prog.LoggedTypes, ty.LoggedType{LogID: logs.ids[t], Type: t})
	}
	for _, t := range msgs.order {
		prog.MessageTypes = append(prog.MessageTypes, ty.MessageType{MessageID: msgs.ids[t], Type: t})
	}
}

// typeIDs numbers distinct types in encounter order, or by content hash.
type typeIDs struct {
	in     *types.Interner
	byHash bool
	ids    map[types.TypeID]uint64
	order  []types.TypeID
}

func newTypeIDs(in *types.Interner, byHash bool) *typeIDs {
	return &typeIDs{in: in, byHash: byHash, ids: make(map[types.TypeID]uint64)}
}

func (t *typeIDs) add(id types.TypeID) {
	if _, ok := t.ids[id]; ok {
		return
	}
	n := uint64(len(t.order))
	if t.byHash {
		n = t.in.Hash(id)
	}
	t.ids[id] = n
	t.order = append(t.order, id)
}
