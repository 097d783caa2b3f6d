package types

// SubstMap maps generic parameters to the types that replace them.
type SubstMap map[TypeID]TypeID

// NewSubstMap pairs params with args positionally. Extra entries on either
// side are ignored.
func NewSubstMap(params, args []TypeID) SubstMap {
	n := min(len(params), len(args))
	m := make(SubstMap, n)
	for i := range n {
		if params[i] != NoTypeID && args[i] != NoTypeID {
			m[params[i]] = args[i]
		}
	}
	return m
}

// IsEmpty reports whether applying m would be a no-op.
func (m SubstMap) IsEmpty() bool {
	return len(m) == 0
}

// Subst rewrites id by replacing every parameter found in m. Types that do
// not mention a mapped parameter keep their handle.
func (in *Interner) Subst(id TypeID, m SubstMap) TypeID {
	if m.IsEmpty() {
		return id
	}
	return in.substDepth(id, m, 0)
}

// SubstAll applies m to every element of ids.
func (in *Interner) SubstAll(ids []TypeID, m SubstMap) []TypeID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]TypeID, len(ids))
	for i, id := range ids {
		out[i] = in.Subst(id, m)
	}
	return out
}

func (in *Interner) substDepth(id TypeID, m SubstMap, depth int) TypeID {
	if id == NoTypeID || depth > maxTypeDepth {
		return id
	}
	if repl, ok := m[id]; ok {
		return repl
	}
	resolved := in.Resolve(id)
	if repl, ok := m[resolved]; ok {
		return repl
	}
	tt, ok := in.Lookup(resolved)
	if !ok {
		return id
	}
	switch tt.Kind {
	case KindTuple:
		info, _ := in.TupleInfo(resolved)
		elems, changed := in.substList(elemsOf(info), m, depth)
		if !changed {
			return id
		}
		return in.Tuple(elems)
	case KindStruct:
		info, _ := in.StructInfo(resolved)
		args, changed := in.substList(info.Args, m, depth)
		if !changed {
			return id
		}
		return in.Struct(info.Decl, info.Name, args)
	}
	return id
}

func (in *Interner) substList(ids []TypeID, m SubstMap, depth int) ([]TypeID, bool) {
	if len(ids) == 0 {
		return nil, false
	}
	out := make([]TypeID, len(ids))
	changed := false
	for i, id := range ids {
		out[i] = in.substDepth(id, m, depth+1)
		if out[i] != id {
			changed = true
		}
	}
	return out, changed
}

// Canonical rebuilds id with every bound variable replaced by its binding,
// so the result no longer depends on the binding table.
func (in *Interner) Canonical(id TypeID) TypeID {
	return in.canonical(id, 0)
}

func (in *Interner) canonical(id TypeID, depth int) TypeID {
	id = in.Resolve(id)
	if depth > maxTypeDepth {
		return id
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch tt.Kind {
	case KindTuple:
		info, _ := in.TupleInfo(id)
		elems := elemsOf(info)
		if len(elems) == 0 {
			return id
		}
		out := make([]TypeID, len(elems))
		for i, e := range elems {
			out[i] = in.canonical(e, depth+1)
		}
		return in.Tuple(out)
	case KindStruct:
		info, _ := in.StructInfo(id)
		if len(info.Args) == 0 {
			return id
		}
		out := make([]TypeID, len(info.Args))
		for i, a := range info.Args {
			out[i] = in.canonical(a, depth+1)
		}
		return in.Struct(info.Decl, info.Name, out)
	}
	return id
}
