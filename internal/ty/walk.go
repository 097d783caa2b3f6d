package ty

// Inspect visits every expression reachable from m's nodes in evaluation
// order, including submodules. Returning false from fn skips the children of
// that expression.
func Inspect(m *Module, de *DeclEngine, fn func(*Expr) bool) {
	if m == nil {
		return
	}
	w := inspector{de: de, fn: fn, seen: make(map[FnRef]bool)}
	w.module(m)
}

type inspector struct {
	de   *DeclEngine
	fn   func(*Expr) bool
	seen map[FnRef]bool
}

func (w *inspector) module(m *Module) {
	for _, sm := range m.Submodules {
		if sm.Module != nil {
			w.module(sm.Module)
		}
	}
	for _, n := range m.Nodes {
		w.node(n)
	}
}

func (w *inspector) node(n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case NodeExpr:
		w.expr(n.Expr)
	case NodeDecl:
		w.decl(n.Decl)
	}
}

func (w *inspector) decl(d *Decl) {
	if d == nil {
		return
	}
	switch d.Kind {
	case DeclFunction:
		if w.de == nil || w.seen[d.Fn] {
			return
		}
		w.seen[d.Fn] = true
		if fn := w.de.Function(d.Fn); fn != nil {
			w.block(fn.Body)
		}
	case DeclConstant:
		if w.de == nil {
			return
		}
		if c := w.de.Constant(d.Const); c != nil {
			w.expr(c.Value)
		}
	case DeclStorage:
		if w.de == nil {
			return
		}
		if s := w.de.StorageDecl(d.Storage); s != nil {
			for _, f := range s.Fields {
				w.expr(f.Init)
			}
		}
	case DeclVariable:
		if d.Var != nil {
			w.expr(d.Var.Value)
		}
	}
}

func (w *inspector) block(b *Block) {
	if b == nil {
		return
	}
	for _, n := range b.Nodes {
		w.node(n)
	}
}

func (w *inspector) expr(e *Expr) {
	if e == nil || !w.fn(e) {
		return
	}
	switch e.Kind {
	case ExprStruct:
		for _, f := range e.Struct.Fields {
			w.expr(f.Value)
		}
	case ExprCall:
		for _, a := range e.Call.Args {
			w.expr(a)
		}
	case ExprIf:
		w.expr(e.If.Cond)
		w.expr(e.If.Then)
		w.expr(e.If.Else)
	case ExprTuple:
		for _, el := range e.Elems {
			w.expr(el)
		}
	case ExprBlock:
		w.block(e.Block)
	case ExprIntrinsic:
		for _, a := range e.Intrinsic.Args {
			w.expr(a)
		}
	case ExprReturn:
		w.expr(e.Value)
	}
}
