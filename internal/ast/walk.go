package ast

// WalkPaths calls fn for every call path mentioned by the module's own nodes:
// use declarations, struct literals, calls and type annotations. Submodules
// are not visited.
func (m *Module) WalkPaths(fn func(CallPath)) {
	if m == nil {
		return
	}
	w := pathWalker{fn: fn}
	for _, n := range m.Nodes {
		w.node(n)
	}
}

type pathWalker struct {
	fn func(CallPath)
}

func (w pathWalker) node(n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case NodeDecl:
		w.decl(n.Decl)
	case NodeExpr:
		w.expr(n.Expr)
	}
}

func (w pathWalker) decl(d *Decl) {
	if d == nil {
		return
	}
	switch d.Kind {
	case DeclUse:
		if d.Use != nil && len(d.Use.Path) > 0 {
			p := CallPath{Suffix: d.Use.Path[len(d.Use.Path)-1]}
			p.Prefixes = append(p.Prefixes, d.Use.Path[:len(d.Use.Path)-1]...)
			if d.Use.Glob {
				p = CallPath{Prefixes: d.Use.Path}
			}
			w.fn(p)
		}
	case DeclStruct:
		for _, f := range d.Struct.Fields {
			w.typeExpr(f.Type)
		}
	case DeclFunction:
		for _, p := range d.Fn.Params {
			w.typeExpr(p.Type)
		}
		w.typeExpr(d.Fn.Return)
		w.block(d.Fn.Body)
	case DeclStorage:
		for _, f := range d.Storage.Fields {
			w.typeExpr(f.Type)
			w.expr(f.Init)
		}
	case DeclConstant:
		w.typeExpr(d.Const.Type)
		w.expr(d.Const.Value)
	case DeclVariable:
		w.typeExpr(d.Var.Type)
		w.expr(d.Var.Value)
	}
}

func (w pathWalker) block(b *Block) {
	if b == nil {
		return
	}
	for _, n := range b.Nodes {
		w.node(n)
	}
}

func (w pathWalker) binding(b TypeBinding) {
	w.fn(b.Inner)
	for _, a := range b.TypeArgs.Args {
		w.typeExpr(a)
	}
}

func (w pathWalker) typeExpr(t *TypeExpr) {
	if t == nil {
		return
	}
	switch t.Kind {
	case TypeExprNamed:
		w.binding(t.Named)
	case TypeExprTuple:
		for _, e := range t.Elems {
			w.typeExpr(e)
		}
	}
}

func (w pathWalker) expr(e *Expr) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ExprStruct:
		w.binding(e.Struct.Binding)
		for _, f := range e.Struct.Fields {
			w.expr(f.Value)
		}
	case ExprCall:
		w.binding(e.Call.Binding)
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
		for _, t := range e.Intrinsic.TypeArgs.Args {
			w.typeExpr(t)
		}
		for _, a := range e.Intrinsic.Args {
			w.expr(a)
		}
	case ExprReturn:
		w.expr(e.Value)
	}
}
