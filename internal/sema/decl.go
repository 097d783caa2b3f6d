package sema

import (
	"fmt"

	"fortio.org/safecast"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/namespace"
	"keel/internal/source"
	"keel/internal/trace"
	"keel/internal/ty"
	"keel/internal/types"
)

// checkNodes checks the top-level nodes of the current module. Names are
// declared before anything is checked so declarations may refer to each
// other regardless of order:
//
//  1. use imports
//  2. struct names and their type parameters
//  3. struct fields
//  4. function signatures, constant types and storage
//  5. constant values, storage initializers, function bodies and the
//     remaining statements
//
// The returned nodes keep source order.
func checkNodes(h *diag.Handler, c Context, nodes []*ast.Node) ([]*ty.Node, error) {
	var first firstError
	out := make([]*ty.Node, len(nodes))
	structs := make(map[int]ty.StructRef)
	fns := make(map[int]ty.FnRef)
	consts := make(map[int]ty.ConstantRef)
	storage := make(map[int]ty.StorageRef)

	decl := func(i int) *ast.Decl {
		if n := nodes[i]; n != nil && n.Kind == ast.NodeDecl && n.Decl != nil {
			return n.Decl
		}
		return nil
	}

	for i := range nodes {
		if d := decl(i); d != nil && d.Kind == ast.DeclUse {
			first.add(c.ns.Import(h, d.Use))
		}
	}
	for i := range nodes {
		if d := decl(i); d != nil && d.Kind == ast.DeclStruct {
			ref, err := declareStruct(h, c, d.Struct)
			first.add(err)
			structs[i] = ref
		}
	}
	for i := range nodes {
		if ref, ok := structs[i]; ok {
			first.add(defineStruct(h, c, ref, decl(i).Struct))
			out[i] = declNode(ty.DeclStruct, decl(i).Struct.Name, decl(i).Span, func(d *ty.Decl) { d.Struct = ref })
		}
	}
	for i := range nodes {
		d := decl(i)
		if d == nil {
			continue
		}
		switch d.Kind {
		case ast.DeclFunction:
			ref, err := declareFn(h, c, d.Fn)
			first.add(err)
			fns[i] = ref
		case ast.DeclConstant:
			ref, err := declareConst(h, c, d.Const)
			first.add(err)
			consts[i] = ref
		case ast.DeclStorage:
			ref, err := declareStorage(h, c, d.Storage)
			first.add(err)
			storage[i] = ref
		}
	}
	for i, n := range nodes {
		if n == nil {
			continue
		}
		d := decl(i)
		switch {
		case d == nil:
			ex, err := CheckExpr(h, c.WithTypeAnnotation(types.NoTypeID), n.Expr)
			first.add(err)
			out[i] = &ty.Node{Kind: ty.NodeExpr, Expr: ex, Span: n.Span}
		case d.Kind == ast.DeclFunction:
			ref := fns[i]
			first.add(checkFnBody(h, c, ref, d.Fn))
			out[i] = declNode(ty.DeclFunction, d.Fn.Name, d.Span, func(d *ty.Decl) { d.Fn = ref })
		case d.Kind == ast.DeclConstant:
			ref := consts[i]
			first.add(checkConstValue(h, c, ref, d.Const))
			out[i] = declNode(ty.DeclConstant, d.Const.Name, d.Span, func(d *ty.Decl) { d.Const = ref })
		case d.Kind == ast.DeclStorage:
			ref := storage[i]
			first.add(checkStorageInits(h, c, ref, d.Storage))
			out[i] = declNode(ty.DeclStorage, source.NewIdent("storage"), d.Span, func(d *ty.Decl) { d.Storage = ref })
		case d.Kind == ast.DeclVariable:
			node, err := checkVarDecl(h, c, d)
			first.add(err)
			out[i] = node
		}
	}

	checked := out[:0]
	for _, n := range out {
		if n != nil {
			checked = append(checked, n)
		}
	}
	return checked, first.err
}

// checkLocalDecl checks a declaration written inside a block. Items other
// than variables are declared and checked in one go, so they are only
// visible to the statements after them.
func checkLocalDecl(h *diag.Handler, c Context, d *ast.Decl) (*ty.Node, error) {
	if d == nil {
		return nil, nil
	}
	switch d.Kind {
	case ast.DeclVariable:
		return checkVarDecl(h, c, d)
	case ast.DeclUse:
		return nil, c.ns.Import(h, d.Use)
	}
	nodes, err := checkNodes(h, c, []*ast.Node{{Kind: ast.NodeDecl, Decl: d, Span: d.Span}})
	if len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], err
}

func declNode(kind ty.DeclKind, name source.Ident, sp source.Span, set func(*ty.Decl)) *ty.Node {
	d := &ty.Decl{Kind: kind, Name: name, Span: sp}
	set(d)
	return &ty.Node{Kind: ty.NodeDecl, Decl: d, Span: sp}
}

// absolutePath roots name at the current module.
func absolutePath(ns *namespace.Namespace, name source.Ident) ast.CallPath {
	mod := ns.ModPath()
	prefixes := make([]source.Ident, len(mod))
	for i, seg := range mod {
		prefixes[i] = source.NewIdent(seg)
	}
	return ast.CallPath{Prefixes: prefixes, Suffix: name, IsAbsolute: true}
}

// registerTypeParams allocates rigid handles for params owned by owner and
// reports duplicate names.
func registerTypeParams(h *diag.Handler, c Context, owner uint32, params []ast.TypeParam) ([]ty.TypeParameter, error) {
	in := c.types()
	var first firstError
	out := make([]ty.TypeParameter, 0, len(params))
	seen := make(map[string]source.Span, len(params))
	for i, p := range params {
		if prev, dup := seen[p.Name.Name]; dup {
			first.add(h.EmitErr(diag.NewError(diag.SemaDuplicateSymbol, p.Name.Span,
				fmt.Sprintf("type parameter `%s` is declared twice", p.Name.Name)).
				WithNote(prev, "first declared here")))
			continue
		}
		seen[p.Name.Name] = p.Name.Span
		idx, err := safecast.Conv[uint32](i)
		if err != nil {
			return out, fmt.Errorf("type parameter index: %w", err)
		}
		id := in.RegisterTypeParam(in.Strings().Intern(p.Name.Name), owner, idx)
		out = append(out, ty.TypeParameter{Name: p.Name, Type: id})
	}
	return out, first.err
}

// bindTypeParams makes params visible in the innermost scope.
func bindTypeParams(h *diag.Handler, c Context, params []ty.TypeParameter) error {
	var first firstError
	for _, p := range params {
		first.add(c.ns.InsertLocal(h, namespace.Item{
			Kind: namespace.ItemTypeParam,
			Name: p.Name,
			Type: p.Type,
		}, c.shadowing))
	}
	return first.err
}

func declareStruct(h *diag.Handler, c Context, d *ast.StructDecl) (ty.StructRef, error) {
	arena := c.decls().Structs
	ref := arena.Insert(ty.StructDecl{
		CallPath: absolutePath(c.ns, d.Name),
		Vis:      d.Vis,
		Span:     d.Span,
		Attrs:    d.Attrs,
	})
	params, err := registerTypeParams(h, c, uint32(ref), d.TypeParams)
	arena.Get(ref).TypeParams = params
	err2 := c.ns.InsertSymbol(h, namespace.Item{
		Kind:   namespace.ItemStruct,
		Name:   d.Name,
		Vis:    d.Vis,
		Struct: ref,
	})
	if err != nil {
		return ref, err
	}
	return ref, err2
}

// defineStruct resolves the fields of a declared struct. A repeated field
// name is reported and the repetition dropped.
func defineStruct(h *diag.Handler, c Context, ref ty.StructRef, d *ast.StructDecl) error {
	in := c.types()
	decl := *c.decls().Struct(ref)

	c.ns.PushScope()
	defer c.ns.PopScope()
	var first firstError
	first.add(bindTypeParams(h, c, decl.TypeParams))
	self := in.Struct(uint32(ref), in.Strings().Intern(d.Name.Name), decl.TypeParamIDs())
	fc := c.WithSelfType(self)

	seen := make(map[string]source.Span, len(d.Fields))
	fields := make([]ty.StructField, 0, len(d.Fields))
	for _, f := range d.Fields {
		if prev, dup := seen[f.Name.Name]; dup {
			first.add(h.EmitErr(diag.NewError(diag.SemaStructDuplicateField, f.Name.Span,
				fmt.Sprintf("field `%s` is already declared in struct `%s`", f.Name.Name, d.Name.Name)).
				WithNote(prev, "first declared here")))
			continue
		}
		seen[f.Name.Name] = f.Name.Span
		typ, err := ResolveType(h, fc, f.Type)
		first.add(err)
		fields = append(fields, ty.StructField{
			Vis:   f.Vis,
			Name:  f.Name,
			Span:  f.Span,
			Type:  ty.TypeArgument{Type: typ, Initial: typ, Span: typeSpan(f.Type, f.Span)},
			Attrs: f.Attrs,
		})
	}
	decl.Fields = fields
	c.decls().Structs.Replace(ref, decl)
	return first.err
}

func declareFn(h *diag.Handler, c Context, d *ast.FnDecl) (ty.FnRef, error) {
	arena := c.decls().Functions
	ref := arena.Insert(ty.FunctionDecl{
		CallPath: absolutePath(c.ns, d.Name),
		Vis:      d.Vis,
		Span:     d.Span,
		Attrs:    d.Attrs,
	})
	var first firstError
	params, err := registerTypeParams(h, c, uint32(ref), d.TypeParams)
	first.add(err)

	c.ns.PushScope()
	first.add(bindTypeParams(h, c, params))
	seen := make(map[string]source.Span, len(d.Params))
	fnParams := make([]ty.FunctionParameter, 0, len(d.Params))
	for _, p := range d.Params {
		if prev, dup := seen[p.Name.Name]; dup {
			first.add(h.EmitErr(diag.NewError(diag.SemaDuplicateSymbol, p.Name.Span,
				fmt.Sprintf("parameter `%s` is declared twice", p.Name.Name)).
				WithNote(prev, "first declared here")))
		}
		seen[p.Name.Name] = p.Name.Span
		typ, err := ResolveType(h, c, p.Type)
		first.add(err)
		fnParams = append(fnParams, ty.FunctionParameter{
			Name: p.Name,
			Type: ty.TypeArgument{Type: typ, Initial: typ, Span: typeSpan(p.Type, p.Span)},
		})
	}
	ret, err := ResolveType(h, c, d.Return)
	first.add(err)
	c.ns.PopScope()

	decl := arena.Get(ref)
	decl.TypeParams = params
	decl.Params = fnParams
	decl.Return = ty.TypeArgument{Type: ret, Initial: ret, Span: typeSpan(d.Return, d.Name.Span)}

	first.add(c.ns.InsertSymbol(h, namespace.Item{
		Kind: namespace.ItemFunction,
		Name: d.Name,
		Vis:  d.Vis,
		Fn:   ref,
	}))
	return ref, first.err
}

func checkFnBody(h *diag.Handler, c Context, ref ty.FnRef, d *ast.FnDecl) error {
	_, sp := trace.Start(c.Go(), trace.ScopeDecl, d.Name.Name)
	defer sp.End("")

	decl := *c.decls().Function(ref)
	ret := decl.Return.Type

	c.ns.PushScope()
	defer c.ns.PopScope()
	var first firstError
	first.add(bindTypeParams(h, c.WithShadowing(namespace.ShadowingAllow), decl.TypeParams))
	for _, p := range decl.Params {
		first.add(c.ns.InsertLocal(h, namespace.Item{
			Kind: namespace.ItemVariable,
			Name: p.Name,
			Type: p.Type.Type,
		}, namespace.ShadowingAllow))
	}

	bc := c.WithReturnType(ret).
		WithTypeAnnotation(ret).
		WithHelpText(helpFnBody).
		WithUnifyGeneric(false)
	body, err := checkBlock(h, bc, d.Body)
	first.add(err)
	span := d.Span
	if d.Body != nil {
		span = d.Body.Span
	}
	first.add(emittedOrNil(c.types().Unify(h, body.Type, ret, span, helpFnBody)))

	decl = *c.decls().Function(ref)
	decl.Body = body
	c.decls().Functions.Replace(ref, decl)
	if first.err != nil {
		sp.Fail()
	}
	return first.err
}

func declareConst(h *diag.Handler, c Context, d *ast.ConstDecl) (ty.ConstantRef, error) {
	var first firstError
	typ := c.types().FreshUnknown()
	if d.Type != nil {
		var err error
		typ, err = ResolveType(h, c, d.Type)
		first.add(err)
	}
	ref := c.decls().Constants.Insert(ty.ConstantDecl{
		CallPath:     absolutePath(c.ns, d.Name),
		Vis:          d.Vis,
		Type:         ty.TypeArgument{Type: typ, Initial: typ, Span: typeSpan(d.Type, d.Name.Span)},
		Configurable: d.Configurable,
		Span:         d.Span,
	})
	first.add(c.ns.InsertSymbol(h, namespace.Item{
		Kind:  namespace.ItemConstant,
		Name:  d.Name,
		Vis:   d.Vis,
		Const: ref,
	}))
	return ref, first.err
}

func checkConstValue(h *diag.Handler, c Context, ref ty.ConstantRef, d *ast.ConstDecl) error {
	typ := c.decls().Constant(ref).Type.Type
	if d.Value == nil {
		return h.EmitErr(diag.NewError(diag.SemaMissingInitializer, d.Span,
			fmt.Sprintf("constant `%s` has no value", d.Name.Name)))
	}
	vc := c.WithTypeAnnotation(typ).WithHelpText(helpConstant).WithUnifyGeneric(false)
	value, err := CheckExpr(h, vc, d.Value)
	decl := *c.decls().Constant(ref)
	decl.Value = value
	c.decls().Constants.Replace(ref, decl)
	return err
}

// declareStorage records the storage block. Its item is inserted quietly;
// duplicates are a whole-program rule checked after all modules.
func declareStorage(h *diag.Handler, c Context, d *ast.StorageDecl) (ty.StorageRef, error) {
	var first firstError
	fields := make([]ty.StorageField, 0, len(d.Fields))
	seen := make(map[string]source.Span, len(d.Fields))
	for _, f := range d.Fields {
		if prev, dup := seen[f.Name.Name]; dup {
			first.add(h.EmitErr(diag.NewError(diag.SemaDuplicateSymbol, f.Name.Span,
				fmt.Sprintf("storage field `%s` is declared twice", f.Name.Name)).
				WithNote(prev, "first declared here")))
			continue
		}
		seen[f.Name.Name] = f.Name.Span
		typ, err := ResolveType(h, c, f.Type)
		first.add(err)
		fields = append(fields, ty.StorageField{
			Name: f.Name,
			Type: ty.TypeArgument{Type: typ, Initial: typ, Span: typeSpan(f.Type, f.Span)},
			Span: f.Span,
		})
	}
	ref := c.decls().Storage.Insert(ty.StorageDecl{Fields: fields, Span: d.Span})
	c.ns.Current().Insert(namespace.Item{
		Kind:    namespace.ItemStorage,
		Name:    source.Ident{Name: "storage", Span: d.Span},
		Storage: ref,
	})
	return ref, first.err
}

func checkStorageInits(h *diag.Handler, c Context, ref ty.StorageRef, d *ast.StorageDecl) error {
	decl := *c.decls().StorageDecl(ref)
	decl.Fields = append([]ty.StorageField(nil), decl.Fields...)
	var first firstError
	for i := range decl.Fields {
		f := &decl.Fields[i]
		init := storageInit(d, f.Name)
		if init == nil {
			first.add(h.EmitErr(diag.NewError(diag.SemaMissingInitializer, f.Span,
				fmt.Sprintf("storage field `%s` has no initializer", f.Name.Name))))
			continue
		}
		ic := c.WithTypeAnnotation(f.Type.Type).WithHelpText(helpStorage).WithUnifyGeneric(false)
		var err error
		f.Init, err = CheckExpr(h, ic, init)
		first.add(err)
	}
	c.decls().Storage.Replace(ref, decl)
	return first.err
}

func storageInit(d *ast.StorageDecl, name source.Ident) *ast.Expr {
	for _, f := range d.Fields {
		if f.Name.Name == name.Name {
			return f.Init
		}
	}
	return nil
}

func checkVarDecl(h *diag.Handler, c Context, d *ast.Decl) (*ty.Node, error) {
	v := d.Var
	var first firstError
	typ := types.NoTypeID
	if v.Type != nil {
		var err error
		typ, err = ResolveType(h, c, v.Type)
		first.add(err)
	}
	var value *ty.Expr
	if v.Value == nil {
		first.add(h.EmitErr(diag.NewError(diag.SemaMissingInitializer, v.Span,
			fmt.Sprintf("variable `%s` has no value", v.Name.Name))))
		if typ == types.NoTypeID {
			typ = c.errorType()
		}
	} else {
		vc := c.WithTypeAnnotation(typ).WithHelpText(helpVariable).WithUnifyGeneric(false)
		var err error
		value, err = CheckExpr(h, vc, v.Value)
		first.add(err)
		if typ == types.NoTypeID {
			typ = value.Type
		}
	}
	first.add(c.ns.InsertLocal(h, namespace.Item{
		Kind: namespace.ItemVariable,
		Name: v.Name,
		Type: typ,
	}, namespace.ShadowingAllow))

	out := &ty.VariableDecl{
		Name:    v.Name,
		Type:    ty.TypeArgument{Type: typ, Initial: typ, Span: typeSpan(v.Type, v.Name.Span)},
		Value:   value,
		Mutable: v.Mutable,
	}
	return &ty.Node{
		Kind: ty.NodeDecl,
		Decl: &ty.Decl{Kind: ty.DeclVariable, Name: v.Name, Span: d.Span, Var: out},
		Span: d.Span,
	}, first.err
}

func typeSpan(te *ast.TypeExpr, fallback source.Span) source.Span {
	if te == nil || te.Span.Empty() {
		return fallback
	}
	return te.Span
}
