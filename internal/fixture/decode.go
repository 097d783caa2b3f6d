// Package fixture loads parse trees written as YAML. Fixtures stand in for
// the parser front-end: the checker consumes the same ast either way.
//
//	kind: contract
//	items:
//	  - struct: Point
//	    pub: true
//	    fields:
//	      - {name: x, type: u64, pub: true}
//	  - fn: origin
//	    pub: true
//	    returns: Point
//	    body:
//	      - tail: {struct: Point, fields: {x: 0}}
//	modules:
//	  - name: shapes
//	    pub: true
//	    items: []
package fixture

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"keel/internal/ast"
	"keel/internal/source"
)

// Load reads the fixture at path into fs and decodes it.
func Load(fs *source.FileSet, path string) (*ast.ParseProgram, source.FileID, error) {
	id, err := fs.Load(path)
	if err != nil {
		return nil, 0, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	prog, err := Decode(fs, id)
	return prog, id, err
}

// Decode decodes the fixture stored in fs under id. Spans of the returned
// tree point into that file.
func Decode(fs *source.FileSet, id source.FileID) (*ast.ParseProgram, error) {
	f := fs.Get(id)
	if f == nil {
		return nil, fmt.Errorf("fixture: unknown file %d", id)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(f.Content, &doc); err != nil {
		return nil, fmt.Errorf("fixture: parse %s: %w", f.Path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("fixture: %s is empty: %w", f.Path, io.EOF)
	}
	d := &decoder{file: f}
	return d.program(doc.Content[0])
}

type decoder struct {
	file *source.File
}

func offset(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0
	}
	return v
}

func (d *decoder) span(n *yaml.Node) source.Span {
	start := d.file.Offset(source.LineCol{Line: offset(n.Line), Col: offset(n.Column)})
	end := start
	if n.Kind == yaml.ScalarNode {
		end += offset(len(n.Value))
		if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			end += 2
		}
	}
	if size := offset(len(d.file.Content)); end > size {
		end = size
	}
	return source.Span{File: d.file.ID, Start: start, End: end}
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("fixture: %s:%d:%d: %s", d.file.Path, n.Line, n.Column, fmt.Sprintf(format, args...))
}

// fields returns the values of mapping n by key, rejecting keys outside
// allowed.
func (d *decoder) fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "expected a mapping")
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !slices.Contains(allowed, k.Value) {
			return nil, d.errorf(k, "unknown key %q", k.Value)
		}
		out[k.Value] = v
	}
	return out, nil
}

// tag returns the first of candidates present as a key of mapping n.
func tag(n *yaml.Node, candidates ...string) string {
	if n.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i < len(n.Content); i += 2 {
		if slices.Contains(candidates, n.Content[i].Value) {
			return n.Content[i].Value
		}
	}
	return ""
}

func (d *decoder) seq(n *yaml.Node) ([]*yaml.Node, error) {
	if n == nil || isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "expected a list")
	}
	return n.Content, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func (d *decoder) str(n *yaml.Node) (string, error) {
	if n == nil {
		return "", fmt.Errorf("fixture: %s: missing required value", d.file.Path)
	}
	if n.Kind != yaml.ScalarNode {
		return "", d.errorf(n, "expected a scalar")
	}
	return n.Value, nil
}

func (d *decoder) ident(n *yaml.Node) (source.Ident, error) {
	s, err := d.str(n)
	if err != nil {
		return source.Ident{}, err
	}
	return source.Ident{Name: s, Span: d.span(n)}, nil
}

func (d *decoder) flag(n *yaml.Node) (bool, error) {
	if n == nil {
		return false, nil
	}
	var v bool
	if err := n.Decode(&v); err != nil {
		return false, d.errorf(n, "expected true or false")
	}
	return v, nil
}

func (d *decoder) vis(n *yaml.Node) (ast.Visibility, error) {
	pub, err := d.flag(n)
	if pub {
		return ast.VisPublic, err
	}
	return ast.VisPrivate, err
}

func (d *decoder) typ(n *yaml.Node) (*ast.TypeExpr, error) {
	if n == nil {
		return nil, nil
	}
	s, err := d.str(n)
	if err != nil {
		return nil, err
	}
	t, err := parseTypeExpr(s, d.span(n))
	if err != nil {
		return nil, d.errorf(n, "%v", err)
	}
	return t, nil
}

func (d *decoder) types(n *yaml.Node) ([]*ast.TypeExpr, error) {
	items, err := d.seq(n)
	if err != nil {
		return nil, err
	}
	out := make([]*ast.TypeExpr, 0, len(items))
	for _, it := range items {
		t, err := d.typ(it)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (d *decoder) program(n *yaml.Node) (*ast.ParseProgram, error) {
	f, err := d.fields(n, "kind", "items", "modules")
	if err != nil {
		return nil, err
	}
	prog := &ast.ParseProgram{Kind: ast.TreeLibrary}
	if k := f["kind"]; k != nil {
		prog.Kind, err = ast.ParseTreeType(k.Value)
		if err != nil {
			return nil, d.errorf(k, "%v", err)
		}
	}
	prog.Root, err = d.moduleBody(n, f)
	if err != nil {
		return nil, err
	}
	prog.Root.Span = source.Span{File: d.file.ID, End: offset(len(d.file.Content))}
	return prog, nil
}

func (d *decoder) moduleBody(n *yaml.Node, f map[string]*yaml.Node) (*ast.Module, error) {
	m := &ast.Module{Span: d.span(n)}
	items, err := d.seq(f["items"])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		node, err := d.item(it)
		if err != nil {
			return nil, err
		}
		m.Nodes = append(m.Nodes, node)
	}
	subs, err := d.seq(f["modules"])
	if err != nil {
		return nil, err
	}
	for _, sn := range subs {
		sf, err := d.fields(sn, "name", "pub", "items", "modules")
		if err != nil {
			return nil, err
		}
		if sf["name"] == nil {
			return nil, d.errorf(sn, "module without a name")
		}
		name, err := d.ident(sf["name"])
		if err != nil {
			return nil, err
		}
		vis, err := d.vis(sf["pub"])
		if err != nil {
			return nil, err
		}
		body, err := d.moduleBody(sn, sf)
		if err != nil {
			return nil, err
		}
		m.Submodules = append(m.Submodules, ast.Submodule{Name: name, Vis: vis, Module: body})
	}
	return m, nil
}

var errNotItem = errors.New("not an item")

func (d *decoder) item(n *yaml.Node) (*ast.Node, error) {
	node, err := d.decl(n)
	if errors.Is(err, errNotItem) {
		return nil, d.errorf(n, "expected one of struct, fn, const, storage, use")
	}
	return node, err
}

func (d *decoder) decl(n *yaml.Node) (*ast.Node, error) {
	sp := d.span(n)
	b := ast.NewBuilder(sp)
	switch tag(n, "struct", "fn", "const", "storage", "use") {
	case "struct":
		return d.structDecl(n, b)
	case "fn":
		return d.fnDecl(n, b)
	case "const":
		f, err := d.fields(n, "const", "pub", "type", "value", "configurable")
		if err != nil {
			return nil, err
		}
		c := &ast.ConstDecl{Span: sp}
		if c.Name, err = d.ident(f["const"]); err != nil {
			return nil, err
		}
		if c.Vis, err = d.vis(f["pub"]); err != nil {
			return nil, err
		}
		if c.Type, err = d.typ(f["type"]); err != nil {
			return nil, err
		}
		if c.Configurable, err = d.flag(f["configurable"]); err != nil {
			return nil, err
		}
		if v := f["value"]; v != nil {
			if c.Value, err = d.expr(v); err != nil {
				return nil, err
			}
		}
		return b.DeclNode(&ast.Decl{Kind: ast.DeclConstant, Span: sp, Const: c}), nil
	case "storage":
		f, err := d.fields(n, "storage")
		if err != nil {
			return nil, err
		}
		items, err := d.seq(f["storage"])
		if err != nil {
			return nil, err
		}
		s := &ast.StorageDecl{Span: sp}
		for _, it := range items {
			ff, err := d.fields(it, "name", "type", "init")
			if err != nil {
				return nil, err
			}
			sf := ast.StorageField{Span: d.span(it)}
			if sf.Name, err = d.ident(ff["name"]); err != nil {
				return nil, err
			}
			if sf.Type, err = d.typ(ff["type"]); err != nil {
				return nil, err
			}
			if v := ff["init"]; v != nil {
				if sf.Init, err = d.expr(v); err != nil {
					return nil, err
				}
			}
			s.Fields = append(s.Fields, sf)
		}
		return b.DeclNode(&ast.Decl{Kind: ast.DeclStorage, Span: sp, Storage: s}), nil
	case "use":
		return d.useDecl(n, b)
	}
	return nil, errNotItem
}

func (d *decoder) structDecl(n *yaml.Node, b *ast.Builder) (*ast.Node, error) {
	f, err := d.fields(n, "struct", "pub", "type_params", "fields")
	if err != nil {
		return nil, err
	}
	s := &ast.StructDecl{Span: b.Span}
	if s.Name, err = d.ident(f["struct"]); err != nil {
		return nil, err
	}
	if s.Vis, err = d.vis(f["pub"]); err != nil {
		return nil, err
	}
	if s.TypeParams, err = d.typeParams(f["type_params"]); err != nil {
		return nil, err
	}
	items, err := d.seq(f["fields"])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		ff, err := d.fields(it, "name", "type", "pub")
		if err != nil {
			return nil, err
		}
		fd := ast.FieldDecl{Span: d.span(it)}
		if fd.Name, err = d.ident(ff["name"]); err != nil {
			return nil, err
		}
		if fd.Type, err = d.typ(ff["type"]); err != nil {
			return nil, err
		}
		if fd.Vis, err = d.vis(ff["pub"]); err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, fd)
	}
	return b.DeclNode(&ast.Decl{Kind: ast.DeclStruct, Span: b.Span, Struct: s}), nil
}

func (d *decoder) fnDecl(n *yaml.Node, b *ast.Builder) (*ast.Node, error) {
	f, err := d.fields(n, "fn", "pub", "type_params", "params", "returns", "body")
	if err != nil {
		return nil, err
	}
	fn := &ast.FnDecl{Span: b.Span}
	if fn.Name, err = d.ident(f["fn"]); err != nil {
		return nil, err
	}
	if fn.Vis, err = d.vis(f["pub"]); err != nil {
		return nil, err
	}
	if fn.TypeParams, err = d.typeParams(f["type_params"]); err != nil {
		return nil, err
	}
	params, err := d.seq(f["params"])
	if err != nil {
		return nil, err
	}
	for _, pn := range params {
		pf, err := d.fields(pn, "name", "type")
		if err != nil {
			return nil, err
		}
		p := ast.Param{Span: d.span(pn)}
		if p.Name, err = d.ident(pf["name"]); err != nil {
			return nil, err
		}
		if p.Type, err = d.typ(pf["type"]); err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, p)
	}
	if fn.Return, err = d.typ(f["returns"]); err != nil {
		return nil, err
	}
	if fn.Body, err = d.block(f["body"], b.Span); err != nil {
		return nil, err
	}
	return b.DeclNode(&ast.Decl{Kind: ast.DeclFunction, Span: b.Span, Fn: fn}), nil
}

func (d *decoder) useDecl(n *yaml.Node, b *ast.Builder) (*ast.Node, error) {
	f, err := d.fields(n, "use")
	if err != nil {
		return nil, err
	}
	s, err := d.str(f["use"])
	if err != nil {
		return nil, err
	}
	u := &ast.UseDecl{Span: b.Span}
	if trimmed, ok := strings.CutSuffix(s, "::*"); ok {
		u.Glob = true
		s = trimmed
	}
	path, args, err := parsePath(s, d.span(f["use"]))
	if err != nil || len(args) > 0 {
		return nil, d.errorf(f["use"], "invalid use path %q", s)
	}
	u.Path = append(append(u.Path, path.Prefixes...), path.Suffix)
	return b.DeclNode(&ast.Decl{Kind: ast.DeclUse, Span: b.Span, Use: u}), nil
}

func (d *decoder) typeParams(n *yaml.Node) ([]ast.TypeParam, error) {
	items, err := d.seq(n)
	if err != nil {
		return nil, err
	}
	out := make([]ast.TypeParam, 0, len(items))
	for _, it := range items {
		id, err := d.ident(it)
		if err != nil {
			return nil, err
		}
		out = append(out, ast.TypeParam{Name: id})
	}
	return out, nil
}

// block decodes a statement list. Each entry is `let`, `expr` (a statement
// ending in `;`), `tail` (the block value) or a nested item.
func (d *decoder) block(n *yaml.Node, fallback source.Span) (*ast.Block, error) {
	blk := &ast.Block{Span: fallback}
	if n != nil {
		blk.Span = d.span(n)
	}
	items, err := d.seq(n)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		b := ast.NewBuilder(d.span(it))
		switch tag(it, "let", "expr", "tail") {
		case "let":
			f, err := d.fields(it, "let", "type", "value", "mut")
			if err != nil {
				return nil, err
			}
			v := &ast.VarDecl{Span: b.Span}
			if v.Name, err = d.ident(f["let"]); err != nil {
				return nil, err
			}
			if v.Type, err = d.typ(f["type"]); err != nil {
				return nil, err
			}
			if v.Mutable, err = d.flag(f["mut"]); err != nil {
				return nil, err
			}
			if f["value"] != nil {
				if v.Value, err = d.expr(f["value"]); err != nil {
					return nil, err
				}
			}
			blk.Nodes = append(blk.Nodes, b.DeclNode(&ast.Decl{Kind: ast.DeclVariable, Span: b.Span, Var: v}))
		case "expr", "tail":
			key := tag(it, "expr", "tail")
			f, err := d.fields(it, key)
			if err != nil {
				return nil, err
			}
			e, err := d.expr(f[key])
			if err != nil {
				return nil, err
			}
			if key == "expr" {
				blk.Nodes = append(blk.Nodes, b.Stmt(e))
			} else {
				blk.Nodes = append(blk.Nodes, b.Tail(e))
			}
		default:
			node, err := d.decl(it)
			if errors.Is(err, errNotItem) {
				return nil, d.errorf(it, "expected let, expr, tail or an item")
			}
			if err != nil {
				return nil, err
			}
			blk.Nodes = append(blk.Nodes, node)
		}
	}
	return blk, nil
}

var uintLit = regexp.MustCompile(`^(0[xX][0-9a-fA-F_]+|[0-9][0-9_]*)(u8|u16|u32|u64|u256)?$`)

func (d *decoder) expr(n *yaml.Node) (*ast.Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("fixture: %s: missing expression", d.file.Path)
	}
	sp := d.span(n)
	b := ast.NewBuilder(sp)
	if n.Kind == yaml.ScalarNode {
		return d.scalar(n, b)
	}
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "expected an expression")
	}
	switch tag(n, "call", "intrinsic", "struct", "if", "tuple", "block", "return") {
	case "call":
		f, err := d.fields(n, "call", "args")
		if err != nil {
			return nil, err
		}
		path, typeArgs, err := d.path(f["call"])
		if err != nil {
			return nil, err
		}
		args, err := d.exprs(f["args"])
		if err != nil {
			return nil, err
		}
		return b.Call(path, typeArgs, args...), nil
	case "intrinsic":
		f, err := d.fields(n, "intrinsic", "type_args", "args")
		if err != nil {
			return nil, err
		}
		name, err := d.ident(f["intrinsic"])
		if err != nil {
			return nil, err
		}
		typeArgs, err := d.types(f["type_args"])
		if err != nil {
			return nil, err
		}
		args, err := d.exprs(f["args"])
		if err != nil {
			return nil, err
		}
		e := b.Intrinsic(name.Name, typeArgs, args...)
		e.Intrinsic.Name = name
		return e, nil
	case "struct":
		f, err := d.fields(n, "struct", "fields")
		if err != nil {
			return nil, err
		}
		path, typeArgs, err := d.path(f["struct"])
		if err != nil {
			return nil, err
		}
		var fields []ast.StructExprField
		if fn := f["fields"]; fn != nil && !isNull(fn) {
			if fn.Kind != yaml.MappingNode {
				return nil, d.errorf(fn, "struct fields must be a mapping")
			}
			for i := 0; i+1 < len(fn.Content); i += 2 {
				name, err := d.ident(fn.Content[i])
				if err != nil {
					return nil, err
				}
				v, err := d.expr(fn.Content[i+1])
				if err != nil {
					return nil, err
				}
				fields = append(fields, ast.StructExprField{Name: name, Value: v})
			}
		}
		return b.StructLit(path, typeArgs, fields...), nil
	case "if":
		f, err := d.fields(n, "if", "then", "else")
		if err != nil {
			return nil, err
		}
		cond, err := d.expr(f["if"])
		if err != nil {
			return nil, err
		}
		then, err := d.blockExpr(f["then"], sp)
		if err != nil {
			return nil, err
		}
		var els *ast.Expr
		if f["else"] != nil {
			if els, err = d.blockExpr(f["else"], sp); err != nil {
				return nil, err
			}
		}
		return b.If(cond, then, els), nil
	case "tuple":
		f, err := d.fields(n, "tuple")
		if err != nil {
			return nil, err
		}
		elems, err := d.exprs(f["tuple"])
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprTuple, Span: sp, Elems: elems}, nil
	case "block":
		f, err := d.fields(n, "block")
		if err != nil {
			return nil, err
		}
		return d.blockExpr(f["block"], sp)
	case "return":
		f, err := d.fields(n, "return")
		if err != nil {
			return nil, err
		}
		var v *ast.Expr
		if rv := f["return"]; rv != nil && !isNull(rv) {
			if v, err = d.expr(rv); err != nil {
				return nil, err
			}
		}
		return b.Return(v), nil
	}
	return nil, d.errorf(n, "expected one of call, intrinsic, struct, if, tuple, block, return")
}

func (d *decoder) scalar(n *yaml.Node, b *ast.Builder) (*ast.Expr, error) {
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return b.Str(n.Value), nil
	}
	switch n.Value {
	case "true":
		return b.Bool(true), nil
	case "false":
		return b.Bool(false), nil
	}
	if m := uintLit.FindStringSubmatch(n.Value); m != nil {
		kind := ast.LitUint
		if m[2] == "" && len(m[1]) == 66 && (m[1][1] == 'x' || m[1][1] == 'X') {
			kind = ast.LitB256
		}
		return &ast.Expr{Kind: ast.ExprLiteral, Span: b.Span, Literal: &ast.Literal{Kind: kind, Text: m[1], Suffix: m[2]}}, nil
	}
	path, args, err := parsePath(n.Value, b.Span)
	if err != nil || len(args) > 0 || len(path.Prefixes) > 0 || path.IsAbsolute {
		return nil, d.errorf(n, "%q is not a literal or a variable", n.Value)
	}
	return &ast.Expr{Kind: ast.ExprVariable, Span: b.Span, Name: path.Suffix}, nil
}

func (d *decoder) path(n *yaml.Node) (ast.CallPath, []*ast.TypeExpr, error) {
	s, err := d.str(n)
	if err != nil {
		return ast.CallPath{}, nil, err
	}
	path, args, err := parsePath(s, d.span(n))
	if err != nil {
		return ast.CallPath{}, nil, d.errorf(n, "%v", err)
	}
	return path, args, nil
}

func (d *decoder) exprs(n *yaml.Node) ([]*ast.Expr, error) {
	items, err := d.seq(n)
	if err != nil {
		return nil, err
	}
	out := make([]*ast.Expr, 0, len(items))
	for _, it := range items {
		e, err := d.expr(it)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) blockExpr(n *yaml.Node, fallback source.Span) (*ast.Expr, error) {
	blk, err := d.block(n, fallback)
	if err != nil {
		return nil, err
	}
	return &ast.Expr{Kind: ast.ExprBlock, Span: blk.Span, Block: blk}, nil
}
