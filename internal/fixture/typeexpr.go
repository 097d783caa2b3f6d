package fixture

import (
	"fmt"
	"strings"
	"unicode"

	"keel/internal/ast"
	"keel/internal/source"
)

// typeParser reads the annotation syntax used in fixtures:
//
//	u64   Point   shapes::Point<u64>   ::app::Pair<T, bool>   ()   (u8, str)
type typeParser struct {
	src  string
	pos  int
	base source.Span
}

func parseTypeExpr(src string, base source.Span) (*ast.TypeExpr, error) {
	p := &typeParser{src: src, base: base}
	t, err := p.typ()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q in type %q", p.src[p.pos:], src)
	}
	return t, nil
}

func (p *typeParser) span(start int) source.Span {
	if p.base.File == 0 {
		return source.Span{}
	}
	return source.Span{File: p.base.File, Start: p.base.Start + offset(start), End: p.base.Start + offset(p.pos)}
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) typ() (*ast.TypeExpr, error) {
	p.skipSpace()
	start := p.pos
	if p.accept("(") {
		var elems []*ast.TypeExpr
		for !p.accept(")") {
			if len(elems) > 0 && !p.accept(",") {
				return nil, fmt.Errorf("expected `,` in tuple type %q", p.src)
			}
			el, err := p.typ()
			if err != nil {
				return nil, err
			}
			elems = append(elems, el)
		}
		return &ast.TypeExpr{Kind: ast.TypeExprTuple, Elems: elems, Span: p.span(start)}, nil
	}

	path, err := p.path()
	if err != nil {
		return nil, err
	}
	binding := ast.TypeBinding{Inner: path}
	argStart := p.pos
	p.accept("::")
	if p.accept("<") {
		for !p.accept(">") {
			if len(binding.TypeArgs.Args) > 0 && !p.accept(",") {
				return nil, fmt.Errorf("expected `,` in type arguments of %q", p.src)
			}
			arg, err := p.typ()
			if err != nil {
				return nil, err
			}
			binding.TypeArgs.Args = append(binding.TypeArgs.Args, arg)
		}
		binding.TypeArgs.Span = p.span(argStart)
	} else {
		p.pos = argStart
	}
	binding.Span = p.span(start)
	return &ast.TypeExpr{Kind: ast.TypeExprNamed, Named: binding, Span: binding.Span}, nil
}

// path reads `a::b::C`, stopping before a `::<` turbofish.
func (p *typeParser) path() (ast.CallPath, error) {
	var cp ast.CallPath
	if p.accept("::") {
		cp.IsAbsolute = true
	}
	var segs []source.Ident
	for {
		p.skipSpace()
		start := p.pos
		for p.pos < len(p.src) && isIdentRune(rune(p.src[p.pos])) {
			p.pos++
		}
		if start == p.pos {
			return cp, fmt.Errorf("expected a name in %q", p.src)
		}
		segs = append(segs, source.Ident{Name: p.src[start:p.pos], Span: p.span(start)})
		if !strings.HasPrefix(p.src[p.pos:], "::") || strings.HasPrefix(p.src[p.pos:], "::<") {
			break
		}
		p.pos += 2
	}
	cp.Prefixes = segs[:len(segs)-1]
	cp.Suffix = segs[len(segs)-1]
	return cp, nil
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// parsePath reads a value path such as `shapes::Point` or `id::<u8>`.
// Type arguments written with a turbofish are returned separately.
func parsePath(src string, base source.Span) (ast.CallPath, []*ast.TypeExpr, error) {
	t, err := parseTypeExpr(src, base)
	if err != nil {
		return ast.CallPath{}, nil, err
	}
	if t.Kind != ast.TypeExprNamed {
		return ast.CallPath{}, nil, fmt.Errorf("%q is not a path", src)
	}
	return t.Named.Inner, t.Named.TypeArgs.Args, nil
}
