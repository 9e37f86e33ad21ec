// Package parser builds a cbuf schema AST from lexer tokens: the
// namespace/struct/enum/const grammar of spec.md §4.C, folding
// constant expressions through internal/evalexpr as it goes (spec.md
// §2's "A -> C (using B for constants)" data flow).
package parser

import (
	"fmt"
	"strconv"

	"github.com/mvi-llc/wasm-cbuf/internal/ast"
	"github.com/mvi-llc/wasm-cbuf/internal/evalexpr"
	"github.com/mvi-llc/wasm-cbuf/internal/lexer"
	"github.com/mvi-llc/wasm-cbuf/position"
)

// Error is a ParseError: a grammar violation, unknown annotation,
// duplicate struct/enum name, or multidimensional array.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Parser consumes a token stream from internal/lexer and produces an
// internal/ast.Program.
type Parser struct {
	lex *lexer.Lexer

	cur  lexer.Token
	peek lexer.Token

	seenNames  map[string]bool // qualified struct/enum names already declared
	globalConsts *evalexpr.Scope
	nsConsts     map[string]*evalexpr.Scope
}

// New creates a Parser over schema source text.
func New(input string) *Parser {
	p := &Parser{
		lex:          lexer.New(input),
		seenNames:    make(map[string]bool),
		globalConsts: evalexpr.NewScope(),
		nsConsts:     make(map[string]*evalexpr.Scope),
	}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.cur.Type == tt }

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.cur.Type != tt {
		return lexer.Token{}, errf("%s: expected %s, got %s %q", p.cur.Span.Start, tt, p.cur.Type, p.cur.Literal)
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

func spanOf(start, end lexer.Token) position.Span {
	return position.Span{Start: start.Span.Start, End: end.Span.End}
}

func (p *Parser) scopeFor(namespace string) *evalexpr.Scope {
	if namespace == "" {
		return p.globalConsts
	}
	s, ok := p.nsConsts[namespace]
	if !ok {
		s = evalexpr.NewScope()
		p.nsConsts[namespace] = s
	}
	return s
}

// evalIn folds expr using the combined scope for namespace: the
// namespace's own consts layered over the global ones, mirroring the
// type-reference resolution order of spec.md §4.D.
func (p *Parser) evalIn(namespace string, expr ast.Expr) (evalexpr.Value, error) {
	if namespace == "" {
		return evalexpr.Eval(expr, p.globalConsts)
	}
	merged := evalexpr.NewScope()
	for name, v := range p.globalConsts.Snapshot() {
		merged.Define(name, v)
	}
	for name, v := range p.scopeFor(namespace).Snapshot() {
		merged.Define(name, v)
	}
	return evalexpr.Eval(expr, merged)
}

// Parse runs the full parse and returns the assembled Program.
func (p *Parser) Parse() (*ast.Program, error) {
	start := p.cur
	var globalItems []ast.Item
	var namespaces []*ast.Namespace

	for !p.at(lexer.TokenEOF) {
		switch p.cur.Type {
		case lexer.TokenNamespace:
			ns, err := p.parseNamespace()
			if err != nil {
				return nil, err
			}
			namespaces = append(namespaces, ns)

		case lexer.TokenStruct:
			s, err := p.parseStruct("")
			if err != nil {
				return nil, err
			}
			globalItems = append(globalItems, s)

		case lexer.TokenEnum:
			e, err := p.parseEnum("")
			if err != nil {
				return nil, err
			}
			globalItems = append(globalItems, e)

		case lexer.TokenConst:
			c, err := p.parseConst("")
			if err != nil {
				return nil, err
			}
			globalItems = append(globalItems, c)

		case lexer.TokenError:
			return nil, errf("%s: %s", p.cur.Span.Start, p.cur.Literal)

		default:
			return nil, errf("%s: unexpected token %s %q at top level", p.cur.Span.Start, p.cur.Type, p.cur.Literal)
		}
	}

	global := ast.NewNamespace("", globalItems, spanOf(start, p.cur))
	return ast.NewProgram(global, namespaces, spanOf(start, p.cur)), nil
}

func (p *Parser) parseNamespace() (*ast.Namespace, error) {
	start := p.cur
	p.advance() // "namespace"
	nameTok, err := p.expect(lexer.TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}

	var items []ast.Item
	for !p.at(lexer.TokenRBrace) {
		switch p.cur.Type {
		case lexer.TokenStruct:
			s, err := p.parseStruct(nameTok.Literal)
			if err != nil {
				return nil, err
			}
			items = append(items, s)
		case lexer.TokenEnum:
			e, err := p.parseEnum(nameTok.Literal)
			if err != nil {
				return nil, err
			}
			items = append(items, e)
		case lexer.TokenConst:
			c, err := p.parseConst(nameTok.Literal)
			if err != nil {
				return nil, err
			}
			items = append(items, c)
		case lexer.TokenEOF:
			return nil, errf("%s: unterminated namespace %q", p.cur.Span.Start, nameTok.Literal)
		default:
			return nil, errf("%s: unexpected token %s inside namespace %q", p.cur.Span.Start, p.cur.Type, nameTok.Literal)
		}
	}
	end := p.cur
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return ast.NewNamespace(nameTok.Literal, items, spanOf(start, end)), nil
}

func (p *Parser) markDeclared(namespace, name string, span position.Span) error {
	qn := ast.QualifiedName(namespace, name)
	if p.seenNames[qn] {
		return errf("%s: duplicate declaration of %q", span.Start, qn)
	}
	p.seenNames[qn] = true
	return nil
}

func (p *Parser) parseStruct(namespace string) (*ast.StructDecl, error) {
	start := p.cur
	p.advance() // "struct"
	nameTok, err := p.expect(lexer.TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if err := p.markDeclared(namespace, nameTok.Literal, nameTok.Span); err != nil {
		return nil, err
	}

	naked := false
	for p.at(lexer.TokenAt) {
		p.advance()
		ann, err := p.expect(lexer.TokenIdentifier)
		if err != nil {
			return nil, err
		}
		if ann.Literal != "naked" {
			return nil, errf("%s: unknown struct annotation @%s", ann.Span.Start, ann.Literal)
		}
		naked = true
	}

	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}

	var elems []*ast.ElementDecl
	for !p.at(lexer.TokenRBrace) {
		if p.at(lexer.TokenEOF) {
			return nil, errf("%s: unterminated struct %q", p.cur.Span.Start, nameTok.Literal)
		}
		el, err := p.parseElement(namespace)
		if err != nil {
			return nil, err
		}
		elems = append(elems, el)
	}
	end := p.cur
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}

	return ast.NewStructDecl(nameTok.Literal, nameTok.Span, naked, elems, spanOf(start, end)), nil
}

func (p *Parser) parseTypeRef() (ast.TypeRef, error) {
	if p.at(lexer.TokenPrimitive) {
		tok := p.cur
		p.advance()
		return ast.TypeRef{Primitive: tok.Literal}, nil
	}
	first, err := p.expect(lexer.TokenIdentifier)
	if err != nil {
		return ast.TypeRef{}, err
	}
	if p.at(lexer.TokenDoubleColon) {
		p.advance()
		second, err := p.expect(lexer.TokenIdentifier)
		if err != nil {
			return ast.TypeRef{}, err
		}
		return ast.TypeRef{Namespace: first.Literal, Name: second.Literal, HasNamespace: true}, nil
	}
	return ast.TypeRef{Name: first.Literal}, nil
}

func (p *Parser) parseElement(namespace string) (*ast.ElementDecl, error) {
	start := p.cur
	typ, err := p.parseTypeRef()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.TokenIdentifier)
	if err != nil {
		return nil, err
	}

	kind := ast.ArrayNone
	var sizeExpr ast.Expr
	if p.at(lexer.TokenLBracket) {
		p.advance()
		if p.at(lexer.TokenRBracket) {
			kind = ast.ArrayDynamic
		} else {
			kind = ast.ArrayFixed
			sizeExpr, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lexer.TokenRBracket); err != nil {
			return nil, err
		}
		if p.at(lexer.TokenLBracket) {
			return nil, errf("%s: multidimensional arrays are not supported", p.cur.Span.Start)
		}
	}

	compact := false
	for p.at(lexer.TokenAt) {
		p.advance()
		ann, err := p.expect(lexer.TokenIdentifier)
		if err != nil {
			return nil, err
		}
		if ann.Literal != "compact" {
			return nil, errf("%s: unknown element annotation @%s", ann.Span.Start, ann.Literal)
		}
		if kind != ast.ArrayFixed {
			return nil, errf("%s: @compact requires a fixed array size", ann.Span.Start)
		}
		compact = true
	}

	var def ast.Expr
	if p.at(lexer.TokenAssign) {
		p.advance()
		def, err = p.parseDefaultValue()
		if err != nil {
			return nil, err
		}
	}

	end := p.cur
	if _, err := p.expect(lexer.TokenSemicolon); err != nil {
		return nil, err
	}

	elem := ast.NewElementDecl(typ, nameTok.Literal, kind, sizeExpr, compact, def, spanOf(start, end))

	// Fold and range-check the array size now, per spec.md §4.B: array
	// sizes fold through the same evaluator as defaults.
	if kind == ast.ArrayFixed {
		v, err := p.evalIn(namespace, sizeExpr)
		if err != nil {
			return nil, &Error{Message: err.Error()}
		}
		if v.IsFloat {
			return nil, errf("%s: array size must be an integer", sizeExpr.Span().Start)
		}
		if v.Int < 0 {
			return nil, errf("%s: array size %d must not be negative", sizeExpr.Span().Start, v.Int)
		}
		elem.ResolvedArraySize = v.Int
	}

	if def != nil {
		if err := p.resolveDefault(namespace, typ, kind, elem); err != nil {
			return nil, err
		}
	}

	return elem, nil
}

// resolveDefault folds elem.Default into the matching Resolved*
// field, per spec.md §4.G's default-emission rules: integers fold via
// evalexpr into their type's range; floats become float64; booleans
// and strings pass through; array defaults are accepted but dropped.
func (p *Parser) resolveDefault(namespace string, typ ast.TypeRef, kind ast.ArrayKind, elem *ast.ElementDecl) error {
	if kind != ast.ArrayNone {
		// Array defaults are grammar-legal (spec.md §9) but the
		// canonical descriptor never preserves them.
		elem.DefaultKind = ast.DefaultArrayValue
		return nil
	}

	switch d := elem.Default.(type) {
	case *ast.StringLiteral:
		elem.DefaultKind = ast.DefaultStringValue
		elem.DefaultString = d.Value
		return nil
	case *ast.BoolLiteral:
		elem.DefaultKind = ast.DefaultBoolean
		elem.DefaultBool = d.Value
		return nil
	default:
		v, err := p.evalIn(namespace, elem.Default)
		if err != nil {
			return &Error{Message: err.Error()}
		}
		if v.IsFloat || typ.Primitive == "f32" || typ.Primitive == "f64" || typ.Primitive == "float" || typ.Primitive == "double" {
			elem.DefaultKind = ast.DefaultFloatingPoint
			elem.DefaultFloat = v.AsFloat()
			return nil
		}
		if err := evalexpr.CheckIntRange(v.Int, typ.Primitive, elem.Default.Span().Start); err != nil {
			return &Error{Message: err.Error()}
		}
		elem.DefaultKind = ast.DefaultInteger
		elem.DefaultInt = v.Int
		return nil
	}
}

// parseDefaultValue parses the value following "=" in an element or
// const declaration: a string, a boolean, a brace-enclosed array
// literal, or an arithmetic constant expression.
func (p *Parser) parseDefaultValue() (ast.Expr, error) {
	switch p.cur.Type {
	case lexer.TokenString:
		tok := p.cur
		p.advance()
		return ast.NewStringLiteral(tok.Literal, tok.Span), nil
	case lexer.TokenTrue, lexer.TokenFalse:
		tok := p.cur
		p.advance()
		return ast.NewBoolLiteral(tok.Type == lexer.TokenTrue, tok.Span), nil
	case lexer.TokenLBrace:
		start := p.cur
		p.advance()
		var elems []ast.Expr
		for !p.at(lexer.TokenRBrace) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.at(lexer.TokenComma) {
				p.advance()
			}
		}
		end := p.cur
		if _, err := p.expect(lexer.TokenRBrace); err != nil {
			return nil, err
		}
		return ast.NewArrayLiteral(elems, spanOf(start, end)), nil
	default:
		return p.parseExpr()
	}
}

// parseExpr implements `term (("+"|"-") term)*`.
func (p *Parser) parseExpr() (ast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.TokenPlus) || p.at(lexer.TokenMinus) {
		op := ast.OpAdd
		if p.at(lexer.TokenMinus) {
			op = ast.OpSub
		}
		opTok := p.cur
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(op, left, right, spanOf(opTok, opTok))
	}
	return left, nil
}

// parseTerm implements `factor (("*"|"/") factor)*`.
func (p *Parser) parseTerm() (ast.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.TokenStar) || p.at(lexer.TokenSlash) {
		op := ast.OpMul
		if p.at(lexer.TokenSlash) {
			op = ast.OpDiv
		}
		opTok := p.cur
		p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(op, left, right, spanOf(opTok, opTok))
	}
	return left, nil
}

// parseFactor implements the primary-expression grammar: literals,
// parenthesized sub-expressions, unary minus, and const references.
func (p *Parser) parseFactor() (ast.Expr, error) {
	switch p.cur.Type {
	case lexer.TokenMinus:
		p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpr(operand, operand.Span()), nil

	case lexer.TokenLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil

	case lexer.TokenInteger:
		tok := p.cur
		p.advance()
		v, err := parseIntLiteral(tok.Literal)
		if err != nil {
			return nil, errf("%s: %s", tok.Span.Start, err)
		}
		return ast.NewIntLiteral(v, tok.Span), nil

	case lexer.TokenFloat:
		tok := p.cur
		p.advance()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, errf("%s: invalid float literal %q", tok.Span.Start, tok.Literal)
		}
		return ast.NewFloatLiteral(v, tok.Span), nil

	case lexer.TokenIdentifier:
		tok := p.cur
		p.advance()
		return ast.NewIdent(tok.Literal, tok.Span), nil

	default:
		return nil, errf("%s: expected expression, got %s %q", p.cur.Span.Start, p.cur.Type, p.cur.Literal)
	}
}

func parseIntLiteral(lit string) (int64, error) {
	if len(lit) > 2 && (lit[:2] == "0x" || lit[:2] == "0X") {
		v, err := strconv.ParseUint(lit[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return int64(v), nil
	}
	return strconv.ParseInt(lit, 10, 64)
}

func (p *Parser) parseEnum(namespace string) (*ast.EnumDecl, error) {
	start := p.cur
	p.advance() // "enum"
	nameTok, err := p.expect(lexer.TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if err := p.markDeclared(namespace, nameTok.Literal, nameTok.Span); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}

	var values []*ast.EnumValue
	next := int32(0)
	for !p.at(lexer.TokenRBrace) {
		if p.at(lexer.TokenEOF) {
			return nil, errf("%s: unterminated enum %q", p.cur.Span.Start, nameTok.Literal)
		}
		vTok, err := p.expect(lexer.TokenIdentifier)
		if err != nil {
			return nil, err
		}
		var valExpr ast.Expr
		resolved := next
		if p.at(lexer.TokenAssign) {
			p.advance()
			valExpr, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
			v, err := p.evalIn(namespace, valExpr)
			if err != nil {
				return nil, &Error{Message: err.Error()}
			}
			if v.IsFloat {
				return nil, errf("%s: enum value must be an integer", valExpr.Span().Start)
			}
			resolved = int32(v.Int)
		}
		ev := ast.NewEnumValue(vTok.Literal, valExpr, spanOf(vTok, vTok))
		ev.Resolved = resolved
		values = append(values, ev)
		next = resolved + 1

		if p.at(lexer.TokenComma) {
			p.advance()
		}
	}
	end := p.cur
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return ast.NewEnumDecl(nameTok.Literal, values, spanOf(start, end)), nil
}

func (p *Parser) parseConst(namespace string) (*ast.ConstDecl, error) {
	start := p.cur
	p.advance() // "const"
	typeTok, err := p.expect(lexer.TokenPrimitive)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenAssign); err != nil {
		return nil, err
	}
	valExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	end := p.cur
	if _, err := p.expect(lexer.TokenSemicolon); err != nil {
		return nil, err
	}

	v, err := p.evalIn(namespace, valExpr)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	if !v.IsFloat {
		if err := evalexpr.CheckIntRange(v.Int, typeTok.Literal, nameTok.Span.Start); err != nil {
			return nil, &Error{Message: err.Error()}
		}
	}
	p.scopeFor(namespace).Define(nameTok.Literal, v)

	return ast.NewConstDecl(typeTok.Literal, nameTok.Literal, valExpr, spanOf(start, end)), nil
}
