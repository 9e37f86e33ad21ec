// Package lexer implements the cbuf schema lexical analyzer.
package lexer

import (
	"fmt"

	"github.com/mvi-llc/wasm-cbuf/position"
)

// TokenType identifies the lexical class of a Token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError

	// Literals.
	TokenIdentifier
	TokenInteger
	TokenFloat
	TokenString

	// Keywords.
	TokenStruct
	TokenEnum
	TokenNamespace
	TokenConst
	TokenTrue
	TokenFalse

	// Primitive type keywords (canonical and C-style spellings both lex.
	// as TokenPrimitive; the literal carries which spelling was used).
	TokenPrimitive

	// Punctuation.
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenLParen
	TokenRParen
	TokenSemicolon
	TokenComma
	TokenAssign
	TokenStar
	TokenPlus
	TokenMinus
	TokenSlash
	TokenColon
	TokenDoubleColon
	TokenAt
)

var tokenNames = map[TokenType]string{
	TokenEOF:         "EOF",
	TokenError:       "ERROR",
	TokenIdentifier:  "IDENTIFIER",
	TokenInteger:     "INTEGER",
	TokenFloat:       "FLOAT",
	TokenString:      "STRING",
	TokenStruct:      "STRUCT",
	TokenEnum:        "ENUM",
	TokenNamespace:   "NAMESPACE",
	TokenConst:       "CONST",
	TokenTrue:        "TRUE",
	TokenFalse:       "FALSE",
	TokenPrimitive:   "PRIMITIVE",
	TokenLBrace:      "LBRACE",
	TokenRBrace:      "RBRACE",
	TokenLBracket:    "LBRACKET",
	TokenRBracket:    "RBRACKET",
	TokenLParen:      "LPAREN",
	TokenRParen:      "RPAREN",
	TokenSemicolon:   "SEMICOLON",
	TokenComma:       "COMMA",
	TokenAssign:      "ASSIGN",
	TokenStar:        "STAR",
	TokenPlus:        "PLUS",
	TokenMinus:       "MINUS",
	TokenSlash:       "SLASH",
	TokenColon:       "COLON",
	TokenDoubleColon: "DOUBLE_COLON",
	TokenAt:          "AT",
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

// keywords maps reserved identifiers to their token type.
var keywords = map[string]TokenType{
	"struct":    TokenStruct,
	"enum":      TokenEnum,
	"namespace": TokenNamespace,
	"const":     TokenConst,
	"true":      TokenTrue,
	"false":     TokenFalse,
}

// primitiveNames is the canonical + C-style primitive type spelling set.
// Kept in sync with the emitted-name table in spec.md §3.
var primitiveNames = map[string]bool{
	"u8": true, "uint8_t": true,
	"u16": true, "uint16_t": true,
	"u32": true, "uint32_t": true,
	"u64": true, "uint64_t": true,
	"s8": true, "int8_t": true,
	"s16": true, "int16_t": true,
	"s32": true, "int32_t": true,
	"s64": true, "int64_t": true,
	"f32": true, "float": true,
	"f64": true, "double": true,
	"bool":        true,
	"string":      true,
	"short_string": true,
}

// Token is a single lexical unit with its source span.
type Token struct {
	Type    TokenType
	Literal string
	Span    position.Span
}

func (t Token) String() string {
	return fmt.Sprintf("{%s %q %s}", t.Type, t.Literal, t.Span)
}

// Lexer turns cbuf schema source text into a stream of Tokens.
type Lexer struct {
	input        string
	position     int // index of ch
	readPosition int // index after ch
	ch           byte

	line   int
	column int

	// err is set when the lexer hit an unrecoverable condition
	// (unterminated string/comment); the next NextToken call returns
	// a TokenError with this message instead of scanning further.
	err string
}

// New creates a Lexer over the given schema text. Per spec.md §4.C,
// callers must ensure the text ends in a trailing newline.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) currentPosition() position.Position {
	return position.Position{Line: l.line, Column: l.column, Offset: l.position}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			start := l.currentPosition()
			l.readChar() // consume '/'
			l.readChar() // consume '*'
			depth := 1
			for depth > 0 {
				if l.ch == 0 {
					l.err = fmt.Sprintf("%s: unterminated block comment", start)
					return
				}
				if l.ch == '/' && l.peekChar() == '*' {
					depth++
					l.readChar()
					l.readChar()
					continue
				}
				if l.ch == '*' && l.peekChar() == '/' {
					depth--
					l.readChar()
					l.readChar()
					continue
				}
				l.readChar()
			}
		default:
			return
		}
	}
}

func isLetter(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads an integer or float literal, decimal or hex. The
// returned token type distinguishes them for the evaluator.
func (l *Lexer) readNumber() (TokenType, string) {
	start := l.position

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return TokenInteger, l.input[start:l.position]
	}

	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		save := *l
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if isDigit(l.ch) {
			isFloat = true
			for isDigit(l.ch) {
				l.readChar()
			}
		} else {
			// Not actually an exponent; rewind.
			*l = save
		}
	}

	if isFloat {
		return TokenFloat, l.input[start:l.position]
	}
	return TokenInteger, l.input[start:l.position]
}

// readString reads a double-quoted string literal body, resolving
// \n \t \" \\ \0 \xNN escapes. The opening quote must already be
// consumed by the caller position (l.ch == the char after the quote).
func (l *Lexer) readString() (string, bool) {
	var out []byte
	for {
		if l.ch == 0 {
			return "", false
		}
		if l.ch == '"' {
			return string(out), true
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			case '0':
				out = append(out, 0)
			case 'x':
				hi := l.peekChar()
				l.readChar()
				lo := l.peekChar()
				v, ok := decodeHexByte(hi, lo)
				if !ok {
					return "", false
				}
				out = append(out, v)
				l.readChar()
			default:
				return "", false
			}
			l.readChar()
			continue
		}
		out = append(out, l.ch)
		l.readChar()
	}
}

func decodeHexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexVal(hi)
	l, ok2 := hexVal(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexVal(ch byte) (byte, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0', true
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10, true
	case ch >= 'A' && ch <= 'F':
		return ch - 'A' + 10, true
	default:
		return 0, false
	}
}

// NextToken scans and returns the next token in the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()
	if l.err != "" {
		tok := l.newToken(TokenError, l.err, l.currentPosition())
		l.err = ""
		return tok
	}

	start := l.currentPosition()

	switch {
	case l.ch == 0:
		return l.newToken(TokenEOF, "", start)

	case isLetter(l.ch):
		ident := l.readIdentifier()
		end := l.currentPosition()
		if kw, ok := keywords[ident]; ok {
			return l.newTokenSpan(kw, ident, start, end)
		}
		if primitiveNames[ident] {
			return l.newTokenSpan(TokenPrimitive, ident, start, end)
		}
		return l.newTokenSpan(TokenIdentifier, ident, start, end)

	case isDigit(l.ch):
		tt, lit := l.readNumber()
		return l.newTokenSpan(tt, lit, start, l.currentPosition())

	case l.ch == '"':
		l.readChar() // consume opening quote
		s, ok := l.readString()
		if !ok {
			return l.newToken(TokenError, fmt.Sprintf("%s: unterminated string literal", start), start)
		}
		l.readChar() // consume closing quote
		return l.newTokenSpan(TokenString, s, start, l.currentPosition())

	case l.ch == ':':
		if l.peekChar() == ':' {
			l.readChar()
			l.readChar()
			return l.newTokenSpan(TokenDoubleColon, "::", start, l.currentPosition())
		}
		l.readChar()
		return l.newTokenSpan(TokenColon, ":", start, l.currentPosition())

	default:
		single := map[byte]TokenType{
			'{': TokenLBrace, '}': TokenRBrace,
			'[': TokenLBracket, ']': TokenRBracket,
			'(': TokenLParen, ')': TokenRParen,
			';': TokenSemicolon, ',': TokenComma,
			'=': TokenAssign, '*': TokenStar,
			'+': TokenPlus, '-': TokenMinus, '/': TokenSlash,
			'@': TokenAt,
		}
		if tt, ok := single[l.ch]; ok {
			ch := l.ch
			l.readChar()
			return l.newTokenSpan(tt, string(ch), start, l.currentPosition())
		}
		ch := l.ch
		l.readChar()
		return l.newToken(TokenError, fmt.Sprintf("%s: unexpected character %q", start, ch), start)
	}
}

func (l *Lexer) newToken(tt TokenType, literal string, at position.Position) Token {
	return Token{Type: tt, Literal: literal, Span: position.Span{Start: at, End: at}}
}

func (l *Lexer) newTokenSpan(tt TokenType, literal string, start, end position.Position) Token {
	return Token{Type: tt, Literal: literal, Span: position.Span{Start: start, End: end}}
}
