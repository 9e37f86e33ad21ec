// Package ast defines the abstract syntax tree produced by the cbuf
// schema parser: namespaces, structs, enums, constants, and the
// expression trees used for defaults and array sizes.
package ast

import "github.com/mvi-llc/wasm-cbuf/position"

// Node is implemented by every AST node.
type Node interface {
	Span() position.Span
}

// Expr is a constant expression: a literal, a reference to a
// previously declared const, or an arithmetic combination thereof.
type Expr interface {
	Node
	exprNode()
}

type base struct {
	span position.Span
}

func (b base) Span() position.Span { return b.span }

// IntLiteral is a decimal or hex integer literal.
type IntLiteral struct {
	base
	Value int64
}

func (*IntLiteral) exprNode() {}

// NewIntLiteral constructs an IntLiteral with the given span.
func NewIntLiteral(v int64, span position.Span) *IntLiteral {
	return &IntLiteral{base{span}, v}
}

// FloatLiteral is a floating point literal.
type FloatLiteral struct {
	base
	Value float64
}

func (*FloatLiteral) exprNode() {}

func NewFloatLiteral(v float64, span position.Span) *FloatLiteral {
	return &FloatLiteral{base{span}, v}
}

// Ident is a reference to a previously declared const identifier.
type Ident struct {
	base
	Name string
}

func (*Ident) exprNode() {}

func NewIdent(name string, span position.Span) *Ident {
	return &Ident{base{span}, name}
}

// BinaryOp enumerates the arithmetic operators a cbuf constant
// expression can use.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}

// BinaryExpr is a two-operand arithmetic expression.
type BinaryExpr struct {
	base
	Op          BinaryOp
	Left, Right Expr
}

func (*BinaryExpr) exprNode() {}

func NewBinaryExpr(op BinaryOp, left, right Expr, span position.Span) *BinaryExpr {
	return &BinaryExpr{base{span}, op, left, right}
}

// UnaryExpr is a unary-minus expression.
type UnaryExpr struct {
	base
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

func NewUnaryExpr(operand Expr, span position.Span) *UnaryExpr {
	return &UnaryExpr{base{span}, operand}
}

// StringLiteral is a string default value; string defaults are not
// folded by the evaluator, only lexed and escape-resolved.
type StringLiteral struct {
	base
	Value string
}

func (*StringLiteral) exprNode() {}

func NewStringLiteral(v string, span position.Span) *StringLiteral {
	return &StringLiteral{base{span}, v}
}

// BoolLiteral is a `true`/`false` default value.
type BoolLiteral struct {
	base
	Value bool
}

func (*BoolLiteral) exprNode() {}

func NewBoolLiteral(v bool, span position.Span) *BoolLiteral {
	return &BoolLiteral{base{span}, v}
}

// ArrayLiteral is a `{ ... }` default for an array element; per
// spec.md §9 its contents are accepted but not semantically used.
type ArrayLiteral struct {
	base
	Elements []Expr
}

func (*ArrayLiteral) exprNode() {}

func NewArrayLiteral(elems []Expr, span position.Span) *ArrayLiteral {
	return &ArrayLiteral{base{span}, elems}
}

// ArrayKind classifies how an element's array suffix was declared.
type ArrayKind int

const (
	ArrayNone ArrayKind = iota
	ArrayFixed
	ArrayDynamic
)

// TypeRef is the parsed form of an element's type token: either a
// primitive spelling or a (possibly namespace-qualified) custom name.
type TypeRef struct {
	Primitive    string // canonical or C-style spelling; empty if custom
	Namespace    string // explicit "ns" in "ns::Name"; empty if unqualified
	Name         string // custom type name; empty if primitive
	HasNamespace bool   // true iff the source wrote "ns::Name"
}

func (t TypeRef) IsPrimitive() bool { return t.Primitive != "" }

// ElementDecl is one field of a struct.
type ElementDecl struct {
	base
	Type          TypeRef
	Name          string
	ArrayKind     ArrayKind
	ArraySize     Expr // size expression for ArrayFixed; nil otherwise
	Compact       bool
	Default       Expr // raw, unfolded; nil if no default was given

	// Resolved holds the constant-folded form of ArraySize/Default,
	// filled in by the parser via internal/evalexpr as it parses (spec.md
	// §2: "A -> C (using B for constants)"). ArraySize folds into
	// ResolvedArraySize; Default folds into the Default* field
	// matching DefaultKind.
	ResolvedArraySize int64

	DefaultKind   DefaultKind
	DefaultInt    int64
	DefaultFloat  float64
	DefaultBool   bool
	DefaultString string
}

// DefaultKind tags which Default* field of an ElementDecl (if
// any) holds the folded default value.
type DefaultKind int

const (
	DefaultNone DefaultKind = iota
	DefaultInteger
	DefaultFloatingPoint
	DefaultBoolean
	DefaultStringValue
	DefaultArrayValue // array defaults are accepted but not preserved, per spec.md §9
)

func (e *ElementDecl) Span() position.Span { return e.base.span }

// NewElementDecl constructs an ElementDecl.
func NewElementDecl(t TypeRef, name string, kind ArrayKind, size Expr, compact bool, def Expr, span position.Span) *ElementDecl {
	return &ElementDecl{base: base{span}, Type: t, Name: name, ArrayKind: kind, ArraySize: size, Compact: compact, Default: def}
}

// StructDecl is a `struct NAME [@naked] { ... }` declaration.
type StructDecl struct {
	base
	Name     string
	NameSpan position.Span // span of the identifier token, per spec.md §4.A
	Naked    bool
	Elements []*ElementDecl
}

func (s *StructDecl) Span() position.Span { return s.base.span }

func NewStructDecl(name string, nameSpan position.Span, naked bool, elems []*ElementDecl, span position.Span) *StructDecl {
	return &StructDecl{base{span}, name, nameSpan, naked, elems}
}

// EnumValue is one `IDENT [= EXPR]` member of an enum.
type EnumValue struct {
	base
	Name     string
	Value    Expr  // nil when auto-incremented
	Resolved int32 // filled in once the value is folded
}

func NewEnumValue(name string, value Expr, span position.Span) *EnumValue {
	return &EnumValue{base{span}, name, value, 0}
}

// EnumDecl is an `enum NAME { ... }` declaration.
type EnumDecl struct {
	base
	Name   string
	Values []*EnumValue
}

func (e *EnumDecl) Span() position.Span { return e.base.span }

func NewEnumDecl(name string, values []*EnumValue, span position.Span) *EnumDecl {
	return &EnumDecl{base{span}, name, values}
}

// ConstDecl is a `const TYPE NAME = EXPR;` declaration.
type ConstDecl struct {
	base
	Type  string // primitive spelling the const was declared with
	Name  string
	Value Expr
}

func (c *ConstDecl) Span() position.Span { return c.base.span }

func NewConstDecl(typ, name string, value Expr, span position.Span) *ConstDecl {
	return &ConstDecl{base{span}, typ, name, value}
}

// Item is any declaration that can appear at the top level or inside
// a namespace block: a struct, an enum, or a const.
type Item interface {
	Node
	itemNode()
}

func (*StructDecl) itemNode() {}
func (*EnumDecl) itemNode()   {}
func (*ConstDecl) itemNode()  {}

// Namespace groups the items declared inside one `namespace NAME { }`
// block, or the implicit global namespace (Name == "").
type Namespace struct {
	base
	Name  string
	Items []Item
}

func (n *Namespace) Span() position.Span { return n.base.span }

func NewNamespace(name string, items []Item, span position.Span) *Namespace {
	return &Namespace{base{span}, name, items}
}

// Program is the root of a parsed cbuf schema: the implicit global
// namespace plus any explicit namespace blocks, in source order, per
// spec.md §3's insertion-order rule (global first, then named
// namespaces in the order they were declared).
type Program struct {
	base
	Global     *Namespace
	Namespaces []*Namespace
}

func (p *Program) Span() position.Span { return p.base.span }

func NewProgram(global *Namespace, namespaces []*Namespace, span position.Span) *Program {
	return &Program{base{span}, global, namespaces}
}

// QualifiedName returns "namespace::name", or bare "name" for the
// global namespace.
func QualifiedName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "::" + name
}
