// Package descriptor projects a resolved cbuf AST into the
// language-neutral descriptor table of spec.md §3/§4.G: the shape
// consumed by the wire codec (internal/codec).
package descriptor

import (
	"fmt"

	"github.com/mvi-llc/wasm-cbuf/internal/ast"
	"github.com/mvi-llc/wasm-cbuf/internal/hasher"
	"github.com/mvi-llc/wasm-cbuf/internal/resolver"
	"github.com/mvi-llc/wasm-cbuf/internal/sizing"
)

// DefaultKind tags which field of a Default value is meaningful.
type DefaultKind int

const (
	DefaultNone DefaultKind = iota
	DefaultInt
	DefaultBigInt // 64-bit integer field, per spec.md §4.G's "big-integer (for 64-bit)"
	DefaultFloat
	DefaultBool
	DefaultString
	DefaultEmptyArray // array default, normalized to empty per spec.md §9
)

// Default is the folded default value of an element, when present.
type Default struct {
	Kind   DefaultKind
	Int    int64
	Float  float64
	Bool   bool
	String string
}

// Element is the per-field shape of spec.md §3's "Element descriptor".
type Element struct {
	Name string
	// Type is the canonical primitive name (e.g. "uint32", "string")
	// or, for a complex field, the referenced struct's qualified name.
	Type string

	IsArray         bool
	ArrayLength     int  // fixed array length N; meaningful iff IsArray && !dynamic && !compact
	HasArrayLength  bool
	ArrayUpperBound int // compact array upper bound N; meaningful iff HasArrayUpperBound
	HasArrayUpperBound bool

	UpperBound    int // short_string fixed buffer size (16); meaningful iff HasUpperBound
	HasUpperBound bool

	IsComplex bool // true iff Type names a user struct (not an enum)

	Default    Default
	HasDefault bool
}

// Struct is the per-struct shape of spec.md §3's "Struct descriptor".
type Struct struct {
	Name      string // qualified
	HashValue uint64
	Line      int
	Column    int
	Naked     bool
	Elements  []Element
}

// canonicalPrimitive maps every lexed primitive spelling to the
// canonical emitted name of spec.md §3.
var canonicalPrimitive = map[string]string{
	"u8": "uint8", "uint8_t": "uint8",
	"u16": "uint16", "uint16_t": "uint16",
	"u32": "uint32", "uint32_t": "uint32",
	"u64": "uint64", "uint64_t": "uint64",
	"s8": "int8", "int8_t": "int8",
	"s16": "int16", "int16_t": "int16",
	"s32": "int32", "int32_t": "int32",
	"s64": "int64", "int64_t": "int64",
	"f32": "float32", "float": "float32",
	"f64": "float64", "double": "float64",
	"bool":   "bool",
	"string": "string",
}

var is64BitInt = map[string]bool{
	"u64": true, "uint64_t": true, "s64": true, "int64_t": true,
}

// Emit builds the descriptor table for an entire parsed+resolved
// program, keyed by qualified struct name, in the insertion order of
// spec.md §3 (global namespace first, then named namespaces in
// source order).
func Emit(prog *ast.Program) (map[string]*Struct, []string, error) {
	r := resolver.New(prog)
	if err := r.ResolveAll(prog); err != nil {
		return nil, nil, err
	}
	table := r.Table()

	sizer := sizing.NewAnalyzer(table)
	hasher := hasher.New(table)

	out := make(map[string]*Struct)
	var order []string

	emitNS := func(ns *ast.Namespace) error {
		for _, item := range ns.Items {
			s, ok := item.(*ast.StructDecl)
			if !ok {
				continue
			}
			desc, err := emitStruct(ns.Name, s, table, sizer, hasher)
			if err != nil {
				return err
			}
			out[desc.Name] = desc
			order = append(order, desc.Name)
		}
		return nil
	}

	if err := emitNS(prog.Global); err != nil {
		return nil, nil, err
	}
	for _, ns := range prog.Namespaces {
		if err := emitNS(ns); err != nil {
			return nil, nil, err
		}
	}

	return out, order, nil
}

func emitStruct(namespace string, s *ast.StructDecl, table *resolver.SymbolTable, sizer *sizing.Analyzer, h *hasher.Hasher) (*Struct, error) {
	qn := ast.QualifiedName(namespace, s.Name)

	if _, err := sizer.Shape(namespace, s); err != nil {
		return nil, err
	}
	hv, err := h.Hash(namespace, s)
	if err != nil {
		return nil, err
	}

	desc := &Struct{
		Name:      qn,
		HashValue: hv,
		Line:      s.NameSpan.Start.Line,
		Column:    s.NameSpan.Start.Column,
		Naked:     s.Naked,
	}

	for _, el := range s.Elements {
		ed, err := emitElement(namespace, el, table)
		if err != nil {
			return nil, err
		}
		desc.Elements = append(desc.Elements, ed)
	}
	return desc, nil
}

func emitElement(namespace string, el *ast.ElementDecl, table *resolver.SymbolTable) (Element, error) {
	out := Element{Name: el.Name}

	switch {
	case el.Type.IsPrimitive() && el.Type.Primitive == "short_string":
		out.Type = "string"
		out.UpperBound = 16
		out.HasUpperBound = true

	case el.Type.IsPrimitive():
		canon, ok := canonicalPrimitive[el.Type.Primitive]
		if !ok {
			return Element{}, fmt.Errorf("%s: unknown primitive type %q", el.Span().Start, el.Type.Primitive)
		}
		out.Type = canon

	default:
		sym, err := table.Lookup(namespace, el.Type)
		if err != nil {
			return Element{}, fmt.Errorf("%s: %w", el.Span().Start, err)
		}
		if sym.Kind == resolver.SymbolEnum {
			out.Type = "int32"
		} else {
			out.Type = sym.QualifiedName()
			out.IsComplex = true
		}
	}

	switch el.ArrayKind {
	case ast.ArrayFixed:
		out.IsArray = true
		if el.Compact {
			out.ArrayUpperBound = int(el.ResolvedArraySize)
			out.HasArrayUpperBound = true
		} else {
			out.ArrayLength = int(el.ResolvedArraySize)
			out.HasArrayLength = true
		}
	case ast.ArrayDynamic:
		out.IsArray = true
	}

	if el.Default != nil {
		out.HasDefault = true
		switch el.DefaultKind {
		case ast.DefaultInteger:
			out.Default.Kind = DefaultInt
			if is64BitInt[el.Type.Primitive] {
				out.Default.Kind = DefaultBigInt
			}
			out.Default.Int = el.DefaultInt
		case ast.DefaultFloatingPoint:
			out.Default.Kind = DefaultFloat
			out.Default.Float = el.DefaultFloat
		case ast.DefaultBoolean:
			out.Default.Kind = DefaultBool
			out.Default.Bool = el.DefaultBool
		case ast.DefaultStringValue:
			out.Default.Kind = DefaultString
			out.Default.String = el.DefaultString
		case ast.DefaultArrayValue:
			out.Default.Kind = DefaultEmptyArray
		default:
			out.HasDefault = false
		}
	}

	return out, nil
}
