// Package hasher computes the deterministic 64-bit per-struct content
// hash of spec.md §4.F: a DJB2-style hash over a canonical textual
// form of the struct, stable across renumbering/whitespace/comments.
package hasher

import (
	"fmt"
	"strings"

	"github.com/mvi-llc/wasm-cbuf/internal/ast"
	"github.com/mvi-llc/wasm-cbuf/internal/resolver"
)

// Error is the SizeError-class failure raised when a struct reference
// graph contains a cycle; the hasher requires topological order (spec.md §9).
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// cTypeTokens maps every primitive spelling to its canonical C-style
// token used in the hash's textual form.
var cTypeTokens = map[string]string{
	"u8": "uint8_t", "uint8_t": "uint8_t",
	"u16": "uint16_t", "uint16_t": "uint16_t",
	"u32": "uint32_t", "uint32_t": "uint32_t",
	"u64": "uint64_t", "uint64_t": "uint64_t",
	"s8": "int8_t", "int8_t": "int8_t",
	"s16": "int16_t", "int16_t": "int16_t",
	"s32": "int32_t", "int32_t": "int32_t",
	"s64": "int64_t", "int64_t": "int64_t",
	"f32": "float", "float": "float",
	"f64": "double", "double": "double",
	"bool":         "bool",
	"string":       "std::string",
	"short_string": "VString<15>",
}

// Hasher computes and memoizes struct hashes, resolving nested struct
// tokens depth-first so a referenced struct's hash is always computed
// before the struct that embeds it.
type Hasher struct {
	table    *resolver.SymbolTable
	hashes   map[string]uint64
	visiting map[string]bool
}

// New creates a Hasher backed by the given symbol table.
func New(table *resolver.SymbolTable) *Hasher {
	return &Hasher{
		table:    table,
		hashes:   make(map[string]uint64),
		visiting: make(map[string]bool),
	}
}

// Hash computes (or returns the memoized) hash of decl, which lives
// in the given namespace.
func (h *Hasher) Hash(namespace string, decl *ast.StructDecl) (uint64, error) {
	qn := ast.QualifiedName(namespace, decl.Name)
	if v, ok := h.hashes[qn]; ok {
		return v, nil
	}
	if h.visiting[qn] {
		return 0, &Error{Message: fmt.Sprintf("cyclic struct reference involving %q", qn)}
	}
	h.visiting[qn] = true
	defer delete(h.visiting, qn)

	text, err := h.canonicalForm(namespace, qn, decl)
	if err != nil {
		return 0, err
	}
	v := djb2(text)
	h.hashes[qn] = v
	return v, nil
}

// canonicalForm builds the textual form hashed for decl, per spec.md
// §4.F: "struct [NS::]NAME \n" followed by one "[ARR]TYPE NAME; \n"
// line per element in declaration order.
func (h *Hasher) canonicalForm(namespace, qualifiedName string, decl *ast.StructDecl) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "struct %s \n", qualifiedName)

	for _, el := range decl.Elements {
		arr := ""
		switch el.ArrayKind {
		case ast.ArrayFixed:
			arr = fmt.Sprintf("[%d]", el.ResolvedArraySize)
		case ast.ArrayDynamic:
			arr = "[]"
		}

		tok, err := h.typeToken(namespace, el.Type)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s%s %s; \n", arr, tok, el.Name)
	}
	return b.String(), nil
}

func (h *Hasher) typeToken(namespace string, ref ast.TypeRef) (string, error) {
	if ref.IsPrimitive() {
		tok, ok := cTypeTokens[ref.Primitive]
		if !ok {
			return "", &Error{Message: fmt.Sprintf("unknown primitive type %q", ref.Primitive)}
		}
		return tok, nil
	}

	sym, err := h.table.Lookup(namespace, ref)
	if err != nil {
		return "", &Error{Message: err.Error()}
	}
	if sym.Kind == resolver.SymbolEnum {
		return sym.Name, nil
	}

	nestedHash, err := h.Hash(sym.Namespace, sym.Struct)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%X", nestedHash), nil
}

// djb2 implements the exact 64-bit wrapping hash of spec.md §4.F:
// h = 5381; for each byte b: h = ((h << 5) + h) + b.
func djb2(s string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(s); i++ {
		h = (h<<5)+h + uint64(s[i])
	}
	return h
}
