// Package resolver resolves cbuf custom type references — the
// struct/enum names an element's type token can point at — across
// namespaces, per spec.md §4.D.
package resolver

import (
	"fmt"

	"github.com/mvi-llc/wasm-cbuf/internal/ast"
)

// Error is a ResolveError: an unknown type reference in an element.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// SymbolKind distinguishes a struct symbol from an enum symbol. Both
// share the same name domain within a namespace (spec.md §4.D).
type SymbolKind int

const (
	SymbolStruct SymbolKind = iota
	SymbolEnum
)

// Symbol is a resolved struct or enum declaration.
type Symbol struct {
	Kind      SymbolKind
	Namespace string
	Name      string
	Struct    *ast.StructDecl // set iff Kind == SymbolStruct
	Enum      *ast.EnumDecl   // set iff Kind == SymbolEnum
}

// QualifiedName returns "namespace::name", or bare "name" globally.
func (s *Symbol) QualifiedName() string { return ast.QualifiedName(s.Namespace, s.Name) }

// SymbolTable is the qualified-name index over every struct and enum
// declared in a parsed Program.
type SymbolTable struct {
	byQualified map[string]*Symbol
}

// Build indexes every struct/enum in prog by qualified name.
func Build(prog *ast.Program) *SymbolTable {
	t := &SymbolTable{byQualified: make(map[string]*Symbol)}
	t.indexNamespace(prog.Global)
	for _, ns := range prog.Namespaces {
		t.indexNamespace(ns)
	}
	return t
}

func (t *SymbolTable) indexNamespace(ns *ast.Namespace) {
	for _, item := range ns.Items {
		switch decl := item.(type) {
		case *ast.StructDecl:
			sym := &Symbol{Kind: SymbolStruct, Namespace: ns.Name, Name: decl.Name, Struct: decl}
			t.byQualified[sym.QualifiedName()] = sym
		case *ast.EnumDecl:
			sym := &Symbol{Kind: SymbolEnum, Namespace: ns.Name, Name: decl.Name, Enum: decl}
			t.byQualified[sym.QualifiedName()] = sym
		}
	}
}

// Lookup resolves ref as written inside the struct belonging to
// enclosingNamespace, following spec.md §4.D's two lookup modes:
// qualified references go straight to their named namespace;
// unqualified references check the enclosing namespace first, then
// fall back to the global namespace.
func (t *SymbolTable) Lookup(enclosingNamespace string, ref ast.TypeRef) (*Symbol, error) {
	if ref.HasNamespace {
		qn := ast.QualifiedName(ref.Namespace, ref.Name)
		if sym, ok := t.byQualified[qn]; ok {
			return sym, nil
		}
		return nil, &Error{Message: fmt.Sprintf("unresolved type reference %q", qn)}
	}

	if sym, ok := t.byQualified[ast.QualifiedName(enclosingNamespace, ref.Name)]; ok {
		return sym, nil
	}
	if sym, ok := t.byQualified[ref.Name]; ok {
		return sym, nil
	}
	return nil, &Error{Message: fmt.Sprintf("unresolved type reference %q", ref.Name)}
}

// Struct looks up a struct by its fully qualified name (no relative
// resolution), for callers that already have a qualified name in hand
// (e.g. the sizing and hasher tests).
func (t *SymbolTable) Struct(qualifiedName string) (*ast.StructDecl, bool) {
	sym, ok := t.byQualified[qualifiedName]
	if !ok || sym.Kind != SymbolStruct {
		return nil, false
	}
	return sym.Struct, true
}

// All returns every indexed symbol; iteration order is unspecified.
func (t *SymbolTable) All() map[string]*Symbol { return t.byQualified }
