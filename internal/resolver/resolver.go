package resolver

import (
	"fmt"

	"github.com/mvi-llc/wasm-cbuf/internal/ast"
)

// Resolver validates that every custom element type reference in a
// Program resolves to a known struct or enum symbol.
type Resolver struct {
	table *SymbolTable
}

// New builds a Resolver (and its underlying SymbolTable) over prog.
func New(prog *ast.Program) *Resolver {
	return &Resolver{table: Build(prog)}
}

// Table returns the resolver's symbol table, for reuse by later
// pipeline stages (size analysis, hashing, descriptor emission).
func (r *Resolver) Table() *SymbolTable { return r.table }

// ResolveAll walks every struct in prog and checks each element's
// custom type reference resolves to a struct or enum; it returns the
// first ResolveError encountered, or nil if every reference resolves.
func (r *Resolver) ResolveAll(prog *ast.Program) error {
	if err := r.resolveNamespace(prog.Global); err != nil {
		return err
	}
	for _, ns := range prog.Namespaces {
		if err := r.resolveNamespace(ns); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveNamespace(ns *ast.Namespace) error {
	for _, item := range ns.Items {
		s, ok := item.(*ast.StructDecl)
		if !ok {
			continue
		}
		for _, el := range s.Elements {
			if el.Type.IsPrimitive() {
				continue
			}
			if _, err := r.table.Lookup(ns.Name, el.Type); err != nil {
				return fmt.Errorf("%s: element %q of struct %q: %w", el.Span().Start, el.Name, s.Name, err)
			}
		}
	}
	return nil
}

// IsComplex reports whether sym refers to a struct (true) rather than
// an enum (false); enums are emitted as int32 with isComplex absent,
// per spec.md §4.G.
func IsComplex(sym *Symbol) bool { return sym.Kind == SymbolStruct }
