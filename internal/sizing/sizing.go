// Package sizing computes packed byte sizes and element offsets for
// cbuf structs, plus the "simple" and "has_compact" classifications of
// spec.md §4.E.
package sizing

import (
	"fmt"

	"github.com/mvi-llc/wasm-cbuf/internal/ast"
	"github.com/mvi-llc/wasm-cbuf/internal/resolver"
)

// Error is a SizeError: a reference cycle or an element whose size
// could not be determined.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// primitiveWidths gives the wire/memory width of every primitive
// spelling, independent of which canonical name the schema used.
var primitiveWidths = map[string]int{
	"u8": 1, "uint8_t": 1, "s8": 1, "int8_t": 1, "bool": 1,
	"u16": 2, "uint16_t": 2, "s16": 2, "int16_t": 2,
	"u32": 4, "uint32_t": 4, "s32": 4, "int32_t": 4, "f32": 4, "float": 4,
	"u64": 8, "uint64_t": 8, "s64": 8, "int64_t": 8, "f64": 8, "double": 8,
}

// headerSize is the framed-record header: magic(4) + size_and_variant(4)
// + hash(8) + timestamp(8) = 24 bytes; payload starts at offset 24
// (spec.md §4.H's decode walkthrough and its 25-byte worked example
// are the authoritative source for this figure).
const headerSize = 24
const enumWidth = 4 // enums are always emitted as int32, per spec.md §3

// ElementShape is the per-element output of the size analyzer.
type ElementShape struct {
	Name string
	// Size is the element's nominal byte contribution: its exact wire
	// size when Fixed is true, or the element's worst-case footprint
	// (count prefix plus its declared upper bound) when Fixed is false
	// — string/dynamic-array contents vary per message and are sized
	// exactly by internal/codec at encode/decode time, not here.
	Size   int
	Offset int
	Fixed  bool
}

// StructShape is the per-struct output of the size analyzer.
type StructShape struct {
	Name       string // qualified
	Size       int
	Simple     bool
	HasCompact bool
	Elements   []ElementShape
}

// Analyzer computes and memoizes StructShapes across a schema,
// detecting reference cycles along the way.
type Analyzer struct {
	table    *resolver.SymbolTable
	shapes   map[string]*StructShape
	visiting map[string]bool
}

// NewAnalyzer creates an Analyzer backed by the given symbol table.
func NewAnalyzer(table *resolver.SymbolTable) *Analyzer {
	return &Analyzer{
		table:    table,
		shapes:   make(map[string]*StructShape),
		visiting: make(map[string]bool),
	}
}

// Shape computes (or returns the memoized) StructShape for decl,
// which lives in the given namespace.
func (a *Analyzer) Shape(namespace string, decl *ast.StructDecl) (*StructShape, error) {
	qn := ast.QualifiedName(namespace, decl.Name)
	if s, ok := a.shapes[qn]; ok {
		return s, nil
	}
	if a.visiting[qn] {
		return nil, &Error{Message: fmt.Sprintf("cyclic struct reference involving %q", qn)}
	}
	a.visiting[qn] = true
	defer delete(a.visiting, qn)

	shape := &StructShape{Name: qn, Simple: true}
	offset := 0
	if !decl.Naked {
		offset = headerSize
	}

	for _, el := range decl.Elements {
		es, simple, hasCompact, err := a.elementShape(namespace, el, offset)
		if err != nil {
			return nil, err
		}
		shape.Elements = append(shape.Elements, es)
		shape.Simple = shape.Simple && simple
		shape.HasCompact = shape.HasCompact || hasCompact
		offset += es.Size
	}
	shape.Size = offset

	a.shapes[qn] = shape
	return shape, nil
}

// elementShape computes one element's nominal size/offset along with
// whether it keeps the enclosing struct "simple" and whether it is
// (or contains) a compact array.
func (a *Analyzer) elementShape(namespace string, el *ast.ElementDecl, offset int) (ElementShape, bool, bool, error) {
	base, baseFixed, nestedSimple, nestedHasCompact, err := a.baseElementSize(namespace, el)
	if err != nil {
		return ElementShape{}, false, false, err
	}

	switch el.ArrayKind {
	case ast.ArrayNone:
		isDynamicString := el.Type.IsPrimitive() && el.Type.Primitive == "string"
		simple := nestedSimple && !isDynamicString
		size := base
		fixed := baseFixed
		if isDynamicString {
			size, fixed = 4, false // length prefix only; contents sized at codec time
		}
		return ElementShape{Name: el.Name, Size: size, Offset: offset, Fixed: fixed}, simple, nestedHasCompact, nil

	case ast.ArrayFixed:
		n := int(el.ResolvedArraySize)
		if el.Compact {
			size := 4
			if baseFixed {
				size += n * base
			}
			return ElementShape{Name: el.Name, Size: size, Offset: offset, Fixed: false}, nestedSimple, true, nil
		}
		size := n * base
		return ElementShape{Name: el.Name, Size: size, Offset: offset, Fixed: baseFixed}, nestedSimple, nestedHasCompact, nil

	case ast.ArrayDynamic:
		return ElementShape{Name: el.Name, Size: 4, Offset: offset, Fixed: false}, false, nestedHasCompact, nil

	default:
		return ElementShape{}, false, false, &Error{Message: fmt.Sprintf("%s: unknown array kind for element %q", el.Span().Start, el.Name)}
	}
}

// baseElementSize returns the size of a single instance of el's
// element type (ignoring any array wrapper), whether that size is
// exact, and the nested struct's own simple/has_compact flags (true
// trivially for primitives and enums).
func (a *Analyzer) baseElementSize(namespace string, el *ast.ElementDecl) (size int, fixed bool, simple bool, hasCompact bool, err error) {
	if el.Type.IsPrimitive() {
		if el.Type.Primitive == "short_string" {
			return 16, true, true, false, nil
		}
		if el.Type.Primitive == "string" {
			return 4, false, false, false, nil // handled specially by caller for scalars
		}
		w, ok := primitiveWidths[el.Type.Primitive]
		if !ok {
			return 0, false, false, false, &Error{Message: fmt.Sprintf("%s: unknown primitive type %q", el.Span().Start, el.Type.Primitive)}
		}
		return w, true, true, false, nil
	}

	sym, lookupErr := a.table.Lookup(namespace, el.Type)
	if lookupErr != nil {
		return 0, false, false, false, &Error{Message: lookupErr.Error()}
	}
	if sym.Kind == resolver.SymbolEnum {
		return enumWidth, true, true, false, nil
	}

	nested, shapeErr := a.Shape(sym.Namespace, sym.Struct)
	if shapeErr != nil {
		return 0, false, false, false, shapeErr
	}
	return nested.Size, true, nested.Simple, nested.HasCompact, nil
}
