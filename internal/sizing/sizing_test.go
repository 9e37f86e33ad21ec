package sizing

import (
	"testing"

	"github.com/mvi-llc/wasm-cbuf/internal/parser"
	"github.com/mvi-llc/wasm-cbuf/internal/resolver"
)

func shapeOf(t *testing.T, src, qualifiedName string) *StructShape {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	table := resolver.Build(prog)
	a := NewAnalyzer(table)
	decl, ok := table.Struct(qualifiedName)
	if !ok {
		t.Fatalf("struct %q not found", qualifiedName)
	}
	s, err := a.Shape(namespaceOf(qualifiedName), decl)
	if err != nil {
		t.Fatalf("shape error: %v", err)
	}
	return s
}

func namespaceOf(qualified string) string {
	for i := len(qualified) - 1; i >= 1; i-- {
		if qualified[i-1] == ':' && qualified[i] == ':' {
			return qualified[:i-1]
		}
	}
	return ""
}

func TestFramedStructOffsetsStartAt24(t *testing.T) {
	shape := shapeOf(t, `struct P { u32 a; u8 b; }`, "P")
	if shape.Elements[0].Offset != 24 {
		t.Fatalf("got offset %d, want 24", shape.Elements[0].Offset)
	}
	if shape.Elements[1].Offset != 28 {
		t.Fatalf("got offset %d, want 28", shape.Elements[1].Offset)
	}
	if shape.Size != 29 {
		t.Fatalf("got size %d, want 29", shape.Size)
	}
}

func TestNakedStructOffsetsStartAt0(t *testing.T) {
	shape := shapeOf(t, `struct P @naked { u32 a; u8 b; }`, "P")
	if shape.Elements[0].Offset != 0 || shape.Elements[1].Offset != 4 {
		t.Fatalf("unexpected offsets: %+v", shape.Elements)
	}
	if shape.Size != 5 {
		t.Fatalf("got size %d, want 5", shape.Size)
	}
}

func TestSimpleTrueForPlainStruct(t *testing.T) {
	shape := shapeOf(t, `struct P @naked { u32 a; u8 b[4]; }`, "P")
	if !shape.Simple {
		t.Fatalf("expected simple struct")
	}
	if shape.HasCompact {
		t.Fatalf("fixed array should not set has_compact")
	}
}

func TestSimpleFalseForDynamicString(t *testing.T) {
	shape := shapeOf(t, `struct P @naked { string name; }`, "P")
	if shape.Simple {
		t.Fatalf("dynamic string should make struct non-simple")
	}
}

func TestSimpleFalseForDynamicArray(t *testing.T) {
	shape := shapeOf(t, `struct P @naked { u32 items[]; }`, "P")
	if shape.Simple {
		t.Fatalf("dynamic array should make struct non-simple")
	}
}

func TestCompactArrayDoesNotDisqualifySimple(t *testing.T) {
	shape := shapeOf(t, `struct P @naked { u32 items[4] @compact; }`, "P")
	if !shape.Simple {
		t.Fatalf("compact array must not disqualify simple, per spec's literal definition")
	}
	if !shape.HasCompact {
		t.Fatalf("expected has_compact true")
	}
}

func TestSimplePropagatesFromNestedStruct(t *testing.T) {
	shape := shapeOf(t, `
		struct Inner @naked { string s; }
		struct Outer @naked { Inner v; }
	`, "Outer")
	if shape.Simple {
		t.Fatalf("nested non-simple struct should propagate non-simple")
	}
}

func TestHasCompactPropagatesFromNestedStruct(t *testing.T) {
	shape := shapeOf(t, `
		struct Inner @naked { u8 items[4] @compact; }
		struct Outer @naked { Inner v; }
	`, "Outer")
	if !shape.HasCompact {
		t.Fatalf("expected has_compact to propagate from nested struct")
	}
}

func TestCycleDetection(t *testing.T) {
	src := "struct A { B b; } struct B { A a; }\n"
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	table := resolver.Build(prog)
	a := NewAnalyzer(table)
	decl, _ := table.Struct("A")
	if _, err := a.Shape("", decl); err == nil {
		t.Fatalf("expected cycle error")
	}
}
