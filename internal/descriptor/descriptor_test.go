package descriptor

import (
	"testing"

	"github.com/mvi-llc/wasm-cbuf/internal/parser"
)

func emitOrFail(t *testing.T, src string) map[string]*Struct {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	table, _, err := Emit(prog)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	return table
}

func TestEmitPrimitiveElement(t *testing.T) {
	table := emitOrFail(t, `struct Point { f32 x; f32 y; u8 flags[4]; }`)
	d, ok := table["Point"]
	if !ok {
		t.Fatalf("missing Point descriptor")
	}
	if len(d.Elements) != 3 {
		t.Fatalf("got %d elements, want 3", len(d.Elements))
	}
	if d.Elements[0].Type != "float32" {
		t.Fatalf("got type %q, want float32", d.Elements[0].Type)
	}
	if !d.Elements[2].IsArray || !d.Elements[2].HasArrayLength || d.Elements[2].ArrayLength != 4 {
		t.Fatalf("flags element not recognized as fixed array of 4: %+v", d.Elements[2])
	}
}

func TestEmitShortStringUpperBound(t *testing.T) {
	table := emitOrFail(t, `struct Named { short_string name; }`)
	el := table["Named"].Elements[0]
	if el.Type != "string" || !el.HasUpperBound || el.UpperBound != 16 {
		t.Fatalf("unexpected short_string descriptor: %+v", el)
	}
}

func TestEmitComplexReference(t *testing.T) {
	table := emitOrFail(t, `
		struct Inner { u8 x; }
		struct Outer { Inner v; Inner items[3] @compact; }
	`)
	outer := table["Outer"]
	if !outer.Elements[0].IsComplex || outer.Elements[0].Type != "Inner" {
		t.Fatalf("expected complex reference to Inner, got %+v", outer.Elements[0])
	}
	compact := outer.Elements[1]
	if !compact.HasArrayUpperBound || compact.ArrayUpperBound != 3 || compact.HasArrayLength {
		t.Fatalf("expected compact array descriptor, got %+v", compact)
	}
}

func TestEmitEnumAsInt32(t *testing.T) {
	table := emitOrFail(t, `
		enum Color { Red, Green, Blue }
		struct Pixel { Color c; }
	`)
	el := table["Pixel"].Elements[0]
	if el.Type != "int32" || el.IsComplex {
		t.Fatalf("expected enum field emitted as plain int32, got %+v", el)
	}
}

func TestEmitDefaultValues(t *testing.T) {
	table := emitOrFail(t, `struct Config { u32 retries = 3; f32 ratio = 1.5; bool on = true; }`)
	d := table["Config"]
	if !d.Elements[0].HasDefault || d.Elements[0].Default.Kind != DefaultInt || d.Elements[0].Default.Int != 3 {
		t.Fatalf("unexpected integer default: %+v", d.Elements[0])
	}
	if !d.Elements[1].HasDefault || d.Elements[1].Default.Kind != DefaultFloat {
		t.Fatalf("unexpected float default: %+v", d.Elements[1])
	}
	if !d.Elements[2].HasDefault || d.Elements[2].Default.Kind != DefaultBool || !d.Elements[2].Default.Bool {
		t.Fatalf("unexpected bool default: %+v", d.Elements[2])
	}
}

func TestEmitBigIntDefault(t *testing.T) {
	table := emitOrFail(t, `struct Wide { u64 big = 9000; }`)
	el := table["Wide"].Elements[0]
	if el.Default.Kind != DefaultBigInt {
		t.Fatalf("expected u64 default tagged DefaultBigInt, got %v", el.Default.Kind)
	}
}

func TestEmitInsertionOrderGlobalFirst(t *testing.T) {
	prog, err := parser.New(`
		namespace ns { struct First { u8 x; } }
		struct GlobalOne { u8 x; }
	`).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, order, err := Emit(prog)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	if order[0] != "GlobalOne" || order[1] != "ns::First" {
		t.Fatalf("unexpected emission order: %v", order)
	}
}

func TestBootstrapMatchesLiteralHash(t *testing.T) {
	desc, err := Bootstrap()
	if err != nil {
		t.Fatalf("bootstrap error: %v", err)
	}
	if desc.HashValue != BootstrapHashValue {
		t.Fatalf("got %#x, want %#x", desc.HashValue, BootstrapHashValue)
	}
	if desc.Naked {
		t.Fatalf("bootstrap metadata struct must carry the standard 24-byte header")
	}
}
