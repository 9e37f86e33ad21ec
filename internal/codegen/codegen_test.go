package codegen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/mvi-llc/wasm-cbuf/internal/codec"
	"github.com/mvi-llc/wasm-cbuf/internal/descriptor"
	"github.com/mvi-llc/wasm-cbuf/internal/parser"
)

func schemaOf(t *testing.T, src string) codec.SchemaMap {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	table, _, err := descriptor.Emit(prog)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	return codec.SchemaMap(table)
}

func TestGenerateScalarAndArrayFields(t *testing.T) {
	schema := schemaOf(t, `namespace messages {
		struct foo @naked { u8 x; u32 ys[]; string name; }
	}`)

	out, err := Generate("example", schema, []string{"messages::foo"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	src := string(out)

	// Field columns are gofmt-aligned, so names and types are separated
	// by one or more spaces.
	for _, want := range []string{
		`package example`,
		`type Messages_Foo struct`,
		`X\s+uint8\s`,
		`Ys\s+\[\]uint32\s`,
		`Name\s+string\s`,
	} {
		if !regexp.MustCompile(want).MatchString(src) {
			t.Fatalf("generated source missing %q:\n%s", want, src)
		}
	}
}

func TestGenerateNestedStructField(t *testing.T) {
	schema := schemaOf(t, `namespace messages {
		struct foo @naked { u8 x; }
		struct bar { foo f; }
	}`)

	out, err := Generate("example", schema, []string{"messages::foo", "messages::bar"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	src := string(out)
	if !strings.Contains(src, "F Messages_Foo") {
		t.Fatalf("generated source missing nested field reference:\n%s", src)
	}
}

func TestGenerateSortedIsDeterministic(t *testing.T) {
	schema := schemaOf(t, `namespace messages {
		struct b @naked { u8 x; }
		struct a @naked { u8 x; }
	}`)

	out, err := GenerateSorted("example", schema)
	if err != nil {
		t.Fatalf("GenerateSorted: %v", err)
	}
	aIdx := strings.Index(string(out), "Messages_A")
	bIdx := strings.Index(string(out), "Messages_B")
	if aIdx == -1 || bIdx == -1 || aIdx > bIdx {
		t.Fatalf("expected Messages_A before Messages_B in sorted output:\n%s", out)
	}
}
