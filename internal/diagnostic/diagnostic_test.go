package diagnostic

import (
	"strings"
	"testing"

	"github.com/mvi-llc/wasm-cbuf/position"
)

func TestCollapseEmptyIsNil(t *testing.T) {
	c := NewCollector("struct X { u8 a; }\n")
	if err := c.Collapse(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestCollapseSingleDiagnosticIncludesExcerpt(t *testing.T) {
	src := "struct X {\n  Missing v;\n}\n"
	c := NewCollector(src)
	c.Add(position.Position{Line: 2, Column: 3}, `unresolved type reference "Missing"`)
	err := c.Collapse()
	if err == nil {
		t.Fatalf("expected an error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "2:3:") {
		t.Fatalf("expected position prefix, got %q", msg)
	}
	if !strings.Contains(msg, "Missing v;") {
		t.Fatalf("expected source excerpt, got %q", msg)
	}
	if !strings.Contains(msg, "^") {
		t.Fatalf("expected caret marker, got %q", msg)
	}
}

func TestCollapseJoinsMultipleDiagnostics(t *testing.T) {
	c := NewCollector("a\nb\n")
	c.Add(position.Position{Line: 1, Column: 1}, "first")
	c.Add(position.Position{Line: 2, Column: 1}, "second")
	err := c.Collapse()
	lines := strings.Split(err.Error(), "\n")
	var count int
	for _, l := range lines {
		if strings.Contains(l, "first") || strings.Contains(l, "second") {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected both diagnostics present, got %q", err.Error())
	}
}
