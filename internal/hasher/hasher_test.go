package hasher

import (
	"testing"

	"github.com/mvi-llc/wasm-cbuf/internal/parser"
	"github.com/mvi-llc/wasm-cbuf/internal/resolver"
)

func hashOf(t *testing.T, src, qualifiedName string) uint64 {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	table := resolver.Build(prog)
	h := New(table)

	decl, ok := table.Struct(qualifiedName)
	if !ok {
		t.Fatalf("struct %q not found", qualifiedName)
	}
	v, err := h.Hash(namespaceOf(qualifiedName), decl)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	return v
}

func namespaceOf(qualified string) string {
	for i := len(qualified) - 1; i >= 1; i-- {
		if qualified[i-1] == ':' && qualified[i] == ':' {
			return qualified[:i-1]
		}
	}
	return ""
}

const bootstrapSchema = `namespace cbufmsg { struct metadata { u64 msg_hash; string msg_name; string msg_meta; } }
`

func TestBootstrapMetadataHash(t *testing.T) {
	got := hashOf(t, bootstrapSchema, "cbufmsg::metadata")
	const want = uint64(0xBE6738D544AB72C6)
	if got != want {
		t.Fatalf("got %#x, want %#x", got, want)
	}
}

func TestHashStableAcrossCommentsAndWhitespace(t *testing.T) {
	a := hashOf(t, bootstrapSchema, "cbufmsg::metadata")
	withComments := `namespace cbufmsg {
		// a leading comment
		struct metadata {
			u64 msg_hash; /* inline */
			string msg_name;

			string msg_meta;
		}
	}
`
	b := hashOf(t, withComments, "cbufmsg::metadata")
	if a != b {
		t.Fatalf("hash changed with whitespace/comments: %#x != %#x", a, b)
	}
}

func TestHashChangesWithFieldRename(t *testing.T) {
	a := hashOf(t, bootstrapSchema, "cbufmsg::metadata")
	renamed := `namespace cbufmsg { struct metadata { u64 msg_hash; string renamed_field; string msg_meta; } }
`
	b := hashOf(t, renamed, "cbufmsg::metadata")
	if a == b {
		t.Fatalf("expected hash to change after field rename")
	}
}

func TestHashUnaffectedByUnrelatedNamespaceOrdering(t *testing.T) {
	s1 := `namespace a { struct First { u8 x; } }
namespace cbufmsg { struct metadata { u64 msg_hash; string msg_name; string msg_meta; } }
`
	s2 := `namespace cbufmsg { struct metadata { u64 msg_hash; string msg_name; string msg_meta; } }
namespace a { struct First { u8 x; } }
`
	if hashOf(t, s1, "cbufmsg::metadata") != hashOf(t, s2, "cbufmsg::metadata") {
		t.Fatalf("hash changed with unrelated namespace reordering")
	}
}

func TestHashCycleDetection(t *testing.T) {
	src := "struct A { B b; } struct B { A a; }\n"
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	table := resolver.Build(prog)
	h := New(table)
	decl, _ := table.Struct("A")
	if _, err := h.Hash("", decl); err == nil {
		t.Fatalf("expected cycle error")
	}
}
