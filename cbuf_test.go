package cbuf

import (
	"bytes"
	"testing"
)

func TestParseSchemaSuccess(t *testing.T) {
	res := ParseSchema(`namespace messages { struct foo @naked { u8 x; } }`)
	if res.Error != nil {
		t.Fatalf("ParseSchema: %v", res.Error)
	}
	if _, ok := res.Schema["messages::foo"]; !ok {
		t.Fatalf("messages::foo missing from parsed schema")
	}
}

func TestParseSchemaErrorIncludesPositionAndExcerpt(t *testing.T) {
	res := ParseSchema("namespace messages {\n  struct foo { bogus x; }\n}")
	if res.Error == nil {
		t.Fatalf("expected a parse error for unknown type %q", "bogus")
	}
	msg := res.Error.Error()
	if !bytes.Contains([]byte(msg), []byte("bogus")) {
		t.Fatalf("error %q does not mention the offending token", msg)
	}
	if !bytes.Contains([]byte(msg), []byte("2:16:")) {
		t.Fatalf("error %q does not carry the element's line:col position", msg)
	}
	if !bytes.Contains([]byte(msg), []byte("struct foo { bogus x; }")) || !bytes.Contains([]byte(msg), []byte("^")) {
		t.Fatalf("error %q does not include a caret-annotated source excerpt", msg)
	}
}

func TestEndToEndRoundTrip(t *testing.T) {
	res := ParseSchema(`namespace messages {
		struct foo @naked { u8 x; }
		struct bar { foo foo; }
	}`)
	if res.Error != nil {
		t.Fatalf("ParseSchema: %v", res.Error)
	}
	idx, err := HashMap(res.Schema)
	if err != nil {
		t.Fatalf("HashMap: %v", err)
	}

	bar := res.Schema["messages::bar"]
	rec := &Record{
		TypeName:   "messages::bar",
		HasVariant: true,
		Variant:    2,
		HashValue:  bar.HashValue,
		Message:    Message{"foo": Message{"x": uint8(9)}},
	}

	size, err := SerializedSize(res.Schema, idx, rec)
	if err != nil {
		t.Fatalf("SerializedSize: %v", err)
	}
	buf, err := Serialize(res.Schema, idx, rec)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(buf) != size {
		t.Fatalf("SerializedSize=%d, len(Serialize)=%d", size, len(buf))
	}

	decoded, err := Deserialize(res.Schema, idx, buf, 0)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if decoded.TypeName != "messages::bar" {
		t.Fatalf("got TypeName %q, want messages::bar", decoded.TypeName)
	}
	foo, ok := decoded.Message["foo"].(Message)
	if !ok {
		t.Fatalf("message.foo is %T, want Message", decoded.Message["foo"])
	}
	if x, ok := foo["x"].(uint8); !ok || x != 9 {
		t.Fatalf("message.foo.x = %v, want uint8(9)", foo["x"])
	}

	reencoded, err := Serialize(res.Schema, idx, decoded)
	if err != nil {
		t.Fatalf("re-Serialize: %v", err)
	}
	if !bytes.Equal(buf, reencoded) {
		t.Fatalf("round-trip mismatch:\n got %x\nwant %x", reencoded, buf)
	}
}
