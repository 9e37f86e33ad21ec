package lexer

import "testing"

func TestBasicTokens(t *testing.T) {
	input := "struct Foo { u8 x; }\n"

	tests := []struct {
		expectedType  TokenType
		expectedValue string
	}{
		{TokenStruct, "struct"},
		{TokenIdentifier, "Foo"},
		{TokenLBrace, "{"},
		{TokenPrimitive, "u8"},
		{TokenIdentifier, "x"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - type wrong. expected=%s, got=%s (%q)", i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedValue {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedValue, tok.Literal)
		}
	}
}

func TestNestedBlockComments(t *testing.T) {
	input := "/* outer /* inner */ */ struct // trailing line comment\nFoo {}\n"

	l := New(input)
	tok := l.NextToken()
	if tok.Type != TokenStruct {
		t.Fatalf("expected STRUCT after nested comment, got %s", tok.Type)
	}
	tok = l.NextToken()
	if tok.Type != TokenIdentifier || tok.Literal != "Foo" {
		t.Fatalf("expected identifier Foo, got %s %q", tok.Type, tok.Literal)
	}
}

func TestUnterminatedBlockComment(t *testing.T) {
	l := New("/* never closed\n")
	tok := l.NextToken()
	if tok.Type != TokenError {
		t.Fatalf("expected ERROR token, got %s", tok.Type)
	}
}

func TestNumericLiterals(t *testing.T) {
	tests := []struct {
		input        string
		expectedType TokenType
		expected     string
	}{
		{"123", TokenInteger, "123"},
		{"0x1F", TokenInteger, "0x1F"},
		{"3.14", TokenFloat, "3.14"},
		{"2.0e3", TokenFloat, "2.0e3"},
	}
	for _, tt := range tests {
		l := New(tt.input + "\n")
		tok := l.NextToken()
		if tok.Type != tt.expectedType || tok.Literal != tt.expected {
			t.Errorf("input %q: got %s %q, want %s %q", tt.input, tok.Type, tok.Literal, tt.expectedType, tt.expected)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\nb\tc\"d\\e\0f\x41"` + "\n")
	tok := l.NextToken()
	if tok.Type != TokenString {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	want := "a\nb\tc\"d\\e\x00f\x41"
	if tok.Literal != want {
		t.Fatalf("got %q, want %q", tok.Literal, want)
	}
}

func TestDoubleColon(t *testing.T) {
	l := New("ns::Name\n")
	tok := l.NextToken()
	if tok.Type != TokenIdentifier || tok.Literal != "ns" {
		t.Fatalf("got %s %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != TokenDoubleColon {
		t.Fatalf("expected DOUBLE_COLON, got %s", tok.Type)
	}
	tok = l.NextToken()
	if tok.Type != TokenIdentifier || tok.Literal != "Name" {
		t.Fatalf("got %s %q", tok.Type, tok.Literal)
	}
}

func TestAnnotationToken(t *testing.T) {
	l := New("@naked\n")
	tok := l.NextToken()
	if tok.Type != TokenAt {
		t.Fatalf("expected AT, got %s", tok.Type)
	}
	tok = l.NextToken()
	if tok.Type != TokenIdentifier || tok.Literal != "naked" {
		t.Fatalf("got %s %q", tok.Type, tok.Literal)
	}
}
