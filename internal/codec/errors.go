// Package codec implements the cbuf wire codec: deserializing and
// serializing binary records against a descriptor table (spec.md §4.H,
// §4.I), including framing, naked nested structs, fixed/dynamic/compact
// arrays, and fixed/length-prefixed strings.
package codec

import "fmt"

// Kind is the typed error taxonomy of spec.md §7's codec-facing entries.
type Kind string

const (
	KindInvalidOffset   Kind = "InvalidOffset"
	KindInvalidMagic    Kind = "InvalidMagic"
	KindTruncatedRecord Kind = "TruncatedRecord"
	KindUnknownHash     Kind = "UnknownHash"
	KindCompactOverflow Kind = "CompactOverflow"
	KindSizeMismatch    Kind = "SizeMismatch"
	KindEncoding        Kind = "Encoding"
	KindAmbiguousHash   Kind = "AmbiguousHash"
)

// Error is the typed failure every codec operation returns at the call
// boundary, mirroring the teacher's StandardError category/message shape.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("[%s] %s", e.Kind, e.Message) }

func errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
