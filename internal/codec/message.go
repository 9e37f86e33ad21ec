package codec

// Message is a decoded struct body: field name to decoded value. Scalar
// primitive fields decode to their native Go type (uint8, int32,
// float64, bool, string, ...). Numeric array fields decode to a typed
// Go slice (e.g. []uint32) that may or may not alias the source
// buffer, per spec.md §4.H's "semantic equality, not pointer identity"
// contract; bool arrays decode to []uint8 (non-zero ⇒ true), per the
// same section. String and nested-struct arrays decode to []string and
// []Message respectively. Naked nested structs decode to a Message.
type Message map[string]interface{}

// Record is the outcome of deserializing one framed record (spec.md
// §4.H's "Returned record").
type Record struct {
	TypeName string
	// Size is the declared header size_and_variant's size field: the
	// total byte length of header + payload.
	Size uint32
	// Variant is the 4-bit variant tag, 0 when HasVariant is false.
	Variant uint8
	// HasVariant records whether bit 31 of size_and_variant was set on
	// the wire; re-encoding must preserve this exactly (spec.md §9).
	HasVariant bool
	HashValue  uint64
	Timestamp  float64
	Message    Message
}
