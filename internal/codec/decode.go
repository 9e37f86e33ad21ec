package codec

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/mvi-llc/wasm-cbuf/internal/descriptor"
)

const (
	recordMagic = 0x56444E54
	headerSize  = 24 // magic(4) + size_and_variant(4) + hash(8) + timestamp(8)
)

// hostLittleEndian is evaluated once; zero-copy typed views are only
// offered on little-endian hosts, since the wire format is always LE
// (spec.md §6) and a raw pointer reinterpretation on a big-endian host
// would silently misread every multi-byte field.
var hostLittleEndian = func() bool {
	var x uint16 = 1
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

var primitiveWidths = map[string]int{
	"uint8": 1, "int8": 1, "bool": 1,
	"uint16": 2, "int16": 2,
	"uint32": 4, "int32": 4, "float32": 4,
	"uint64": 8, "int64": 8, "float64": 8,
}

// Deserialize implements spec.md §4.H / §6 operation 3: decode the
// framed record at buf[offset:] against schema+hashIndex (with
// bootstrap-metadata fallback), returning the structured Record.
func Deserialize(schema SchemaMap, hashIndex HashIndex, buf []byte, offset int) (*Record, error) {
	return DeserializeWithProvider(schema, NewProvider(hashIndex), buf, offset)
}

// DeserializeWithProvider is Deserialize with an injected
// DescriptorProvider, the seam tests exercise with a go.uber.org/mock
// MockDescriptorProvider to verify the UnknownHash/fallback path
// without depending on internal/descriptor's real Bootstrap() parse.
func DeserializeWithProvider(schema SchemaMap, provider DescriptorProvider, buf []byte, offset int) (*Record, error) {
	if offset < 0 || offset >= len(buf) {
		return nil, errf(KindInvalidOffset, "offset %d out of range for buffer of length %d", offset, len(buf))
	}
	view := buf[offset:]
	if len(view) < headerSize {
		return nil, errf(KindTruncatedRecord, "buffer too short for header: have %d bytes, need %d", len(view), headerSize)
	}

	size, variant, hasVariant, hdrErr := readSizeAndVariant(view)
	if hdrErr != nil {
		return nil, hdrErr
	}
	hash := binary.LittleEndian.Uint64(view[8:16])
	timestamp := math.Float64frombits(binary.LittleEndian.Uint64(view[16:24]))

	if int(size) > len(view) {
		return nil, errf(KindTruncatedRecord, "declared size %d exceeds available %d bytes", size, len(view))
	}

	desc, ok := provider.Resolve(hash)
	if !ok {
		return nil, errf(KindUnknownHash, "no descriptor registered for hash %#x", hash)
	}

	d := &decoder{schema: schema}
	msg, cursor, err := d.decodeNaked(desc, view, headerSize)
	if err != nil {
		return nil, err
	}
	if cursor != int(size) {
		return nil, errf(KindSizeMismatch, "consumed %d bytes, declared size was %d", cursor, size)
	}

	return &Record{
		TypeName:   desc.Name,
		Size:       size,
		Variant:    variant,
		HasVariant: hasVariant,
		HashValue:  hash,
		Timestamp:  timestamp,
		Message:    msg,
	}, nil
}

// readSizeAndVariant validates the magic and unpacks the size_and_variant
// word at the start of view, per spec.md §4.H's bit layout.
func readSizeAndVariant(view []byte) (size uint32, variant uint8, hasVariant bool, err *Error) {
	m := binary.LittleEndian.Uint32(view[0:4])
	if m != recordMagic {
		return 0, 0, false, errf(KindInvalidMagic, "expected magic %#x, got %#x", uint32(recordMagic), m)
	}
	word := binary.LittleEndian.Uint32(view[4:8])
	if word&0x80000000 != 0 {
		return word & 0x07FFFFFF, uint8((word >> 27) & 0x0F), true, nil
	}
	return word & 0x7FFFFFFF, 0, false, nil
}

// decoder carries the schema map needed to resolve a complex element's
// referenced descriptor by qualified name while walking a naked body.
type decoder struct {
	schema SchemaMap
}

// decodeNaked decodes desc's fields, in declaration order, starting at
// buf[cursor:], and returns the decoded Message plus the cursor
// position immediately past the last consumed byte.
func (d *decoder) decodeNaked(desc *descriptor.Struct, buf []byte, cursor int) (Message, int, error) {
	msg := make(Message, len(desc.Elements))
	for _, el := range desc.Elements {
		v, next, err := d.decodeElement(el, buf, cursor)
		if err != nil {
			return nil, 0, err
		}
		msg[el.Name] = v
		cursor = next
	}
	return msg, cursor, nil
}

func (d *decoder) decodeElement(el descriptor.Element, buf []byte, cursor int) (interface{}, int, error) {
	if el.IsArray {
		return d.decodeArray(el, buf, cursor)
	}
	return d.decodeScalar(el, buf, cursor)
}

func (d *decoder) decodeArray(el descriptor.Element, buf []byte, cursor int) (interface{}, int, error) {
	count := el.ArrayLength
	if !el.HasArrayLength {
		if cursor+4 > len(buf) {
			return nil, 0, errf(KindTruncatedRecord, "truncated array count for %q", el.Name)
		}
		count = int(binary.LittleEndian.Uint32(buf[cursor : cursor+4]))
		cursor += 4
		if el.HasArrayUpperBound && count > el.ArrayUpperBound {
			return nil, 0, errf(KindCompactOverflow, "array %q count %d exceeds upper bound %d", el.Name, count, el.ArrayUpperBound)
		}
	}

	switch {
	case el.IsComplex:
		items := make([]Message, count)
		for i := 0; i < count; i++ {
			nested, next, err := d.decodeComplexValue(el, buf, cursor)
			if err != nil {
				return nil, 0, err
			}
			items[i] = nested
			cursor = next
		}
		return items, cursor, nil

	case el.Type == "string":
		items := make([]string, count)
		for i := 0; i < count; i++ {
			s, next, err := d.decodeStringValue(el, buf, cursor)
			if err != nil {
				return nil, 0, err
			}
			items[i] = s
			cursor = next
		}
		return items, cursor, nil

	default:
		v, next, err := numericArrayView(buf, cursor, count, el.Type)
		if err != nil {
			return nil, 0, err
		}
		return v, next, nil
	}
}

func (d *decoder) decodeScalar(el descriptor.Element, buf []byte, cursor int) (interface{}, int, error) {
	switch {
	case el.IsComplex:
		return d.decodeComplexValue(el, buf, cursor)
	case el.Type == "string":
		return d.decodeStringValue(el, buf, cursor)
	default:
		return decodeNumericScalar(buf, cursor, el.Type)
	}
}

// decodeStringValue reads a short_string (fixed upperBound, NUL-padded)
// or a dynamic length-prefixed string, per spec.md §4.H.
func (d *decoder) decodeStringValue(el descriptor.Element, buf []byte, cursor int) (string, int, error) {
	if el.HasUpperBound {
		if cursor+el.UpperBound > len(buf) {
			return "", 0, errf(KindTruncatedRecord, "truncated short_string field %q", el.Name)
		}
		raw := buf[cursor : cursor+el.UpperBound]
		n := 0
		for n < len(raw) && raw[n] != 0 {
			n++
		}
		return string(raw[:n]), cursor + el.UpperBound, nil
	}

	if cursor+4 > len(buf) {
		return "", 0, errf(KindTruncatedRecord, "truncated string length prefix for field %q", el.Name)
	}
	length := int(binary.LittleEndian.Uint32(buf[cursor : cursor+4]))
	cursor += 4
	if cursor+length > len(buf) {
		return "", 0, errf(KindTruncatedRecord, "truncated string contents for field %q", el.Name)
	}
	return string(buf[cursor : cursor+length]), cursor + length, nil
}

// decodeComplexValue decodes one instance of a struct-typed field:
// naked in place if the referenced descriptor is naked, otherwise as a
// framed nested record whose header is consumed but not surfaced.
func (d *decoder) decodeComplexValue(el descriptor.Element, buf []byte, cursor int) (Message, int, error) {
	nested, ok := d.schema[el.Type]
	if !ok {
		return nil, 0, errf(KindEncoding, "no descriptor for nested type %q (field %q)", el.Type, el.Name)
	}
	if nested.Naked {
		return d.decodeNaked(nested, buf, cursor)
	}

	if cursor+headerSize > len(buf) {
		return nil, 0, errf(KindTruncatedRecord, "truncated nested record header for field %q", el.Name)
	}
	if _, _, _, err := readSizeAndVariant(buf[cursor:]); err != nil {
		return nil, 0, err
	}
	return d.decodeNaked(nested, buf, cursor+headerSize)
}

func decodeNumericScalar(buf []byte, cursor int, typeName string) (interface{}, int, error) {
	width, ok := primitiveWidths[typeName]
	if !ok {
		return nil, 0, errf(KindEncoding, "unknown primitive type %q", typeName)
	}
	if cursor+width > len(buf) {
		return nil, 0, errf(KindTruncatedRecord, "truncated scalar field of type %q", typeName)
	}
	b := buf[cursor : cursor+width]
	switch typeName {
	case "uint8":
		return b[0], cursor + 1, nil
	case "int8":
		return int8(b[0]), cursor + 1, nil
	case "bool":
		return b[0] != 0, cursor + 1, nil
	case "uint16":
		return binary.LittleEndian.Uint16(b), cursor + 2, nil
	case "int16":
		return int16(binary.LittleEndian.Uint16(b)), cursor + 2, nil
	case "uint32":
		return binary.LittleEndian.Uint32(b), cursor + 4, nil
	case "int32":
		return int32(binary.LittleEndian.Uint32(b)), cursor + 4, nil
	case "float32":
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), cursor + 4, nil
	case "uint64":
		return binary.LittleEndian.Uint64(b), cursor + 8, nil
	case "int64":
		return int64(binary.LittleEndian.Uint64(b)), cursor + 8, nil
	case "float64":
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), cursor + 8, nil
	default:
		return nil, 0, errf(KindEncoding, "unknown primitive type %q", typeName)
	}
}

// numericArrayView decodes count consecutive values of typeName
// starting at buf[cursor:], returning a zero-copy slice aliasing buf
// when the host is little-endian and cursor is naturally aligned to
// the element width, or an independently allocated+decoded copy
// otherwise. Per spec.md §4.H, bool arrays surface as []uint8.
func numericArrayView(buf []byte, cursor, count int, typeName string) (interface{}, int, error) {
	width, ok := primitiveWidths[typeName]
	if !ok {
		return nil, 0, errf(KindEncoding, "unknown primitive array type %q", typeName)
	}
	total := count * width
	if cursor+total > len(buf) {
		return nil, 0, errf(KindTruncatedRecord, "truncated array of %d %s elements", count, typeName)
	}
	if count == 0 {
		return emptyTypedSlice(typeName), cursor, nil
	}

	aligned := cursor%width == 0
	if hostLittleEndian && aligned {
		ptr := unsafe.Pointer(&buf[cursor])
		switch typeName {
		case "uint8", "bool":
			return unsafe.Slice((*uint8)(ptr), count), cursor + total, nil
		case "int8":
			return unsafe.Slice((*int8)(ptr), count), cursor + total, nil
		case "uint16":
			return unsafe.Slice((*uint16)(ptr), count), cursor + total, nil
		case "int16":
			return unsafe.Slice((*int16)(ptr), count), cursor + total, nil
		case "uint32":
			return unsafe.Slice((*uint32)(ptr), count), cursor + total, nil
		case "int32":
			return unsafe.Slice((*int32)(ptr), count), cursor + total, nil
		case "float32":
			return unsafe.Slice((*float32)(ptr), count), cursor + total, nil
		case "uint64":
			return unsafe.Slice((*uint64)(ptr), count), cursor + total, nil
		case "int64":
			return unsafe.Slice((*int64)(ptr), count), cursor + total, nil
		case "float64":
			return unsafe.Slice((*float64)(ptr), count), cursor + total, nil
		}
	}

	return copyTypedSlice(buf[cursor:cursor+total], typeName, count), cursor + total, nil
}

func emptyTypedSlice(typeName string) interface{} {
	switch typeName {
	case "uint8", "bool":
		return []uint8{}
	case "int8":
		return []int8{}
	case "uint16":
		return []uint16{}
	case "int16":
		return []int16{}
	case "uint32":
		return []uint32{}
	case "int32":
		return []int32{}
	case "float32":
		return []float32{}
	case "uint64":
		return []uint64{}
	case "int64":
		return []int64{}
	case "float64":
		return []float64{}
	default:
		return nil
	}
}

func copyTypedSlice(raw []byte, typeName string, count int) interface{} {
	switch typeName {
	case "uint8", "bool":
		out := make([]uint8, count)
		copy(out, raw)
		return out
	case "int8":
		out := make([]int8, count)
		for i := range out {
			out[i] = int8(raw[i])
		}
		return out
	case "uint16":
		out := make([]uint16, count)
		for i := range out {
			out[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
		return out
	case "int16":
		out := make([]int16, count)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}
		return out
	case "uint32":
		out := make([]uint32, count)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
		return out
	case "int32":
		out := make([]int32, count)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return out
	case "float32":
		out := make([]float32, count)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return out
	case "uint64":
		out := make([]uint64, count)
		for i := range out {
			out[i] = binary.LittleEndian.Uint64(raw[i*8:])
		}
		return out
	case "int64":
		out := make([]int64, count)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return out
	case "float64":
		out := make([]float64, count)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return out
	default:
		return nil
	}
}
