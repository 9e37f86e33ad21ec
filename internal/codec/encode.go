package codec

import (
	"encoding/binary"
	"math"

	"github.com/mvi-llc/wasm-cbuf/internal/descriptor"
)

// SerializedSize implements spec.md §4.I's serializedMessageSize / §6
// operation 5: the exact byte length Serialize will produce for rec.
func SerializedSize(schema SchemaMap, hashIndex HashIndex, rec *Record) (int, error) {
	desc, err := resolveRecordDescriptor(hashIndex, rec)
	if err != nil {
		return 0, err
	}
	n, err := sizeNaked(schema, desc, rec.Message)
	if err != nil {
		return 0, err
	}
	return headerSize + n, nil
}

// Serialize implements spec.md §4.I's serialize / §6 operation 4:
// encode rec into a freshly allocated buffer of exactly the size
// SerializedSize would report.
func Serialize(schema SchemaMap, hashIndex HashIndex, rec *Record) ([]byte, error) {
	desc, err := resolveRecordDescriptor(hashIndex, rec)
	if err != nil {
		return nil, err
	}
	n, err := sizeNaked(schema, desc, rec.Message)
	if err != nil {
		return nil, err
	}
	total := headerSize + n
	buf := make([]byte, total)

	binary.LittleEndian.PutUint32(buf[0:4], recordMagic)
	word := uint32(total)
	if rec.HasVariant {
		word = 0x80000000 | (uint32(rec.Variant)&0x0F)<<27 | (uint32(total) & 0x07FFFFFF)
	}
	binary.LittleEndian.PutUint32(buf[4:8], word)
	binary.LittleEndian.PutUint64(buf[8:16], rec.HashValue)
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(rec.Timestamp))

	if _, err := writeNaked(schema, desc, rec.Message, buf, headerSize); err != nil {
		return nil, err
	}
	return buf, nil
}

func resolveRecordDescriptor(hashIndex HashIndex, rec *Record) (*descriptor.Struct, error) {
	desc, ok := NewProvider(hashIndex).Resolve(rec.HashValue)
	if !ok {
		return nil, errf(KindUnknownHash, "no descriptor registered for hash %#x", rec.HashValue)
	}
	return desc, nil
}

func sizeNaked(schema SchemaMap, desc *descriptor.Struct, msg Message) (int, error) {
	total := 0
	for _, el := range desc.Elements {
		n, err := sizeElement(schema, el, msg)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func sizeElement(schema SchemaMap, el descriptor.Element, msg Message) (int, error) {
	v, ok := msg[el.Name]
	if !ok {
		return 0, errf(KindEncoding, "missing required field %q", el.Name)
	}
	if el.IsArray {
		return sizeArrayElement(schema, el, v)
	}
	return sizeScalarElement(schema, el, v)
}

func sizeArrayElement(schema SchemaMap, el descriptor.Element, v interface{}) (int, error) {
	prefix := 0
	if !el.HasArrayLength {
		prefix = 4
	}

	switch {
	case el.IsComplex:
		items, ok := v.([]Message)
		if !ok {
			return 0, errf(KindEncoding, "field %q: expected []Message for struct array", el.Name)
		}
		nested, ok := schema[el.Type]
		if !ok {
			return 0, errf(KindEncoding, "no descriptor for nested type %q (field %q)", el.Type, el.Name)
		}
		total := prefix
		for _, item := range items {
			n, err := sizeNaked(schema, nested, item)
			if err != nil {
				return 0, err
			}
			if !nested.Naked {
				n += headerSize
			}
			total += n
		}
		return total, nil

	case el.Type == "string":
		items, ok := v.([]string)
		if !ok {
			return 0, errf(KindEncoding, "field %q: expected []string", el.Name)
		}
		total := prefix
		for _, s := range items {
			if el.HasUpperBound {
				total += el.UpperBound
			} else {
				total += 4 + len(s)
			}
		}
		return total, nil

	default:
		width, ok := primitiveWidths[el.Type]
		if !ok {
			return 0, errf(KindEncoding, "unknown primitive array type %q", el.Type)
		}
		count, err := sliceLen(v)
		if err != nil {
			return 0, err
		}
		return prefix + count*width, nil
	}
}

func sizeScalarElement(schema SchemaMap, el descriptor.Element, v interface{}) (int, error) {
	switch {
	case el.IsComplex:
		msg, ok := v.(Message)
		if !ok {
			return 0, errf(KindEncoding, "field %q: expected Message for nested struct", el.Name)
		}
		nested, ok := schema[el.Type]
		if !ok {
			return 0, errf(KindEncoding, "no descriptor for nested type %q (field %q)", el.Type, el.Name)
		}
		n, err := sizeNaked(schema, nested, msg)
		if err != nil {
			return 0, err
		}
		if !nested.Naked {
			n += headerSize
		}
		return n, nil

	case el.Type == "string":
		s, ok := v.(string)
		if !ok {
			return 0, errf(KindEncoding, "field %q: expected string", el.Name)
		}
		if el.HasUpperBound {
			return el.UpperBound, nil
		}
		return 4 + len(s), nil

	default:
		width, ok := primitiveWidths[el.Type]
		if !ok {
			return 0, errf(KindEncoding, "unknown primitive type %q", el.Type)
		}
		return width, nil
	}
}

func writeNaked(schema SchemaMap, desc *descriptor.Struct, msg Message, buf []byte, cursor int) (int, error) {
	for _, el := range desc.Elements {
		next, err := writeElement(schema, el, msg, buf, cursor)
		if err != nil {
			return 0, err
		}
		cursor = next
	}
	return cursor, nil
}

func writeElement(schema SchemaMap, el descriptor.Element, msg Message, buf []byte, cursor int) (int, error) {
	v, ok := msg[el.Name]
	if !ok {
		return 0, errf(KindEncoding, "missing required field %q", el.Name)
	}
	if el.IsArray {
		return writeArrayElement(schema, el, v, buf, cursor)
	}
	return writeScalarElement(schema, el, v, buf, cursor)
}

func writeArrayElement(schema SchemaMap, el descriptor.Element, v interface{}, buf []byte, cursor int) (int, error) {
	count, err := sliceLen(v)
	if err != nil {
		return 0, err
	}
	if el.HasArrayUpperBound && count > el.ArrayUpperBound {
		return 0, errf(KindCompactOverflow, "array %q count %d exceeds upper bound %d", el.Name, count, el.ArrayUpperBound)
	}
	if !el.HasArrayLength {
		binary.LittleEndian.PutUint32(buf[cursor:cursor+4], uint32(count))
		cursor += 4
	}

	switch {
	case el.IsComplex:
		items, ok := v.([]Message)
		if !ok {
			return 0, errf(KindEncoding, "field %q: expected []Message for struct array", el.Name)
		}
		nested, ok := schema[el.Type]
		if !ok {
			return 0, errf(KindEncoding, "no descriptor for nested type %q (field %q)", el.Type, el.Name)
		}
		for _, item := range items {
			next, err := writeComplexValue(schema, nested, item, buf, cursor)
			if err != nil {
				return 0, err
			}
			cursor = next
		}
		return cursor, nil

	case el.Type == "string":
		items, ok := v.([]string)
		if !ok {
			return 0, errf(KindEncoding, "field %q: expected []string", el.Name)
		}
		for _, s := range items {
			next, err := writeStringValue(el, s, buf, cursor)
			if err != nil {
				return 0, err
			}
			cursor = next
		}
		return cursor, nil

	default:
		return writeNumericArray(el.Type, v, buf, cursor)
	}
}

func writeScalarElement(schema SchemaMap, el descriptor.Element, v interface{}, buf []byte, cursor int) (int, error) {
	switch {
	case el.IsComplex:
		msg, ok := v.(Message)
		if !ok {
			return 0, errf(KindEncoding, "field %q: expected Message for nested struct", el.Name)
		}
		nested, ok := schema[el.Type]
		if !ok {
			return 0, errf(KindEncoding, "no descriptor for nested type %q (field %q)", el.Type, el.Name)
		}
		return writeComplexValue(schema, nested, msg, buf, cursor)

	case el.Type == "string":
		s, ok := v.(string)
		if !ok {
			return 0, errf(KindEncoding, "field %q: expected string", el.Name)
		}
		return writeStringValue(el, s, buf, cursor)

	default:
		return writeNumericScalar(el.Type, v, buf, cursor)
	}
}

// writeComplexValue writes a nested struct field: naked in place when
// the referenced descriptor is naked, otherwise a framed nested record
// whose timestamp is always written as 0.0 (spec.md §9's resolved open
// question on nested timestamps).
func writeComplexValue(schema SchemaMap, nested *descriptor.Struct, msg Message, buf []byte, cursor int) (int, error) {
	if nested.Naked {
		return writeNaked(schema, nested, msg, buf, cursor)
	}

	n, err := sizeNaked(schema, nested, msg)
	if err != nil {
		return 0, err
	}
	total := headerSize + n

	binary.LittleEndian.PutUint32(buf[cursor:cursor+4], recordMagic)
	binary.LittleEndian.PutUint32(buf[cursor+4:cursor+8], uint32(total)&0x7FFFFFFF)
	binary.LittleEndian.PutUint64(buf[cursor+8:cursor+16], nested.HashValue)
	binary.LittleEndian.PutUint64(buf[cursor+16:cursor+24], math.Float64bits(0))

	return writeNaked(schema, nested, msg, buf, cursor+headerSize)
}

func writeStringValue(el descriptor.Element, s string, buf []byte, cursor int) (int, error) {
	if el.HasUpperBound {
		if len(s) >= el.UpperBound {
			return 0, errf(KindEncoding, "field %q: short_string value too long for upperBound %d", el.Name, el.UpperBound)
		}
		n := copy(buf[cursor:cursor+el.UpperBound], s)
		for i := n; i < el.UpperBound; i++ {
			buf[cursor+i] = 0
		}
		return cursor + el.UpperBound, nil
	}
	binary.LittleEndian.PutUint32(buf[cursor:cursor+4], uint32(len(s)))
	cursor += 4
	n := copy(buf[cursor:cursor+len(s)], s)
	return cursor + n, nil
}

func writeNumericScalar(typeName string, v interface{}, buf []byte, cursor int) (int, error) {
	switch typeName {
	case "bool":
		b, ok := v.(bool)
		if !ok {
			return 0, errf(KindEncoding, "expected bool, got %T", v)
		}
		if b {
			buf[cursor] = 1
		} else {
			buf[cursor] = 0
		}
		return cursor + 1, nil
	case "float32":
		f, err := toFloat64(v)
		if err != nil {
			return 0, err
		}
		binary.LittleEndian.PutUint32(buf[cursor:cursor+4], math.Float32bits(float32(f)))
		return cursor + 4, nil
	case "float64":
		f, err := toFloat64(v)
		if err != nil {
			return 0, err
		}
		binary.LittleEndian.PutUint64(buf[cursor:cursor+8], math.Float64bits(f))
		return cursor + 8, nil
	}

	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	switch typeName {
	case "uint8", "int8":
		buf[cursor] = byte(i)
		return cursor + 1, nil
	case "uint16", "int16":
		binary.LittleEndian.PutUint16(buf[cursor:cursor+2], uint16(i))
		return cursor + 2, nil
	case "uint32", "int32":
		binary.LittleEndian.PutUint32(buf[cursor:cursor+4], uint32(i))
		return cursor + 4, nil
	case "uint64", "int64":
		binary.LittleEndian.PutUint64(buf[cursor:cursor+8], uint64(i))
		return cursor + 8, nil
	default:
		return 0, errf(KindEncoding, "unknown primitive type %q", typeName)
	}
}

func writeNumericArray(typeName string, v interface{}, buf []byte, cursor int) (int, error) {
	n, err := sliceLen(v)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		elem, err := sliceElem(v, i)
		if err != nil {
			return 0, err
		}
		next, err := writeNumericScalar(typeName, elem, buf, cursor)
		if err != nil {
			return 0, err
		}
		cursor = next
	}
	return cursor, nil
}
