package codec

import "reflect"

// toInt64 and toFloat64 accept any of the concrete numeric kinds a
// caller-built Message might reasonably use for a field value (the
// decoder only ever produces the descriptor-exact types, but a
// hand-built Message destined for Serialize commonly uses plain int or
// float64 literals), grounded in the same permissive-numeric-input
// idiom as the teacher's config layer.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	default:
		return 0, errf(KindEncoding, "cannot convert %T to integer", v)
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, errf(KindEncoding, "cannot convert %T to float", v)
		}
		return float64(i), nil
	}
}

// sliceLen and sliceElem use reflect since array field values may be
// decoded typed slices ([]uint32, []int8, ...) or, for a hand-built
// Message, any slice type the caller chose.
func sliceLen(v interface{}) (int, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return 0, errf(KindEncoding, "expected a slice, got %T", v)
	}
	return rv.Len(), nil
}

func sliceElem(v interface{}, i int) (interface{}, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, errf(KindEncoding, "expected a slice, got %T", v)
	}
	return rv.Index(i).Interface(), nil
}
